package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rl1809/medkit/internal/metrics"
)

func newTestBot(records *mockRecordRepo) (*BotService, *mockSessionRepo, *mockRegistry) {
	sessions := newMockSessionRepo()
	registry := newMockRegistry()
	bot := NewBotService(
		NewCommandService(records, false, fixedNow),
		NewDialogService(records, sessions, false, fixedNow),
		registry,
		nil,
	)
	return bot, sessions, registry
}

func send(t *testing.T, bot *BotService, user, text string) string {
	t.Helper()
	reply, err := bot.HandleMessage(context.Background(), user, text)
	if err != nil {
		t.Fatalf("%q: unexpected error %v", text, err)
	}
	return reply
}

func TestBot_StartRegistersSubscriber(t *testing.T) {
	bot, _, registry := newTestBot(newMockRecordRepo())

	reply := send(t, bot, "chat-1", "/start")
	if !strings.Contains(reply, "/list") {
		t.Errorf("greeting lacks command reference: %q", reply)
	}
	send(t, bot, "chat-1", "/start")

	if got := registry.Snapshot(); len(got) != 1 || got[0] != "chat-1" {
		t.Errorf("unexpected subscribers %v", got)
	}
}

func TestBot_SubscriberGaugeTracksRegistry(t *testing.T) {
	bot, _, registry := newTestBot(newMockRecordRepo())

	send(t, bot, "chat-1", "/start")
	send(t, bot, "chat-2", "/help")
	send(t, bot, "chat-1", "/list")

	if got := testutil.ToFloat64(metrics.Subscribers); got != float64(registry.Len()) || got != 2 {
		t.Errorf("gauge = %v, registry has %d", got, registry.Len())
	}
}

func TestBot_DialogThroughMessages(t *testing.T) {
	records := newMockRecordRepo()
	bot, _, _ := newTestBot(records)

	send(t, bot, "u1", "/add")
	send(t, bot, "u1", "Paracetamol")
	send(t, bot, "u1", "500mg")

	reply := send(t, bot, "u1", "ten")
	if !strings.HasPrefix(reply, "Invalid input: quantity must be a whole number") {
		t.Errorf("unexpected retry reply %q", reply)
	}

	send(t, bot, "u1", "10")
	reply = send(t, bot, "u1", "2025-06")
	if !strings.HasPrefix(reply, "Added: Paracetamol (ID 1)") {
		t.Errorf("unexpected confirmation %q", reply)
	}
	if records.count() != 1 {
		t.Errorf("expected 1 record, got %d", records.count())
	}
}

func TestBot_CancelCommandShortCircuitsDialog(t *testing.T) {
	records := newMockRecordRepo()
	bot, sessions, _ := newTestBot(records)

	send(t, bot, "u1", "/add")
	send(t, bot, "u1", "Paracetamol")

	if reply := send(t, bot, "u1", "/cancel"); reply != cancelReply {
		t.Errorf("unexpected reply %q", reply)
	}
	if reply := send(t, bot, "u1", "/cancel"); reply != noEntryReply {
		t.Errorf("unexpected reply %q", reply)
	}
	if records.count() != 0 || sessions.stage("u1") != "idle" {
		t.Error("cancel left state behind")
	}
	if reply := send(t, bot, "u1", "hello"); reply != idleReply {
		t.Errorf("unexpected idle reply %q", reply)
	}
}

func TestBot_CommandDuringDialogIsNotCaptured(t *testing.T) {
	records := newMockRecordRepo()
	bot, sessions, _ := newTestBot(records)

	send(t, bot, "u1", "/add")
	if reply := send(t, bot, "u1", "/list"); reply != "Inventory is empty." {
		t.Errorf("unexpected list reply %q", reply)
	}
	if sessions.stage("u1") != "awaiting_name" {
		t.Errorf("command changed dialog stage to %s", sessions.stage("u1"))
	}
}

func TestBot_NotFoundAndUnknown(t *testing.T) {
	bot, _, _ := newTestBot(newMockRecordRepo())

	if reply := send(t, bot, "u1", "/delete 5"); reply != notFoundReply {
		t.Errorf("unexpected reply %q", reply)
	}
	if reply := send(t, bot, "u1", "/frobnicate"); reply != unknownReply {
		t.Errorf("unexpected reply %q", reply)
	}
	if reply := send(t, bot, "u1", "/help"); reply != HelpText {
		t.Errorf("unexpected help %q", reply)
	}
}

func TestBot_StoreFaultSurfaces(t *testing.T) {
	records := newMockRecordRepo()
	fault := errors.New("db down")
	records.failAll = fault
	bot, _, _ := newTestBot(records)

	reply, err := bot.HandleMessage(context.Background(), "u1", "/list")
	if !errors.Is(err, fault) {
		t.Fatalf("expected store fault, got %v", err)
	}
	if reply != internalReply {
		t.Errorf("unexpected reply %q", reply)
	}
}
