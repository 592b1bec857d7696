package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rl1809/medkit/internal/core/domain"
	"github.com/rl1809/medkit/internal/metrics"
	"github.com/rl1809/medkit/internal/port"
)

const (
	greeting      = "Hi! I keep track of your inventory and warn you before items expire.\n"
	notFoundReply = "Record not found."
	internalReply = "Something went wrong, please try again later."
	idleReply     = "Send /add to add a record or /help to see all commands."
	unknownReply  = "Unknown command. Send /help to see all commands."
	cancelReply   = "Entry cancelled."
	noEntryReply  = "Nothing to cancel."
)

// BotService routes incoming text either to a command or to the sender's
// active add dialog, and turns failures into user-facing replies.
type BotService struct {
	commands *CommandService
	dialogs  *DialogService
	registry port.SubscriberRegistry
	logger   *slog.Logger
}

func NewBotService(commands *CommandService, dialogs *DialogService, registry port.SubscriberRegistry, logger *slog.Logger) *BotService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BotService{
		commands: commands,
		dialogs:  dialogs,
		registry: registry,
		logger:   logger,
	}
}

// HandleMessage returns the reply for one message from userID. The returned
// error is non-nil only for store faults; the reply is still safe to send.
func (b *BotService) HandleMessage(ctx context.Context, userID, text string) (string, error) {
	if b.registry.Add(userID) {
		metrics.Subscribers.Set(float64(b.registry.Len()))
		b.logger.Info("new subscriber", "user_id", userID)
	}

	cmd, ok := domain.ParseCommand(text)
	if !ok {
		reply, handled, err := b.dialogs.Handle(ctx, userID, text)
		if err == nil && !handled {
			reply = idleReply
		}
		return b.finish(userID, "text", reply, err)
	}

	var (
		reply string
		err   error
	)
	switch cmd.Verb {
	case "start":
		reply = greeting + HelpText
	case "help":
		reply = HelpText
	case "add":
		if cmd.Args != "" {
			reply, err = b.commands.AddInline(ctx, userID, cmd.Args)
		} else {
			reply, err = b.dialogs.Begin(ctx, userID)
		}
	case "list":
		reply, err = b.commands.List(ctx, userID)
	case "edit":
		reply, err = b.commands.Edit(ctx, userID, cmd.Args)
	case "delete":
		reply, err = b.commands.Delete(ctx, userID, cmd.Args)
	case "stats":
		reply, err = b.commands.Stats(ctx, userID)
	case "cancel":
		var cancelled bool
		cancelled, err = b.dialogs.Cancel(ctx, userID)
		reply = noEntryReply
		if cancelled {
			reply = cancelReply
			metrics.DialogsTotal.WithLabelValues(string(domain.StageCancelled)).Inc()
		}
	default:
		return b.finish(userID, "unknown", unknownReply, nil)
	}
	return b.finish(userID, cmd.Verb, reply, err)
}

func (b *BotService) finish(userID, verb, reply string, err error) (string, error) {
	if err == nil {
		metrics.CommandsTotal.WithLabelValues(verb, metrics.OutcomeOK).Inc()
		return reply, nil
	}

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		metrics.CommandsTotal.WithLabelValues(verb, metrics.OutcomeValidation).Inc()
		msg := "Invalid input: " + ve.Message
		if reply != "" {
			msg += "\n" + reply
		}
		return msg, nil
	case errors.Is(err, domain.ErrNotFound):
		metrics.CommandsTotal.WithLabelValues(verb, metrics.OutcomeNotFound).Inc()
		return notFoundReply, nil
	default:
		metrics.CommandsTotal.WithLabelValues(verb, metrics.OutcomeError).Inc()
		b.logger.Error("command failed", "user_id", userID, "verb", verb, "error", err)
		return internalReply, err
	}
}
