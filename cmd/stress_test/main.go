package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/medkit/internal/adapter/storage"
	"github.com/rl1809/medkit/internal/core/domain"
	"github.com/rl1809/medkit/internal/core/service"
)

func main() {
	users := flag.Int("users", 50, "concurrent users running the add dialog")
	dbPath := flag.String("db", "", "sqlite file (defaults to a temp file)")
	flag.Parse()

	ctx := context.Background()

	path := *dbPath
	if path == "" {
		dir, err := os.MkdirTemp("", "medkit-stress")
		if err != nil {
			log.Fatalf("failed to create temp dir: %v", err)
		}
		defer os.RemoveAll(dir)
		path = filepath.Join(dir, "stress.db")
	}

	store, err := storage.OpenSQLite(path)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	sessions := storage.NewMemorySessionStore(time.Hour, nil)
	registry := storage.NewSubscriberSet()
	bot := service.NewBotService(
		service.NewCommandService(store, true, nil),
		service.NewDialogService(store, sessions, true, nil),
		registry,
		nil,
	)

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Each user walks the full dialog, with one rejected quantity on the way
	var wg sync.WaitGroup
	start := time.Now()
	expires := domain.FormatDate(time.Now().AddDate(0, 0, 3))

	for i := 0; i < *users; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			user := fmt.Sprintf("user-%d", id)
			turns := []string{"/start", "/add", "item-" + user, "10mg", "ten", "3", expires}
			for _, turn := range turns {
				if _, err := bot.HandleMessage(ctx, user, turn); err != nil {
					failCount.Add(1)
					return
				}
			}
			successCount.Add(1)
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	records, err := store.ListRecords(ctx, domain.RecordFilter{})
	if err != nil {
		log.Fatalf("failed to list records: %v", err)
	}

	mixed := 0
	for _, r := range records {
		if r.Name != "item-"+r.OwnerID || r.Quantity != 3 {
			mixed++
		}
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Users:            %d\n", *users)
	fmt.Printf("Completed:        %d\n", successCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Records:          %d\n", len(records))
	fmt.Printf("Subscribers:      %d\n", registry.Len())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if len(records) == *users && mixed == 0 {
		fmt.Printf("PASS: %d isolated dialogs committed one record each\n", *users)
	} else {
		fmt.Printf("FAIL: expected %d clean records, got %d (%d mixed)\n", *users, len(records), mixed)
	}

	scanner := service.NewScannerService(store, nil, domain.DefaultLookAheadDays, nil, nil)
	digest, err := scanner.Digest(ctx, time.Now())
	if err != nil {
		log.Fatalf("failed to build digest: %v", err)
	}
	if len(digest.Entries) == *users {
		fmt.Println("PASS: digest lists every record")
	} else {
		fmt.Printf("FAIL: expected %d digest entries, got %d\n", *users, len(digest.Entries))
	}
}
