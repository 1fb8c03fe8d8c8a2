// Command main zeroes the streaks of users who have not posted since the
// start of yesterday. Run it once, or with -every to keep it running.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shiplog/internal/config"
	"shiplog/internal/database"
	"shiplog/internal/repository"
	"shiplog/internal/service"
)

func main() {
	every := flag.Duration("every", 0, "Repeat at this interval instead of running once")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	users := service.NewUserService(repository.NewUserRepository(db), repository.NewPostRepository(db))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := func() {
		n, err := users.ResetBrokenStreaks(ctx)
		if err != nil {
			log.Printf("Streak reset failed: %v", err)
			return
		}
		log.Printf("Reset %d broken streaks", n)
	}

	run()
	if *every <= 0 {
		return
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
