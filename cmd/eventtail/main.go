package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ai-learning-assistant-be/internal/config"
	"ai-learning-assistant-be/pkg/events"
	pktNats "ai-learning-assistant-be/pkg/nats"

	"github.com/fatih/color"
)

// Prints session events mirrored to NATS, optionally for one session only.
func main() {
	sessionFilter := flag.String("session", "", "only print events of this session id")
	flag.Parse()

	cfg := config.Load()
	url := cfg.App.NatsURL
	if url == "" {
		color.Red("NATS_URL is not set")
		os.Exit(1)
	}

	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sub.Subscribe(ctx, pktNats.SubjectPrefix+">", "", func(ctx context.Context, event events.BaseEvent) error {
		sessionID, _ := event.Data["session_id"].(string)
		if *sessionFilter != "" && sessionID != *sessionFilter {
			return nil
		}
		color.Yellow("%s %s seq=%v", event.OccurredAt.Format("15:04:05.000"), event.Type, event.Data["seq"])
		if turn, ok := event.Data["turn"].(map[string]interface{}); ok {
			color.Green("  [%v] %v", turn["role"], turn["content"])
		}
		if lastErr, ok := event.Data["last_error"].(string); ok && lastErr != "" {
			color.Red("  %s", lastErr)
		}
		return nil
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}

	color.Cyan("Listening on %s (Ctrl+C to stop)", url)
	<-ctx.Done()
}
