package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"doc-domains-be/internal/config"
	"doc-domains-be/pkg/events"
	pktNats "doc-domains-be/pkg/nats"

	"github.com/fatih/color"
)

// Tails the domain lifecycle stream. Useful when debugging ingestion from a
// second terminal.
func main() {
	cfg := config.Load()

	subscriber, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Unable to connect to NATS: %v", err)
	}
	defer subscriber.Close()

	err = subscriber.Subscribe("domains.>", "event-tail", func(_ context.Context, event events.Event) error {
		payload, _ := json.Marshal(event.Payload())
		color.Cyan("%s %s", event.EventType(), payload)
		return nil
	})
	if err != nil {
		log.Fatalf("Subscribe failed: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
