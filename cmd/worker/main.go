// Worker drains the ledger event topic into Loki.
// Requires KAFKA_BROKERS and LOKI_URL; TELEMETRY_KAFKA_TOPIC and KAFKA_GROUP_ID have defaults.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"attendance-ledger/backend/internal/config"
	"attendance-ledger/backend/internal/telemetry/forward"
	"attendance-ledger/backend/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	brokers := cfg.TelemetryKafkaBrokersList()
	switch {
	case len(brokers) == 0:
		log.Fatal("worker: KAFKA_BROKERS is required")
	case cfg.LokiURL == "":
		log.Fatal("worker: LOKI_URL is required")
	}

	reader := forward.NewKafkaReader(brokers, cfg.TelemetryKafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("worker: %s/%s -> %s", cfg.TelemetryKafkaTopic, cfg.KafkaGroupID, cfg.LokiURL)
	if err := forward.New(reader, loki.NewClient(cfg.LokiURL, "attendance-ledger", nil)).Run(ctx); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
