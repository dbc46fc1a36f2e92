package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/aggregator"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/api"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/billing"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/database"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/engine"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/events"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/mqtt"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/services"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/store"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/pkg/config"
)

func main() {
	log.Println("Starting EcoPlug Control Service...")

	// Load configuration
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Document store: the realtime database holding devices and limit groups
	st := newStore(cfg)

	// Control engine
	eng := engine.New(st, engine.Config{
		DevicesPath:      cfg.DevicesPath,
		GroupsPath:       cfg.GroupsPath,
		ScheduleInterval: cfg.SchedulePollInterval,
		LimitInterval:    cfg.LimitPollInterval,
	})

	// ClickHouse historian (optional; empty addr disables it)
	var db *database.ClickHouseDB
	if cfg.ClickHouseAddr != "" {
		var err error
		db, err = database.NewClickHouseDB(
			cfg.ClickHouseAddr,
			cfg.ClickHouseDB,
			cfg.ClickHouseUser,
			cfg.ClickHousePass,
		)
		if err != nil {
			log.Printf("ClickHouse unavailable, running without historian: %v", err)
			db = nil
		} else {
			defer db.Close()
			eng.SetRecorder(db)
		}
	}

	// Kafka decision ledger (optional; no brokers disables it)
	if len(cfg.KafkaBrokers) > 0 {
		ledger := events.NewLedger(cfg.KafkaBrokers, cfg.KafkaLedgerTopic)
		defer ledger.Close()
		eng.SetLedger(ledger)
		log.Printf("Decision ledger enabled on topic %s", cfg.KafkaLedgerTopic)
	}

	// MQTT: relay commands out, outlet telemetry in (optional)
	if cfg.MQTTBroker != "" {
		mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			log.Printf("MQTT unavailable, running on store writes only: %v", err)
		} else {
			defer mqttClient.Disconnect(250)

			publisher := mqtt.NewPublisher(mqttClient, mqtt.PublisherConfig{
				RelayCommandTopic: cfg.MQTTTopicRelayCommand,
			})
			eng.SetCommander(publisher)

			subscriber := mqtt.NewSubscriber(mqttClient, mqtt.SubscriberConfig{
				TelemetryTopic: cfg.MQTTTopicTelemetry,
			})
			if err := subscriber.SubscribeAll(); err != nil {
				log.Fatalf("Failed to subscribe to MQTT topics: %v", err)
			}

			// Telemetry pipeline: readings -> daily log rollups -> store
			agg := aggregator.NewTelemetry(aggregator.UnplugThresholds{
				ZeroPowerSamples: cfg.UnplugZeroSamples,
				PowerEpsilonW:    cfg.UnplugPowerEpsilon,
			})
			var historian services.Historian
			if db != nil {
				historian = db
			}
			telemetry := services.NewTelemetryService(st, agg, historian, subscriber.ReadingChan, cfg.DevicesPath)
			go telemetry.Start(ctx)
		}
	}

	// Control loop
	go eng.Run(ctx)

	// Status API
	tariff := billing.Tariff{RatePerKWh: cfg.TariffRatePerKWh, Currency: cfg.TariffCurrency}
	var usage api.UsageFn
	if db != nil {
		usage = db.DailyEnergy
	}
	h := api.NewHandlers(eng, st, tariff, usage, cfg.DevicesPath)
	router := api.NewRouter(h)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handlers.LoggingHandler(os.Stdout, router),
	}
	go func() {
		log.Printf("Status API listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	log.Println("EcoPlug Control Service is running. Press Ctrl+C to exit.")
	log.Printf("Sweep cadences: schedule=%s, limits=%s", cfg.SchedulePollInterval, cfg.LimitPollInterval)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
}

// newStore builds the configured document store backend. The in-memory
// backend exists for local runs without a realtime database.
func newStore(cfg *config.Config) store.Store {
	switch cfg.StoreBackend {
	case "memory":
		log.Println("Using in-memory document store")
		return store.NewMemory()
	default:
		log.Printf("Using realtime database at %s", cfg.RTDBURL)
		return store.NewRTDB(cfg.RTDBURL, cfg.RTDBAuth)
	}
}
