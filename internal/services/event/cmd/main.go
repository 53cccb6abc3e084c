package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/config"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/services/event"
	"github.com/LeonardoBeccarini/irrigation_audit/pkg/dedup"
	"github.com/LeonardoBeccarini/irrigation_audit/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if os.Getenv("HOSTNAME") == "" {
		cfg.Rabbit.ClientID = "irrigation-recorder"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// InfluxDB
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(cfg.WriteBatchSize)).
		SetFlushInterval(uint(cfg.WriteFlushInterval.Milliseconds()))
	influx := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken, opts)
	defer influx.Close()
	writer := event.NewWriter(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket))
	influxOK := func() bool {
		pctx, pcancel := context.WithTimeout(ctx, time.Second)
		defer pcancel()
		ok, err := influx.Ping(pctx)
		return err == nil && ok
	}

	// MQTT
	mqttClient, err := rabbitmq.NewRabbitMQConn(&cfg.Rabbit, ctx)
	if err != nil {
		log.Fatalf("mqtt connection error: %v", err)
	}
	defer rabbitmq.CloseRabbitMQConn(mqttClient)

	// HTTP
	mux := http.NewServeMux()
	mux.Handle("/healthz", event.NewHealthHandler(mqttClient, influxOK, writer))
	mux.Handle("/readyz", event.NewReadyHandler(mqttClient, influxOK, writer, 2*time.Second))
	mux.Handle("/audits/latest", event.NewLatestHandler(influx.QueryAPI(cfg.InfluxOrg), cfg.InfluxBucket))

	hs := &http.Server{
		Addr:              ":" + cfg.RecorderPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("event: HTTP listening on :%s", cfg.RecorderPort)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// Consumer
	h := event.NewMQTTHandler(dedup.New(dedup.DefaultTTL, dedup.DefaultMax), writer.Record)
	consumer := rabbitmq.NewConsumer(mqttClient, h.Handle, event.AuditTopicPrefix+"#")
	go consumer.ConsumeMessage(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("event: shutting down...")
	cancel()

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = hs.Shutdown(shCtx)

	writer.Flush()
}
