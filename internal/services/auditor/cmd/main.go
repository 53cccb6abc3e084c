package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"

	grpcapi "github.com/LeonardoBeccarini/irrigation_audit/internal/api/grpc"
	httpapi "github.com/LeonardoBeccarini/irrigation_audit/internal/api/http"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/config"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/crops"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/services/auditor"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/weather"
	"github.com/LeonardoBeccarini/irrigation_audit/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog, err := crops.Load(cfg.CropsPath)
	if err != nil {
		log.Fatalf("crop catalog: %v", err)
	}
	fields, err := auditor.LoadFields(cfg.FieldsPath)
	if err != nil {
		log.Fatalf("fields: %v", err)
	}

	wopts := weather.DefaultOpenMeteoOptions()
	wopts.BaseURL = cfg.OpenMeteoURL
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	var provider weather.Provider = weather.NewOpenMeteo(httpClient, wopts)
	if cfg.OWMAPIKey != "" {
		provider = weather.NewFallback(provider, weather.NewOpenWeatherMap(httpClient, cfg.OWMAPIKey, ""))
	}

	// Audits still run without a broker; they are just not published.
	var publisher rabbitmq.IPublisher
	mqClient, err := rabbitmq.NewRabbitMQConn(&cfg.Rabbit, ctx)
	if err != nil {
		log.Printf("mqtt: broker unavailable, audit events will not be published: %v", err)
	} else {
		publisher = rabbitmq.NewPublisher(mqClient, auditor.DefaultTopicTmpl)
		defer publisher.Close()
	}

	svc, err := auditor.NewService(catalog, fields, provider, publisher,
		auditor.NewMetrics(prometheus.DefaultRegisterer),
		auditor.Options{Params: cfg.Params, PastDays: cfg.PastDays, TopicTmpl: cfg.TopicTmpl, Location: cfg.Location})
	if err != nil {
		log.Fatalf("auditor init: %v", err)
	}

	sched := auditor.NewScheduler(svc, cfg.Schedule, cfg.Location)
	if err := sched.Start(); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(svc, prometheus.DefaultGatherer, true)
	go func() {
		log.Printf("auditor: HTTP listening on :%s (%d fields, %d crops)", cfg.Port, len(fields.All()), len(catalog.Names()))
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("http server error: %v", err)
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatalf("listen :%s: %v", cfg.GRPCPort, err)
	}
	grpcServer := grpc.NewServer()
	grpcapi.Register(grpcServer, grpcapi.NewServer(svc))
	go func() {
		log.Printf("auditor: gRPC %s on :%s", grpcapi.ServiceName, cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("gRPC serve error: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	log.Println("auditor: shutting down...")
	cancel()

	grpcServer.GracefulStop()
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("auditor: http shutdown: %v", err)
	}
}
