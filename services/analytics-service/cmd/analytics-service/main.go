package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dentora/dentora/libs/config"
	"github.com/dentora/dentora/libs/db"
	"github.com/dentora/dentora/libs/httpx"
	"github.com/dentora/dentora/libs/kafkax"
	otelx "github.com/dentora/dentora/libs/otel"
	"github.com/dentora/dentora/libs/runtime"
	"github.com/dentora/dentora/services/analytics-service/internal/consumer"
	"github.com/dentora/dentora/services/analytics-service/internal/handlers"
	"github.com/dentora/dentora/services/analytics-service/internal/inbox"
	"github.com/dentora/dentora/services/analytics-service/internal/stats"
)

func main() {
	service := config.String("SERVICE_NAME", "analytics-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	statsRepo := stats.NewRepository(pool)

	handleAppointmentEvent := func(ctx context.Context, msg kafka.Message, booked, cancelled int) error {
		var payload struct {
			AppointmentID string `json:"appointment_id"`
			ClinicID      string `json:"clinic_id"`
			StartTime     string `json:"start_time"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid appointment payload", "err", err)
			return nil
		}
		if payload.AppointmentID == "" || payload.ClinicID == "" || payload.StartTime == "" {
			logger.Error("missing appointment fields")
			return nil
		}
		startTime, err := time.Parse(time.RFC3339, payload.StartTime)
		if err != nil {
			logger.Error("invalid start_time", "err", err)
			return nil
		}

		meta := kafkax.ExtractEventMeta(msg)
		if err := statsRepo.RecordAppointmentEvent(ctx, meta.EventID, meta.EventType, payload.ClinicID, payload.AppointmentID, startTime, booked, cancelled); err != nil {
			logger.Error("failed to record appointment event", "err", err)
			return err
		}
		logger.Info("appointment event recorded", "appointment_id", payload.AppointmentID, "clinic_id", payload.ClinicID, "event_type", meta.EventType)
		return nil
	}

	bookedConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "analytics-service"),
		Topic:   "clinic.appointment.booked.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		return handleAppointmentEvent(ctx, msg, 1, 0)
	})
	go bookedConsumer.Run(ctx)

	cancelledConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "analytics-service"),
		Topic:   "clinic.appointment.cancelled.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		return handleAppointmentEvent(ctx, msg, 0, 1)
	})
	go cancelledConsumer.Run(ctx)

	analyticsHandler := handlers.NewAnalyticsHandler(statsRepo, logger)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/analytics/daily", analyticsHandler.Daily)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "analytics")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
