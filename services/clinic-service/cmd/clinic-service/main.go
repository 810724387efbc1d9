package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dentora/dentora/libs/config"
	"github.com/dentora/dentora/libs/db"
	"github.com/dentora/dentora/libs/httpx"
	"github.com/dentora/dentora/libs/kafkax"
	otelx "github.com/dentora/dentora/libs/otel"
	"github.com/dentora/dentora/libs/runtime"
	"github.com/dentora/dentora/services/clinic-service/internal/handlers"
	"github.com/dentora/dentora/services/clinic-service/internal/outbox"
	"github.com/dentora/dentora/services/clinic-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "clinic-service")
	port, err := config.Port("PORT", "8081")
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

	clinicRepo := storage.NewClinicRepository(pool)
	apptRepo := storage.NewAppointmentRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	clinicHandler := handlers.NewClinicHandler(clinicRepo, logger)
	scheduleHandler := handlers.NewScheduleHandler(clinicRepo, logger)
	slotsHandler := handlers.NewSlotsHandler(clinicRepo, apptRepo, logger)
	apptHandler := handlers.NewAppointmentHandler(clinicRepo, apptRepo, outboxRepo, logger)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	// Staff API; the gateway authenticates and sets X-Clinic-Id.
	mux.HandleFunc("/api/v1/clinic/profile", clinicHandler.Profile)
	mux.HandleFunc("/api/v1/clinic/services", clinicHandler.Services)
	mux.HandleFunc("/api/v1/clinic/practitioners", clinicHandler.Practitioners)
	mux.HandleFunc("/api/v1/clinic/practitioners/schedule", scheduleHandler.Schedule)
	mux.HandleFunc("/api/v1/clinic/practitioners/schedule/blocked-dates", scheduleHandler.BlockedDates)
	mux.HandleFunc("/api/v1/clinic/slots", slotsHandler.StaffSlots)
	mux.HandleFunc("/api/v1/appointments", apptHandler.List)
	mux.HandleFunc("/api/v1/appointments/cancel", apptHandler.Cancel)

	// Public booking API; anonymous, tenant comes from clinic_id.
	mux.HandleFunc("/api/v1/public/slots", slotsHandler.PublicSlots)
	mux.HandleFunc("/api/v1/public/book", apptHandler.Book)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "clinic")
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
