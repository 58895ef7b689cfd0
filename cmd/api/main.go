package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cmlabs-hris/hris-attendance-go/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-attendance-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/kafka"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/source"
	attendanceService "github.com/cmlabs-hris/hris-attendance-go/internal/service/attendance"
	checkinService "github.com/cmlabs-hris/hris-attendance-go/internal/service/checkin"
	"github.com/cmlabs-hris/hris-attendance-go/internal/service/file"
	notificationService "github.com/cmlabs-hris/hris-attendance-go/internal/service/notification"
	reconciliationService "github.com/cmlabs-hris/hris-attendance-go/internal/service/reconciliation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	setupLogger(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatal("Error connecting to database: ", err)
	}
	defer db.Close()

	sourceDB, err := database.NewPostgreSQLDB(ctx, cfg.SourceDatabase.URL, database.ReadOnly(), database.WithPoolSize(5, 1))
	if err != nil {
		log.Fatal("Error connecting to time-clock database: ", err)
	}
	defer sourceDB.Close()

	location := cfg.Location()
	m := metrics.New()

	policy, err := config.LoadPolicy(cfg.Reconciliation.PolicyFile)
	if err != nil {
		log.Fatal("Failed to load reconciliation policy: ", err)
	}

	punchRepo := postgresql.NewPunchRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	referenceRepo := postgresql.NewReferenceRepository(db)
	siteRepo := postgresql.NewSiteRepository(db)
	sourceRepo := source.NewTimeClockRepository(sourceDB)

	var locker lock.Locker
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL: ", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal("Error connecting to redis: ", err)
		}
		locker = lock.NewRedisLocker(client, cfg.Redis.LockTTL, cfg.Redis.LockWait)
		slog.Info("Using redis check-in lock")
	} else {
		locker = lock.NewKeyedMutex(cfg.Redis.LockWait)
		slog.Warn("REDIS_URL not set, check-in lock is process-local")
	}

	producer, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		log.Fatal("Failed to initialize kafka producer: ", err)
	}
	var sink notificationService.Sink
	if producer != nil {
		defer producer.Close()
		sink = notificationService.NewKafkaSink(producer)
	} else {
		slog.Warn("KAFKA_BROKERS not set, check-in events are only logged")
		sink = notificationService.NewLogSink()
	}
	hub := sse.NewHub(32)
	publisher := notificationService.NewDispatcher(
		notificationService.NewMultiSink(sink, notificationService.NewHubSink(hub)),
		notificationService.Config{},
	)
	defer publisher.Close()

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
	if err != nil {
		log.Fatal("Failed to initialize local storage: ", err)
	}
	fileService := file.NewFileService(fileStorage)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessTTL)

	checkIn := checkinService.NewCheckInService(
		punchRepo,
		employeeRepo,
		siteRepo,
		locker,
		fileService,
		publisher,
		m,
		checkinService.GeofenceConfig{
			DefaultRadiusMeters: cfg.Geofence.DefaultRadiusMeters,
			Enforce:             cfg.Geofence.Enforce,
		},
		checkinService.WithLocation(location),
	)
	attendanceSvc := attendanceService.NewAttendanceService(attendanceRepo)

	runner := reconciliationService.NewRunner(
		reconciliationService.NewIngestor(sourceRepo, punchRepo, m),
		reconciliationService.NewEngine(sourceRepo, punchRepo, attendanceRepo, policy, m),
		reconciliationService.NewActivator(employeeRepo),
		employeeRepo,
		referenceRepo,
		m,
		reconciliationService.WithLocation(location),
		reconciliationService.WithErrorSampleSize(cfg.Reconciliation.ErrorSampleSize),
	)

	var scheduler *cron.Scheduler
	if cfg.Reconciliation.SchedulerOn {
		scheduler = cron.NewScheduler()
		cron.NewReconciliationJobs(
			runner,
			cfg.Reconciliation.SyncWindowDays,
			cfg.Reconciliation.LookbackDays,
			cfg.Reconciliation.SyncInterval,
			cfg.Reconciliation.FullInterval,
			location,
		).RegisterJobs(scheduler)
		scheduler.Start()
	}

	router := appHTTP.NewRouter(
		cfg.App,
		cfg.Storage,
		JWTService,
		m,
		appHTTP.NewCheckInHandler(checkIn),
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewReconciliationHandler(runner, cfg.Reconciliation.SyncWindowDays, cfg.Reconciliation.LookbackDays, location),
		appHTTP.NewLiveHandler(hub),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// live streams end with the process context
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}
}

func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
