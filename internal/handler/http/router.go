package http

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-go/internal/config"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	app config.AppConfig,
	storage config.StorageConfig,
	JWTService jwt.Service,
	m *metrics.Metrics,
	checkInHandler CheckInHandler,
	attendanceHandler AttendanceHandler,
	reconciliationHandler ReconciliationHandler,
	liveHandler LiveHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(app.Env != "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-attendance"),
		slog.String("version", "v1.0.0"),
		slog.String("env", app.Env),
	)

	origins := app.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Stored punch photos
	if prefix := strings.TrimRight(storage.BaseURL, "/"); strings.HasPrefix(prefix, "/") && prefix != "" {
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(storage.BasePath)))
		r.Get(prefix+"/*", fs.ServeHTTP)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/checkin", func(r chi.Router) {
				r.Use(middleware.RequireEmployee)
				r.Get("/status", checkInHandler.Status)
				r.Post("/", checkInHandler.Submit)
			})

			r.Route("/attendances", func(r chi.Router) {
				r.Use(middleware.RequireManager)
				r.Get("/", attendanceHandler.List)
				r.Get("/{id}", attendanceHandler.Get)
				r.Put("/{id}", attendanceHandler.Update)
			})

			r.Route("/reconciliation", func(r chi.Router) {
				r.Use(middleware.RequireManager)
				r.Post("/sync", reconciliationHandler.Sync)
				r.Post("/full", reconciliationHandler.Full)
			})
		})

		// EventSource cannot set headers, so the stream also accepts ?jwt=
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.RequireManager)
			r.Get("/live/checkins", liveHandler.CheckIns)
		})
	})
	return r
}
