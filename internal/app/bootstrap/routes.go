// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	connectfeature "github.com/dalemusser/filesmanager/internal/app/features/connect"
	filesfeature "github.com/dalemusser/filesmanager/internal/app/features/files"
	healthfeature "github.com/dalemusser/filesmanager/internal/app/features/health"
	statusfeature "github.com/dalemusser/filesmanager/internal/app/features/status"
	usersfeature "github.com/dalemusser/filesmanager/internal/app/features/users"
	"github.com/dalemusser/filesmanager/internal/app/system/apicors"
	"github.com/dalemusser/filesmanager/internal/app/system/jsonutil"
	"github.com/dalemusser/filesmanager/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after Startup, so the shared services already exist.
// All routes answer JSON. Authentication is by the X-Token header, so CORS
// is permissive and there is no CSRF layer.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if svc == nil {
		svc = newServices(appCfg, deps, logger)
	}

	r := chi.NewRouter()

	// Security headers: X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	mountAPI(r, deps, svc, logger)
	return r, nil
}

// mountAPI registers the middleware and feature routes shared by
// BuildHandler and the router tests.
func mountAPI(r chi.Router, deps DBDeps, s *services, logger *zap.Logger) {
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(timeouts.Long()))

	// API CORS: any origin, X-Token allowed.
	r.Use(apicors.Middleware())

	mongoPing := func(ctx context.Context) error {
		return deps.MongoClient.Ping(ctx, nil)
	}

	// Health endpoints for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(logger,
		healthfeature.Check{Name: "mongodb", Ping: mongoPing},
		healthfeature.Check{Name: "kv", Ping: deps.KV.Ping},
	)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Service status and counters.
	statusfeature.Mount(r, &statusfeature.Handler{
		KV:     deps.KV,
		DB:     statusfeature.PingFunc(mongoPing),
		Users:  s.directory,
		Files:  s.catalog,
		Jobs:   s.runner,
		Logger: logger,
	})

	// Sessions: GET /connect (Basic auth), GET /disconnect (X-Token).
	var limiter connectfeature.Limiter
	if s.limiter != nil {
		limiter = s.limiter
	}
	connectfeature.Mount(r, connectfeature.NewHandler(s.directory, s.sessions, limiter, logger))

	r.Mount("/users", usersfeature.Routes(usersfeature.NewHandler(s.directory, logger), s.sessions, logger))
	r.Mount("/files", filesfeature.Routes(filesfeature.NewHandler(s.catalog, logger), s.sessions, logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonutil.NotFound(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonutil.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}
