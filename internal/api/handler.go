// Package api exposes the dashboard over HTTP: health and readiness,
// connection details, the menu dashboard and explorer, ad-hoc SQL, and
// the embedded UI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/menudash/menudash/internal/config"
	"github.com/menudash/menudash/internal/observability"
	"github.com/menudash/menudash/internal/storage"
	"github.com/menudash/menudash/internal/warehouse"
)

type ReadinessCheck func(ctx context.Context) error

// QueryExecutor is the cached query path. The bool reports a cache hit.
type QueryExecutor interface {
	Execute(ctx context.Context, sqlText string, rowLimit int) (warehouse.ResultSet, bool, error)
}

// ConnectionSource hands out masked connection details and verifies the
// warehouse session.
type ConnectionSource interface {
	Info() warehouse.ConnectionInfo
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Connection        ConnectionSource
	Executor          QueryExecutor
	Archive           storage.ObjectStore
	DefaultRowLimit   int
	Now               func() time.Time
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("GET /v1/connection", func(w http.ResponseWriter, r *http.Request) {
		handleConnection(deps, w, r)
	})
	protected.HandleFunc("GET /v1/dashboard", func(w http.ResponseWriter, r *http.Request) {
		handleDashboard(deps, w, r)
	})
	protected.HandleFunc("GET /v1/menu", func(w http.ResponseWriter, r *http.Request) {
		handleMenu(deps, w, r)
	})
	protected.HandleFunc("GET /v1/menu/export", func(w http.ResponseWriter, r *http.Request) {
		handleMenuExport(deps, w, r)
	})
	protected.HandleFunc("GET /v1/exports/{key...}", func(w http.ResponseWriter, r *http.Request) {
		handleExportDownload(deps, w, r)
	})
	protected.HandleFunc("DELETE /v1/exports/{key...}", func(w http.ResponseWriter, r *http.Request) {
		handleExportDelete(deps, w, r)
	})
	protected.HandleFunc("POST /v1/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/query/export", func(w http.ResponseWriter, r *http.Request) {
		handleQueryExport(deps, w, r)
	})
	protected.HandleFunc("GET /v1/query/examples", func(w http.ResponseWriter, r *http.Request) {
		handleQueryExamples(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("GET /v1/connection", protectedHandler)
	mux.Handle("GET /v1/dashboard", protectedHandler)
	mux.Handle("GET /v1/menu", protectedHandler)
	mux.Handle("GET /v1/menu/export", protectedHandler)
	mux.Handle("GET /v1/exports/{key...}", protectedHandler)
	mux.Handle("DELETE /v1/exports/{key...}", protectedHandler)
	mux.Handle("POST /v1/query", protectedHandler)
	mux.Handle("POST /v1/query/export", protectedHandler)
	mux.Handle("GET /v1/query/examples", protectedHandler)
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckWarehouse reports ready once the warehouse session can be
// established and answers a ping.
func CheckWarehouse(conn ConnectionSource) ReadinessCheck {
	return func(ctx context.Context) error {
		if conn == nil {
			return errors.New("warehouse connection is not configured")
		}
		return conn.Ping(ctx)
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}

// writeQueryError maps the two failure kinds: a connection failure is a
// 503 the client may retry once the warehouse is reachable, anything
// else is the driver rejecting the statement.
func writeQueryError(ctx context.Context, w http.ResponseWriter, err error) {
	var connErr *warehouse.ConnectionError
	if errors.As(err, &connErr) {
		writeError(ctx, w, http.StatusServiceUnavailable, "CONNECTION_FAILED", connErr.Error(), true, nil)
		return
	}
	writeError(ctx, w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", err.Error(), false, nil)
}
