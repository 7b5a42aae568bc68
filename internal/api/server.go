package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mtlprog/positions/internal/metrics"
	"github.com/mtlprog/positions/internal/portfolio"
	"github.com/mtlprog/positions/internal/snapshot"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, portfolios *portfolio.Service, snapshots *snapshot.Service, m *metrics.Metrics, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(portfolios, snapshots, m, adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewRouter builds the route table. Snapshot routes are only mounted when snapshots is non-nil.
func NewRouter(portfolios *portfolio.Service, snapshots *snapshot.Service, m *metrics.Metrics, adminAPIKey string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", m.Handler())

	positionsHandler := NewPositionsHandler(portfolios)
	mux.HandleFunc("GET /api/v1/positions/{address}", positionsHandler.GetPositions)

	if snapshots != nil {
		handler := NewHandler(snapshots, portfolios.Currency())
		mux.HandleFunc("GET /api/v1/positions/{address}/snapshots/latest", handler.GetLatestSnapshot)
		mux.HandleFunc("GET /api/v1/positions/{address}/snapshots/{date}", handler.GetSnapshotByDate)
		mux.HandleFunc("GET /api/v1/positions/{address}/snapshots", handler.ListSnapshots)

		generateHandler := http.HandlerFunc(handler.GenerateSnapshot)
		if adminAPIKey != "" {
			mux.Handle("POST /api/v1/positions/{address}/snapshots/generate", requireAuth(adminAPIKey, generateHandler))
		} else {
			mux.Handle("POST /api/v1/positions/{address}/snapshots/generate", generateHandler)
		}
	}

	return withRequestID(mux)
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestID propagates an incoming X-Request-ID or assigns a new one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestID returns the correlation id stored by the request-id middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
