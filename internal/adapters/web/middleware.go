package web

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-ledger/internal/idempotency"
	"inventory-ledger/internal/logging"
)

type contextKey string

const requestIDKey contextKey = "request_id"

var validRequestID = regexp.MustCompile(`^[a-zA-Z0-9\-]{1,64}$`)

// requestIDFromContext returns the request ID from ctx, or empty string.
func requestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// RequestID injects a unique X-Request-ID header into each request and its context.
// Caller-supplied IDs are accepted only if they are safe alphanumeric/hyphen strings;
// anything else gets a fresh server-generated UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger logs method, path, status, and duration for each request.
func Logger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.WithFields(logrus.Fields{
				"request_id": requestIDFromContext(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start).String(),
			}).Info("request")
		})
	}
}

// Recoverer catches panics, logs them, and returns HTTP 500.
func Recoverer(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					logger.WithFields(logrus.Fields{
						"request_id": requestIDFromContext(r.Context()),
						"path":       r.URL.Path,
						"panic":      rv,
					}).Error("panic recovered")
					writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS adds CORS headers only when origins is non-empty and the request origin is in it.
// An empty list disables CORS entirely.
func CORS(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && slices.Contains(origins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, Idempotency-Key")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestBodyLimit returns a middleware that caps the request body at maxBytes.
func RequestBodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// IdempotencyKeyHeader names the header clients use to make a POST safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// Idempotency replays the stored response for a repeated Idempotency-Key instead of
// running the handler again. Concurrent requests with the same key get 409, and a key
// reused for a different method, path or body gets 422. Server errors are not stored so
// the client can retry them.
func Idempotency(store idempotency.Store, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if r.Method != http.MethodPost || key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if !validRequestID.MatchString(key) {
				writeError(w, r, "invalid Idempotency-Key", "BAD_REQUEST", http.StatusBadRequest)
				return
			}

			ctx := r.Context()
			body, err := io.ReadAll(r.Body)
			if err != nil {
				var maxBytesErr *http.MaxBytesError
				if errors.As(err, &maxBytesErr) {
					writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
					return
				}
				writeError(w, r, "failed to read request body", "BAD_REQUEST", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := requestFingerprint(r.Method, r.URL.Path, body)
			if replayed := replay(w, r, store, logger, key, fingerprint); replayed {
				return
			}

			release, err := store.Acquire(ctx, key)
			if errors.Is(err, idempotency.ErrInFlight) {
				writeError(w, r, "a request with this Idempotency-Key is in progress", "IN_FLIGHT", http.StatusConflict)
				return
			}
			if err != nil {
				logging.LogError(logger, "web", "Idempotency", "acquire key", logrus.Fields{"key": key}, err)
				writeError(w, r, "idempotency store unavailable", "INTERNAL_ERROR", http.StatusServiceUnavailable)
				return
			}
			defer release(context.WithoutCancel(ctx))

			// Another request may have finished between the first lookup and the lock.
			if replayed := replay(w, r, store, logger, key, fingerprint); replayed {
				return
			}

			rec := &responseRecorder{statusRecorder: statusRecorder{ResponseWriter: w, status: http.StatusOK}}
			next.ServeHTTP(rec, r)
			if rec.status >= http.StatusInternalServerError {
				return
			}
			resp := idempotency.Response{
				Fingerprint: fingerprint,
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}
			if err := store.Put(context.WithoutCancel(ctx), key, resp); err != nil {
				logging.LogError(logger, "web", "Idempotency", "store response", logrus.Fields{"key": key}, err)
			}
		})
	}
}

// requestFingerprint identifies a request by method, path and a SHA-256 of its body.
func requestFingerprint(method, path string, body []byte) string {
	sum := sha256.Sum256(body)
	return method + " " + path + " " + hex.EncodeToString(sum[:])
}

// replay writes the stored response for key if there is one and reports whether it did.
func replay(w http.ResponseWriter, r *http.Request, store idempotency.Store, logger *logrus.Logger, key, fingerprint string) bool {
	stored, err := store.Get(r.Context(), key)
	if err != nil {
		logging.LogError(logger, "web", "Idempotency", "lookup key", logrus.Fields{"key": key}, err)
		writeError(w, r, "idempotency store unavailable", "INTERNAL_ERROR", http.StatusServiceUnavailable)
		return true
	}
	if stored == nil {
		return false
	}
	if stored.Fingerprint != fingerprint {
		writeError(w, r, "Idempotency-Key was used for a different request", "IDEMPOTENCY_KEY_REUSED", http.StatusUnprocessableEntity)
		return true
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
	return true
}

// statusRecorder wraps ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// responseRecorder also keeps a copy of the body.
type responseRecorder struct {
	statusRecorder
	body bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
