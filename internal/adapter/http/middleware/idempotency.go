package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks a response served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"
)

// storedResponse is what is kept under an idempotency key.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyMiddleware makes POST requests carrying an Idempotency-Key
// header run at most once per caller and key. Every completed response is
// stored and replayed, including errors, because a failed acquisition may
// already have rented a number. A retry after an error needs a new key.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, logger zerolog.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl, logger: logger}
}

// Wrap wraps an http.Handler with idempotency checking. It must run after
// authentication so keys are scoped to the caller.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > 255 {
			writeError(w, http.StatusBadRequest, "invalid_request", "idempotency key too long")
			return
		}

		scoped := scopeKey(r, key)

		reserved, stored, err := m.store.Reserve(r.Context(), scoped, m.ttl)
		if err != nil {
			m.logger.Error().Err(err).Str("path", r.URL.Path).Msg("idempotency reservation failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "idempotency check failed")
			return
		}

		if !reserved {
			if stored == nil {
				writeError(w, http.StatusConflict, "request_in_progress", "a request with this idempotency key is in progress")
				return
			}
			m.replay(w, stored)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}

		completed := false
		defer func() {
			if !completed {
				// The handler panicked; free the key so the request can be retried.
				if err := m.store.Release(r.Context(), scoped); err != nil {
					m.logger.Warn().Err(err).Msg("failed to release idempotency key")
				}
			}
		}()

		next.ServeHTTP(recorder, r)
		completed = true

		payload, err := json.Marshal(storedResponse{
			Status:      recorder.statusCode,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if err == nil {
			err = m.store.Complete(r.Context(), scoped, payload, m.ttl)
		}
		if err != nil {
			m.logger.Error().Err(err).Str("path", r.URL.Path).Msg("failed to store idempotent response")
			if err := m.store.Release(r.Context(), scoped); err != nil {
				m.logger.Warn().Err(err).Msg("failed to release idempotency key")
			}
		}
	})
}

func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, stored []byte) {
	var resp storedResponse
	if err := json.Unmarshal(stored, &resp); err != nil {
		m.logger.Error().Err(err).Msg("corrupt idempotent response")
		writeError(w, http.StatusInternalServerError, "internal_error", "idempotency check failed")
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set(IdempotencyReplayHeader, "true")
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// scopeKey namespaces a client key by caller and route so two accounts
// cannot collide on the same key.
func scopeKey(r *http.Request, key string) string {
	owner := "anonymous"
	if p, ok := domain.PrincipalFromContext(r.Context()); ok {
		owner = p.AccountID
		if p.IsDelegated() {
			owner = p.Delegation.OnBehalfOfAdmin + ">" + p.AccountID
		}
	}
	return owner + ":" + r.Method + ":" + r.URL.Path + ":" + key
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
