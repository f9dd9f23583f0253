package middleware

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"admin-console/internal/service"
)

// MaxBodyCaptureBytes bounds how much of a request or response body is
// retained for the audit record. Bytes beyond the cap are simply not
// stored; the live stream itself is untouched.
const MaxBodyCaptureBytes = 4096

const requestIDHeader = "X-Request-ID"

// actorScope is installed in the context by the audit middleware before
// the rest of the pipeline runs. The auth middleware runs deeper in the
// chain, so its context values are invisible out here once the handler
// returns; it records the resolved actor into this shared scope instead.
type actorScope struct {
	mu     sync.Mutex
	userID string
}

const (
	actorScopeContextKey contextKey = "actor_scope"
	requestIDContextKey  contextKey = "request_id"
)

// WithRequestID attaches the correlation id the audit middleware assigned
// to the request. Inner stages read it back for operator-facing error
// logs so an audit entry and a log line can be joined.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

func recordActor(ctx context.Context, userID string) {
	scope, ok := ctx.Value(actorScopeContextKey).(*actorScope)
	if !ok {
		return
	}
	scope.mu.Lock()
	scope.userID = userID
	scope.mu.Unlock()
}

func (s *actorScope) actor() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return nil
	}
	id := s.userID
	return &id
}

// AuditMiddleware wraps the whole downstream pipeline, so it observes
// authenticated and rejected requests alike. It must never alter response
// content or block the response on persistence.
type AuditMiddleware struct {
	audits *service.AuditService
}

func NewAuditMiddleware(audits *service.AuditService) *AuditMiddleware {
	return &AuditMiddleware{audits: audits}
}

func (m *AuditMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set(requestIDHeader, requestID)

		started := time.Now()
		scope := &actorScope{}
		ctx := context.WithValue(r.Context(), actorScopeContextKey, scope)
		ctx = WithRequestID(ctx, requestID)

		requestBody := captureRequestBody(r)
		wrapped := &captureWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		elapsed := time.Since(started)

		entry := service.EntryStart(requestID, r.Method, r.URL.Path, clientIP(r), r.UserAgent())
		entry.StatusCode = wrapped.status
		entry.ResponseTimeMs = elapsed.Milliseconds()
		entry.UserID = scope.actor()
		entry.RequestBody = requestBody
		entry.ResponseBody = wrapped.body.String()
		if wrapped.status >= 400 {
			entry.ErrorMessage = fmt.Sprintf("error status: %d", wrapped.status)
		}

		m.audits.Record(entry)

		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", elapsed.Milliseconds(),
			"client_ip", entry.IPAddress,
		}
		if entry.UserID != nil {
			attrs = append(attrs, "user_id", *entry.UserID)
		}

		switch {
		case wrapped.status >= 500:
			slog.Error("request", attrs...)
		case wrapped.status >= 400:
			slog.Warn("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	})
}

// captureRequestBody copies the first MaxBodyCaptureBytes of the body and
// splices the copy back in front of the unread remainder, so handlers see
// the byte-exact original stream.
func captureRequestBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	buf := make([]byte, MaxBodyCaptureBytes)
	n, err := io.ReadFull(r.Body, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		// Leave whatever was read ahead of the broken remainder; the
		// handler will observe the same read error we did.
		r.Body = replayBody{
			Reader: io.MultiReader(bytes.NewReader(buf[:n]), errReader{err}),
			closer: r.Body,
		}
		return string(buf[:n])
	}

	r.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(buf[:n]), r.Body),
		closer: r.Body,
	}
	return string(buf[:n])
}

type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b replayBody) Close() error { return b.closer.Close() }

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// captureWriter records the status code and a bounded copy of the
// response body while passing every byte through unchanged.
type captureWriter struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (cw *captureWriter) WriteHeader(statusCode int) {
	if cw.wroteHeader {
		return
	}
	cw.status = statusCode
	cw.wroteHeader = true
	cw.ResponseWriter.WriteHeader(statusCode)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	if remaining := MaxBodyCaptureBytes - cw.body.Len(); remaining > 0 {
		if len(b) <= remaining {
			cw.body.Write(b)
		} else {
			cw.body.Write(b[:remaining])
		}
	}
	return cw.ResponseWriter.Write(b)
}

func (cw *captureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
