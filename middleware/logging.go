package middleware

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// statusRecorder captures the response code so the completion log line
// can carry it. Handlers that never call WriteHeader implicitly send 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Logging logs one line on arrival and one on completion. Job-scoped
// routes additionally carry the job id so log queries can follow a
// single job across requests.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			traceID := GetTraceID(r.Context())
			jobID := pathJobID(r.URL.Path)

			fields := []zap.Field{
				zap.String("trace_id", traceID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			}
			if jobID != "" {
				fields = append(fields, zap.String("job_id", jobID))
			}

			logger.Info("Incoming request",
				append(fields, zap.String("remote_addr", r.RemoteAddr))...)

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			completed := []zap.Field{
				zap.String("trace_id", traceID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			}
			if jobID != "" {
				completed = append(completed, zap.String("job_id", jobID))
			}
			logger.Info("Request completed",
				append(completed,
					zap.Int("status", recorder.status),
					zap.Duration("duration", time.Since(start)),
				)...)
		})
	}
}

// pathJobID extracts the job id from job-scoped routes. Returns "" for
// every other path.
func pathJobID(path string) string {
	for _, prefix := range []string{"/status/", "/download/", "/jobs/"} {
		if id := strings.TrimPrefix(path, prefix); id != path && id != "" {
			return id
		}
	}
	return ""
}
