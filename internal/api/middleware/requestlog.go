package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RequestLog writes one access log line per request.
type RequestLog struct {
	Logger *zap.Logger
	Next   http.Handler
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (m RequestLog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.Next == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	log := m.Logger
	if log == nil {
		log = zap.NewNop()
	}

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}

	m.Next.ServeHTTP(rec, r)

	status := rec.status
	if status == 0 {
		status = http.StatusOK
	}

	log.Info("http request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Int("bytes", rec.bytes),
		zap.Duration("duration", time.Since(start)),
	)
}
