package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64
	UploadsTotal       atomic.Uint64
	QuestionsTotal     atomic.Uint64
	AnswersTotal       atomic.Uint64
	AnswersFailed      atomic.Uint64
	StartTime          time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

func (m *Metrics) IncrementUploads() { m.UploadsTotal.Add(1) }

func (m *Metrics) IncrementQuestions() { m.QuestionsTotal.Add(1) }

// RecordAnswers counts per-file outcomes of one question.
func (m *Metrics) RecordAnswers(ok, failed int) {
	m.AnswersTotal.Add(uint64(ok))
	m.AnswersFailed.Add(uint64(failed))
}

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]any{
		"requests_total":       m.RequestsTotal.Load(),
		"requests_in_progress": m.RequestsInProgress.Load(),
		"requests_success":     m.RequestsSuccess.Load(),
		"requests_failed":      m.RequestsFailed.Load(),
		"uploads_total":        m.UploadsTotal.Load(),
		"questions_total":      m.QuestionsTotal.Load(),
		"answers_total":        m.AnswersTotal.Load(),
		"answers_failed":       m.AnswersFailed.Load(),
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes": mem.Alloc,
			"sys_bytes":   mem.Sys,
			"num_gc":      mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsTotal.Add(1)
		m.RequestsInProgress.Add(1)
		defer m.RequestsInProgress.Add(-1)

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.RequestsSuccess.Add(1)
		} else {
			m.RequestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}
