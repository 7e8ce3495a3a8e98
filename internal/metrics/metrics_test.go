package metrics

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestHandlerSummarizesObservations(t *testing.T) {
	m := New(func() int { return 3 })

	m.ObserveHTTPRequest("GET", "/api/v1/teams", 200, 0.05)
	m.ObserveHTTPRequest("POST", "/api/v1/teams", 422, 0.02)
	m.ObserveAuth(true)
	m.ObserveAuth(false)
	m.ObserveNotifySend(true)
	m.ObserveNotifySend(false)
	m.IncRateLimitRejection()

	rec := httptest.NewRecorder()
	m.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}

	var s Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}

	if s.HTTP.TotalRequests != 2 {
		t.Errorf("totalRequests = %v, want 2", s.HTTP.TotalRequests)
	}
	if s.HTTP.ErrorRate != 0.5 {
		t.Errorf("errorRate = %v, want 0.5", s.HTTP.ErrorRate)
	}
	if s.Auth.Successes != 1 || s.Auth.Failures != 1 {
		t.Errorf("auth = %+v, want one success and one failure", s.Auth)
	}
	if s.Notify.QueueDepth != 3 || s.Notify.Deliveries != 2 || s.Notify.SendErrors != 1 {
		t.Errorf("notify = %+v", s.Notify)
	}
	if s.RateLimit.Rejections != 1 {
		t.Errorf("rejections = %v, want 1", s.RateLimit.Rejections)
	}
}

func TestDBPoolCollector(t *testing.T) {
	m := New(nil)
	m.RegisterDBPoolCollector(func() (int32, int32, int32) { return 10, 7, 3 })

	rec := httptest.NewRecorder()
	m.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	var s Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if s.DB.TotalConns != 10 || s.DB.IdleConns != 7 || s.DB.AcquiredConns != 3 {
		t.Fatalf("db = %+v", s.DB)
	}
}
