package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/careslot/scheduling/internal/logger"
)

func TestLoggingAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New("info", &buf)

	handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/api/v1/availabilities", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusTeapot)
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("response missing generated request id")
	}

	line := buf.String()
	if !strings.Contains(line, "status=418") {
		t.Errorf("log line missing captured status: %s", line)
	}
	if !strings.Contains(line, "request_id=") {
		t.Errorf("log line missing request id: %s", line)
	}
}

func TestLoggingHonorsIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New("info", &buf)

	handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "booking-flow-7f3a")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != "booking-flow-7f3a" {
		t.Errorf("request id = %q, want the caller's id echoed", got)
	}
	if !strings.Contains(buf.String(), "request_id=booking-flow-7f3a") {
		t.Errorf("log line missing the caller's request id: %s", buf.String())
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New("error", &buf)

	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest("POST", "/api/v1/availabilities", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(buf.String(), "Panic recovered") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}
