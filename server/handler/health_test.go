package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/detrandix/tanks/server/handler"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodHead, http.StatusOK},
		{http.MethodPost, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.NewHealthHandler().ServeHTTP(rec, httptest.NewRequest(tt.method, "/healthz", nil))
		if rec.Code != tt.want {
			t.Errorf("%s /healthz = %d, want %d", tt.method, rec.Code, tt.want)
		}
	}
}
