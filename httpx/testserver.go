package httpx

import (
	"net/http"
	"net/http/httptest"
)

// TestServer is an httptest.Server for exercising handlers and upstream fakes.
type TestServer struct{ *httptest.Server }

func NewTestServer(handler http.Handler) *TestServer {
	return &TestServer{httptest.NewServer(handler)}
}

func (ts *TestServer) BaseURL() string {
	if ts == nil || ts.Server == nil {
		return ""
	}
	return ts.URL
}
