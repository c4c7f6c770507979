// Package testutil holds helpers shared by tests of the HTTP debug pages.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// LoopbackAddr is a client address tsweb treats as local, so /debug/
// handlers serve it.
const LoopbackAddr = "127.0.0.1:12345"

// LoopbackRequest returns a request that appears to come from localhost.
func LoopbackRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = LoopbackAddr
	return req
}

// Serve sends a loopback request to h and fails the test unless the
// response has the wanted status.
func Serve(t *testing.T, h http.Handler, method, target string, wantStatus int) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, LoopbackRequest(method, target))
	if w.Code != wantStatus {
		t.Fatalf("%s %s: status = %d, want %d\n%s", method, target, w.Code, wantStatus, w.Body.String())
	}
	return w
}
