// README: Shared fixtures for handler tests.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/guetchou/BantuDelice-sub001/internal/http/middleware"
	"github.com/guetchou/BantuDelice-sub001/internal/infra"
)

// stubTokenVerifier maps bearer tokens to users so one router can serve several callers.
type stubTokenVerifier map[string]infra.Caller

func (s stubTokenVerifier) VerifyCaller(_ context.Context, raw string) (infra.Caller, error) {
	if caller, ok := s[raw]; ok {
		return caller, nil
	}
	return infra.Caller{}, errBadToken
}

type tokenError string

func (e tokenError) Error() string { return string(e) }

const errBadToken = tokenError("bad token")

func testVerifier() stubTokenVerifier {
	return stubTokenVerifier{
		"alice": {UID: "alice"},
		"bob":   {UID: "bob"},
		"drv-1": {UID: "drv-1", Role: "driver"},
		"drv-2": {UID: "drv-2", Role: "driver"},
	}
}

func newEngine(verifier infra.CallerVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(verifier))
	return r
}

func doRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}
