// README: Address suggestion handler tests.
package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/guetchou/BantuDelice-sub001/internal/http/handlers"
	"github.com/guetchou/BantuDelice-sub001/internal/maps"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

type stubSuggester struct {
	near *types.Point
}

func (s *stubSuggester) Suggest(_ context.Context, query string, near *types.Point) ([]maps.Suggestion, error) {
	s.near = near
	return []maps.Suggestion{{Name: query, Address: query + ", Brazzaville"}}, nil
}

func TestPlaceHandler_Suggest(t *testing.T) {
	s := &stubSuggester{}
	r := newEngine(testVerifier())
	r.GET("/api/places/suggest", handlers.NewPlaceHandler(s).Suggest)

	var body struct {
		Suggestions []maps.Suggestion `json:"suggestions"`
	}
	w := doRequest(r, http.MethodGet, "/api/places/suggest?q=P", nil, "alice")
	if w.Code != http.StatusOK || decode(w, &body) != nil || len(body.Suggestions) != 0 {
		t.Fatalf("short query: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/api/places/suggest?q=Poto&lat=-4.26&lng=15.24", nil, "alice")
	if w.Code != http.StatusOK || decode(w, &body) != nil || len(body.Suggestions) != 1 {
		t.Fatalf("suggest: %d %s", w.Code, w.Body.String())
	}
	if s.near == nil || s.near.Lat != -4.26 {
		t.Fatalf("bias point = %+v", s.near)
	}

	if w := doRequest(r, http.MethodGet, "/api/places/suggest?q=Poto&lat=x&lng=1", nil, "alice"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad bias = %d", w.Code)
	}
}

func TestPlaceHandler_Unavailable(t *testing.T) {
	r := newEngine(testVerifier())
	r.GET("/api/places/suggest", handlers.NewPlaceHandler(nil).Suggest)
	if w := doRequest(r, http.MethodGet, "/api/places/suggest?q=Poto", nil, "alice"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("no geocoder = %d", w.Code)
	}
}
