package match

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/scuffedaim/matchview/app/eventbus"
	matchservice "github.com/scuffedaim/matchview/app/modules/match/application"
	"github.com/scuffedaim/matchview/app/observability"
	"github.com/scuffedaim/matchview/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/scores/match/42", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":[
			{"id":1,"map_md5":"aaa","score":900000,"acc":97.1,"max_combo":300,"mods":24,"userid":7,"play_time":"2026-03-14T18:00:00"},
			{"id":2,"map_md5":"aaa","score":950000,"acc":98.2,"max_combo":310,"mods":0,"userid":8,"play_time":"2026-03-14T18:00:30"},
			{"id":3,"map_md5":"bbb","score":800000,"acc":95.0,"max_combo":200,"mods":64,"userid":7,"play_time":"2026-03-14T18:05:00"}
		]}`))
	})
	mux.HandleFunc("/v1/get_map_info", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("md5") != "aaa" {
			_, _ = w.Write([]byte(`{"status":"success","map":null}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","map":{"md5":"aaa","id":11,"set_id":100,"artist":"Camellia","title":"Exit This Earth's Atomosphere","version":"Evolution","total_length":240}}`))
	})
	mux.HandleFunc("/v2/players/7", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":7,"name":"mrekk","country":"au"}}`))
	})
	mux.HandleFunc("/v2/players/8", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestModule(t *testing.T, upstreamURL string) (*Module, chi.Router) {
	t.Helper()
	cfg := config.Defaults()
	cfg.API.BaseURL = upstreamURL
	cfg.API.RequestsPerSecond = 0
	cfg.HTTP.RateLimit = 0

	bus, err := eventbus.NewEventBus("", observability.NewNoop().Provider.Logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	router := chi.NewRouter()
	m, err := NewMatchModule(context.Background(), &cfg, observability.NewNoop(), bus, router, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, router
}

func TestMatchModule_ServesRoundsFromUpstream(t *testing.T) {
	_, router := newTestModule(t, fakeUpstream(t).URL)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/match/42/rounds", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var view matchservice.MatchView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))

	require.Len(t, view.Rounds, 2)
	assert.Equal(t, "Camellia - Exit This Earth's Atomosphere [Evolution]", view.Rounds[0].Title)
	assert.Equal(t, "https://assets.ppy.sh/beatmaps/100/covers/cover.jpg", view.Rounds[0].CoverURL)
	require.Len(t, view.Rounds[0].Scores, 2)
	assert.Equal(t, "mrekk", view.Rounds[0].Scores[0].PlayerName)
	assert.Equal(t, []string{"HD", "HR"}, view.Rounds[0].Scores[0].Mods)
	assert.Equal(t, "Unknown Player", view.Rounds[0].Scores[1].PlayerName)
	assert.Equal(t, "Map #2", view.Rounds[1].Title)
	assert.Equal(t, []string{"DT"}, view.Rounds[1].Scores[0].Mods)
}

func TestMatchModule_UnknownMatchIsNotFound(t *testing.T) {
	_, router := newTestModule(t, fakeUpstream(t).URL)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/match/999", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMatchModule_RunStopsOnClose(t *testing.T) {
	m, _ := newTestModule(t, fakeUpstream(t).URL)

	var wg sync.WaitGroup
	wg.Add(1)
	go m.Run(context.Background(), &wg)

	// Run installs its cancel func asynchronously
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.cancelFunc != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Close())

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
