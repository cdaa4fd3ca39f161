package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache is an in-process Cache for tests.
type memCache struct {
	items map[string][]byte
}

func (m *memCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	b, ok := m.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *memCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = b
	return nil
}

func newTestServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "key123", r.URL.Query().Get("api_key"))
		if r.URL.Query().Get("query") == "nothing" {
			_, _ = w.Write([]byte(`{"page":1,"results":null,"total_results":0}`))
			return
		}
		assert.Equal(t, "Phone Booth", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"page":1,"total_results":1,"results":[
			{"id":1817,"title":"Phone Booth","release_date":"2002-11-14","overview":"o","poster_path":"/p.jpg"}]}`))
	})
	mux.HandleFunc("/movie/1817", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "en-US", r.URL.Query().Get("language"))
		_, _ = w.Write([]byte(`{"id":1817,"title":"Phone Booth","release_date":"2002-11-14",
			"overview":"Publicist Stuart Shepard finds himself trapped in a phone booth.","poster_path":"/tjrX2oWRCM3Tvarz38zlZM7Uc10.jpg","runtime":81}`))
	})
	mux.HandleFunc("/movie/404", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status_code":34}`, http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := New(Options{BaseURL: srv.URL, APIKey: "key123"})

	results, err := c.Search(context.Background(), "  Phone Booth ")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1817), results[0].ID)
	assert.Equal(t, "2002", results[0].Year())
}

func TestSearchNoResultsIsEmptySlice(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := New(Options{BaseURL: srv.URL, APIKey: "key123"})

	results, err := c.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestDetails(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := New(Options{BaseURL: srv.URL, APIKey: "key123"})

	d, err := c.Details(context.Background(), 1817)
	require.NoError(t, err)
	assert.Equal(t, "Phone Booth", d.Title)
	assert.Equal(t, "2002", d.Year())
	assert.Equal(t, 81, d.Runtime)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/tjrX2oWRCM3Tvarz38zlZM7Uc10.jpg", c.PosterURL(d.PosterPath))
}

func TestDetailsSurfacesStatus(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := New(Options{BaseURL: srv.URL, APIKey: "key123"})

	_, err := c.Details(context.Background(), 404)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.True(t, IsNotFound(err))
}

func TestLookupsAreCached(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := New(Options{BaseURL: srv.URL, APIKey: "key123", Cache: &memCache{items: map[string][]byte{}}, CacheTTL: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Details(ctx, 1817)
		require.NoError(t, err)
		_, err = c.Search(ctx, "Phone Booth")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestReadAccessTokenUsesBearer(t *testing.T) {
	token := "eyJhbGciOiJIUzI1NiJ9.eyJhdWQiOiJ4In0.sig"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	t.Cleanup(srv.Close)

	_, err := New(Options{BaseURL: srv.URL, APIKey: token}).Search(context.Background(), "x")
	require.NoError(t, err)
}

func TestPosterURLEmptyPath(t *testing.T) {
	assert.Empty(t, New(Options{}).PosterURL(""))
}
