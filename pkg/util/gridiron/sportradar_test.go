package gridiron

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, baseURL string) *GridironConfig {
	t.Helper()
	cfg := DefaultGridironConfig()
	dir := t.TempDir()
	cfg.AssetsPath = dir
	cfg.CachePath = filepath.Join(dir, "cache")
	cfg.DbPath = filepath.Join(dir, "gridiron.db")
	cfg.BaseURL = baseURL
	cfg.APIKey = "secret"
	cfg.RequestInterval = time.Millisecond
	return cfg
}

// pbpServer serves the fixture for any game id except "missing"
func pbpServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		parts := strings.Split(r.URL.Path, "/")
		// /nfl/official/trial/v7/en/games/{id}/pbp.json
		if len(parts) != 9 {
			http.Error(w, "bad path", http.StatusBadRequest)
			return
		}
		id := parts[7]
		if id == "missing" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(loadFixture(t, id))
	}))
}

func TestGameURL(t *testing.T) {
	cfg := testConfig(t, "https://api.sportradar.us")
	d := NewSportradarDatasourceWithFetcher(cfg, nil)
	assert.Equal(t,
		"https://api.sportradar.us/nfl/official/trial/v7/en/games/abc-123/pbp.json?api_key=secret",
		d.GameURL("abc-123"))
}

func TestFetchGamesSkipsFailuresAndCaches(t *testing.T) {
	var hits int32
	srv := pbpServer(t, &hits)
	defer srv.Close()

	d := NewSportradarDatasource(testConfig(t, srv.URL))
	games, err := d.FetchGames(context.Background(), []string{"g-1", "missing", "bad/id", "g-2"})
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "g-1", games[0].ID)
	assert.Equal(t, "g-2", games[1].ID)
	assert.False(t, games[0].FromCache)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))

	// second pass is served from disk
	games, err = d.FetchGames(context.Background(), []string{"g-2", "g-1"})
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.True(t, games[0].FromCache)
	assert.Equal(t, "g-2", games[0].ID)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))

	plays, err := games[0].Plays()
	require.NoError(t, err)
	assert.Len(t, plays, 4)
	assert.Equal(t, "g-2", plays[0].GameID)
}

func TestFetchGamesRateLimits(t *testing.T) {
	var hits int32
	srv := pbpServer(t, &hits)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.RequestInterval = 50 * time.Millisecond
	d := NewSportradarDatasource(cfg)

	start := time.Now()
	_, err := d.FetchGames(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	// the first request is free, the next two wait an interval each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestFetchGamesStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, "http://unused")
	cfg.RequestInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	d := NewSportradarDatasourceWithFetcher(cfg, func(ctx context.Context, url string) ([]byte, error) {
		calls++
		cancel()
		return loadFixture(t, "g-1"), nil
	})

	games, err := d.FetchGames(ctx, []string{"g-1", "g-2", "g-3"})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, games, 1)
	assert.Equal(t, 1, calls)
}

func TestFetchGamesNeedsAPIKey(t *testing.T) {
	cfg := testConfig(t, "http://unused")
	cfg.APIKey = ""
	d := NewSportradarDatasourceWithFetcher(cfg, func(ctx context.Context, url string) ([]byte, error) {
		t.Fatal("fetch must not be called without a key")
		return nil, nil
	})

	// a cached game is still served
	require.NoError(t, os.MkdirAll(cfg.CachePath, 0755))
	require.NoError(t, os.WriteFile(d.cacheFile("g-1"), loadFixture(t, "g-1"), 0644))

	games, err := d.FetchGames(context.Background(), []string{"g-1", "g-2"})
	assert.Error(t, err)
	require.Len(t, games, 1)
	assert.True(t, games[0].FromCache)
}

func TestFetchPlaysSkipsUnparseableGames(t *testing.T) {
	cfg := testConfig(t, "http://unused")
	d := NewSportradarDatasourceWithFetcher(cfg, func(ctx context.Context, url string) ([]byte, error) {
		if strings.Contains(url, "/broken/") {
			return []byte("<html>"), nil
		}
		return loadFixture(t, "g-1"), nil
	})

	plays, err := d.FetchPlays(context.Background(), []string{"broken", "g-1"})
	require.NoError(t, err)
	assert.Len(t, plays, 4)
}

func TestFetchGamesDoesNotCacheErrorPayloads(t *testing.T) {
	cfg := testConfig(t, "http://unused")
	quota := NewSportradarDatasourceWithFetcher(cfg, func(ctx context.Context, url string) ([]byte, error) {
		return []byte(`{"message":"Developer Over Qps"}`), nil
	})

	games, err := quota.FetchGames(context.Background(), []string{"g-9"})
	require.NoError(t, err)
	assert.Empty(t, games)
	assert.NoFileExists(t, quota.cacheFile("g-9"))

	calls := 0
	d := NewSportradarDatasourceWithFetcher(cfg, func(ctx context.Context, url string) ([]byte, error) {
		calls++
		return loadFixture(t, "g-9"), nil
	})
	plays, err := d.FetchPlays(context.Background(), []string{"g-9"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, plays, 4)
	assert.FileExists(t, d.cacheFile("g-9"))
}

func TestFetchGamesRefetchesInvalidCacheFile(t *testing.T) {
	cfg := testConfig(t, "http://unused")
	calls := 0
	d := NewSportradarDatasourceWithFetcher(cfg, func(ctx context.Context, url string) ([]byte, error) {
		calls++
		return loadFixture(t, "g-1"), nil
	})
	require.NoError(t, os.MkdirAll(cfg.CachePath, 0755))
	require.NoError(t, os.WriteFile(d.cacheFile("g-1"), []byte(`{"message":"Developer Over Qps"}`), 0644))

	games, err := d.FetchGames(context.Background(), []string{"g-1"})
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.False(t, games[0].FromCache)
	assert.Equal(t, 1, calls)

	cached, err := os.ReadFile(d.cacheFile("g-1"))
	require.NoError(t, err)
	assert.Equal(t, loadFixture(t, "g-1"), cached)
}
