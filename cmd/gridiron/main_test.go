package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/richard-senior/gridiron/pkg/util/gridiron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `{
  "id": "GAME",
  "summary": {"home": {"alias": "KC"}, "away": {"alias": "DET"}},
  "periods": [{"number": 1, "pbp": [{"type": "drive", "events": [
    {"type": "play", "id": "p1", "sequence": 1, "clock": "15:00", "play_type": "rush",
     "start_situation": {"down": 1, "yfd": 10, "possession": {"alias": "DET"}, "location": {"alias": "DET", "yardline": 25}}},
    {"type": "play", "id": "p2", "sequence": 2, "clock": "14:30", "play_type": "pass",
     "start_situation": {"down": 3, "yfd": 12, "possession": {"alias": "DET"}, "location": {"alias": "DET", "yardline": 30}}},
    {"type": "play", "id": "p3", "sequence": 3, "clock": "14:00", "play_type": "rush",
     "start_situation": {"down": 1, "yfd": 10, "possession": {"alias": "DET"}, "location": {"alias": "DET", "yardline": 45}}}
  ]}]}]
}`

// writeConfig creates a config file rooted in a temp dir
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gridiron.yaml")
	content := "assetsPath: " + dir + "\n" +
		"baseUrl: " + baseURL + "\n" +
		"apiKey: test-key\n" +
		"requestInterval: 1ms\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	previous := gridiron.Config
	t.Cleanup(func() {
		gridiron.CloseDatabase()
		gridiron.UpdateConfig(previous)
	})
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFetchPredictCovariance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/games/g-1/") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(strings.ReplaceAll(fixture, "GAME", "g-1")))
	}))
	defer srv.Close()
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, "--config", cfgPath, "fetch", "g-1", "g-404")
	require.NoError(t, err)
	assert.Contains(t, out, "g-1")
	assert.Contains(t, out, "TOTAL")

	out, err = run(t, "--config", cfgPath, "predict",
		"--features", "down,yards_to_go", "--k", "2", "--query", "down=1,yards_to_go=9")
	require.NoError(t, err)
	assert.Contains(t, out, "Prediction: rush")

	out, err = run(t, "--config", cfgPath, "covariance", "down", "yards_to_go")
	require.NoError(t, err)
	// down [1 3 1], yards_to_go [10 12 10]
	assert.Contains(t, out, "cov(down, yards_to_go) = 1.333333")
	assert.Contains(t, out, "over 3 plays")
}

func TestPredictErrors(t *testing.T) {
	cfgPath := writeConfig(t, "http://unused")

	_, err := run(t, "--config", cfgPath, "predict", "--query", "down=1")
	assert.ErrorContains(t, err, "no stored plays")

	_, err = run(t, "--config", cfgPath, "predict", "--query", "down=third")
	assert.Error(t, err)

	_, err = run(t, "--config", cfgPath, "predict", "--k", "0", "--query", "down=1")
	assert.ErrorIs(t, err, gridiron.ErrInvalidInput)

	_, err = run(t, "--log", "zz", "version")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "gridiron version "+version+"\n", out)
}
