package transport

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `{"id":"game-1","periods":[]}`

func compress(t *testing.T, encoding string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "deflate":
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		require.NoError(t, err)
		w = fw
	case "br":
		w = brotli.NewWriter(&buf)
	default:
		return []byte(payload)
	}
	_, err := w.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestGetJSONDecodesContentEncodings(t *testing.T) {
	for _, encoding := range []string{"", "gzip", "deflate", "br"} {
		t.Run("encoding="+encoding, func(t *testing.T) {
			body := compress(t, encoding)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				if encoding != "" {
					w.Header().Set("Content-Encoding", encoding)
				}
				w.Write(body)
			}))
			defer srv.Close()

			got, err := GetJSON(context.Background(), srv.URL+"/pbp.json")
			require.NoError(t, err)
			assert.JSONEq(t, payload, string(got))
		})
	}
}

func TestGetJSONReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := GetJSON(context.Background(), srv.URL+"/pbp.json")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, "/pbp.json", se.URL)
}

func TestGetJSONHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := GetJSON(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetTimeoutAppliesAfterFirstRequest(t *testing.T) {
	t.Cleanup(func() { SetTimeout(defaultTimeout) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	// the shared client is built by this first call
	_, err := GetJSON(context.Background(), srv.URL+"/fast")
	require.NoError(t, err)

	SetTimeout(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, Timeout())

	start := time.Now()
	_, err = GetJSON(context.Background(), srv.URL+"/slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
