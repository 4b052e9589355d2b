package transport

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/richard-senior/gridiron/internal/logger"
)

// CABundleEnv names an environment variable pointing at an extra PEM bundle
// to trust, for networks that intercept TLS.
const CABundleEnv = "GRIDIRON_CA_BUNDLE"

const userAgent = "gridiron/1.0 (+https://github.com/richard-senior/gridiron)"

const defaultTimeout = 30 * time.Second

var (
	httpClient *http.Client
	clientOnce sync.Once
	timeout    atomic.Int64
)

func init() {
	timeout.Store(int64(defaultTimeout))
}

// StatusError is returned when the remote end answers with anything but 200
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request returned error status %s", e.Status)
}

// SetTimeout changes the deadline applied to each GetJSON call, including
// reading the body. Zero or negative disables it.
func SetTimeout(d time.Duration) {
	timeout.Store(int64(d))
}

// Timeout returns the current per-request deadline
func Timeout() time.Duration {
	return time.Duration(timeout.Load())
}

// getCABundle returns the extra CA bundle if one is configured
func getCABundle() ([]byte, error) {
	bundlePath := os.Getenv(CABundleEnv)
	if bundlePath == "" {
		return nil, nil
	}
	caCert, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle %s: %w", bundlePath, err)
	}
	return caCert, nil
}

// GetCustomHTTPClient returns the shared HTTP client with custom TLS configuration
func GetCustomHTTPClient() *http.Client {
	clientOnce.Do(func() {
		rootCAs, err := x509.SystemCertPool()
		if err != nil {
			logger.Warn("Failed to get system cert pool", err)
			rootCAs = x509.NewCertPool()
		}

		bundle, err := getCABundle()
		if err != nil {
			logger.Warn("Proceeding without extra CA bundle", err)
		} else if bundle != nil {
			if ok := rootCAs.AppendCertsFromPEM(bundle); !ok {
				logger.Warn("Failed to append CA bundle")
			} else {
				logger.Info("Added extra CA bundle to root CAs")
			}
		}

		httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					RootCAs: rootCAs,
				},
				Proxy: http.ProxyFromEnvironment,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		}
	})
	return httpClient
}

// GetJSON fetches url and returns the decoded body, giving up after Timeout.
// Any status other than 200 yields a *StatusError.
func GetJSON(ctx context.Context, url string) ([]byte, error) {
	if d := Timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	// setting this ourselves turns off net/http's transparent gzip
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := GetCustomHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: req.URL.Path, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return data, nil
}

// decodeBody wraps the response body according to its Content-Encoding
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	contentEncoding := resp.Header.Get("Content-Encoding")
	switch contentEncoding {
	case "gzip":
		logger.Debug("Handling gzip compressed content")
		r, err := NewGzipReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return r, nil
	case "deflate":
		logger.Debug("Handling deflate compressed content")
		return NewDeflateReader(resp.Body)
	case "br":
		logger.Debug("Handling brotli compressed content")
		return NewBrotliReader(resp.Body)
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	default:
		logger.Warn("Unknown content encoding:", contentEncoding)
		return io.NopCloser(resp.Body), nil
	}
}

// NewGzipReader creates a gzip reader from the provided io.ReadCloser
func NewGzipReader(r io.ReadCloser) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// NewDeflateReader creates a deflate reader from the provided io.ReadCloser
func NewDeflateReader(r io.ReadCloser) (io.ReadCloser, error) {
	return flate.NewReader(r), nil
}

// NewBrotliReader creates a brotli reader from the provided io.ReadCloser
func NewBrotliReader(r io.ReadCloser) (io.ReadCloser, error) {
	return io.NopCloser(brotli.NewReader(r)), nil
}
