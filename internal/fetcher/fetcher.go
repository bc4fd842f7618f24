package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/webgrid/gridctl/internal/config"
	"github.com/webgrid/gridctl/internal/logger"
)

var (
	// errBadHTTPStatus is returned for any non-200 download response.
	errBadHTTPStatus = errors.New("unexpected http status")
)

// Fetch streams the given URL into destPath. The response body is copied to
// disk as it arrives, never buffered whole in memory. On any failure the
// partial destination file is removed; on success the file is closed before
// Fetch returns, so a consumer may open it immediately. No retries are
// performed.
func Fetch(ctx context.Context, rawURL, destPath string, cfg *config.Config) error {
	client, err := newClient(ctx, rawURL, cfg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	out, err := os.Create(filepath.Clean(destPath))
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}

	logger.InfoKV(ctx, "Downloading artifact", "url", rawURL, "destination", destPath)

	response, err := client.Do(req)
	if err != nil {
		_ = out.Close()
		removePartial(ctx, destPath)

		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		_ = out.Close()
		removePartial(ctx, destPath)

		return fmt.Errorf("%s, %s: %w", rawURL, response.Status, errBadHTTPStatus)
	}

	if _, err = io.Copy(out, response.Body); err != nil {
		_ = out.Close()
		removePartial(ctx, destPath)

		return fmt.Errorf("stream %s: %w", rawURL, err)
	}

	// Close before returning so the installer opens a fully written file.
	if err = out.Close(); err != nil {
		removePartial(ctx, destPath)

		return fmt.Errorf("close destination file: %w", err)
	}

	return nil
}

// newClient builds an HTTP client honoring the proxy policy and the TLS
// verification toggle.
func newClient(ctx context.Context, rawURL string, cfg *config.Config) (*http.Client, error) {
	proxyURL, err := proxyForURL(rawURL, cfg)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{}

	if proxyURL != nil {
		logger.InfoKV(ctx, "Using proxy", "proxy", proxyURL.Redacted())
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if cfg.Insecure {
		// Make the reduced security impossible to miss in logs.
		logger.Warn(ctx, "TLS certificate verification is DISABLED for this download")

		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // Operator opted in.
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}

// proxyForURL resolves the proxy to use for the given target URL. An
// explicit configuration override wins. Otherwise an HTTPS target consults
// HTTPS_PROXY falling back to HTTP_PROXY, while an HTTP target consults only
// HTTP_PROXY.
func proxyForURL(rawURL string, cfg *config.Config) (*url.URL, error) {
	raw := cfg.Proxy

	if raw == "" {
		if strings.HasPrefix(rawURL, "https://") {
			raw = firstEnv("HTTPS_PROXY", "https_proxy")
		}

		if raw == "" {
			raw = firstEnv("HTTP_PROXY", "http_proxy")
		}
	}

	if raw == "" {
		return nil, nil
	}

	proxyURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy URL: %w", err)
	}

	return proxyURL, nil
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}

	return ""
}

// removePartial deletes a partially written download.
func removePartial(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf(ctx, "Unable to remove partial download %s: %v", path, err)
	}
}
