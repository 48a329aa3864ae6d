// Package apiclient talks to the image-classification service over its HTTP
// contract: library image bytes, the two prediction variants, retrain archive
// upload, retrain job creation and retrain status reads.
//
// Every method returns either a decoded payload or a typed error
// (TransportError, DecodeError, StatusError). Prediction, upload and retrain
// start bodies are decoded regardless of HTTP status, since the service
// reports failures as JSON fields on 4xx/5xx responses.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a single request when the caller's context has no deadline.
	DefaultTimeout = 30 * time.Second

	// DefaultRetrainDataPath is the archive upload endpoint this client speaks.
	DefaultRetrainDataPath = "/upload_retrain_data"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes int64 = 64 << 20
)

// Config holds the parameters for New.
type Config struct {
	// BaseURL is the service origin, e.g. http://localhost:5000.
	BaseURL string
	// Timeout applies per request (default 30s).
	Timeout time.Duration
	// RetrainDataPath selects the archive upload endpoint (default /upload_retrain_data).
	RetrainDataPath string
	// ImageCacheTTL keeps library image bytes per id; zero disables caching.
	ImageCacheTTL time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	base            *url.URL
	http            *http.Client
	timeout         time.Duration
	retrainDataPath string
	images          *cache.Cache
	log             zerolog.Logger
}

// New validates cfg and returns a ready client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", raw)
	}
	c := &Client{
		base:            base,
		http:            cfg.HTTPClient,
		timeout:         cfg.Timeout,
		retrainDataPath: cfg.RetrainDataPath,
		log:             cfg.Logger.With().Str("component", "apiclient").Logger(),
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.retrainDataPath == "" {
		c.retrainDataPath = DefaultRetrainDataPath
	}
	if !strings.HasPrefix(c.retrainDataPath, "/") {
		c.retrainDataPath = "/" + c.retrainDataPath
	}
	if cfg.ImageCacheTTL > 0 {
		// No janitor goroutine: expired entries are dropped on the next store.
		c.images = cache.New(cfg.ImageCacheTTL, 0)
	}
	return c, nil
}

// BaseURL returns the configured service origin.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpointURL(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// do sends req and records metrics. The caller owns resp.Body on success.
func (c *Client) do(req *http.Request, endpoint string) (*http.Response, error) {
	rid := uuid.New().String()[:8]
	req.Header.Set("X-Request-ID", rid)
	start := time.Now()
	resp, err := c.http.Do(req)
	clientRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		clientRequestsTotal.WithLabelValues(endpoint, statusLabel(0)).Inc()
		c.log.Warn().Str("endpoint", endpoint).Str("request_id", rid).Err(err).Msg("request failed")
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	clientRequestsTotal.WithLabelValues(endpoint, statusLabel(resp.StatusCode)).Inc()
	c.log.Debug().Str("endpoint", endpoint).Str("request_id", rid).Int("status", resp.StatusCode).
		Dur("dur", time.Since(start)).Msg("request done")
	return resp, nil
}

// doJSON sends req and decodes the body into out whatever the status.
func (c *Client) doJSON(req *http.Request, endpoint string, out any) (int, error) {
	resp, err := c.do(req, endpoint)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, &TransportError{Endpoint: endpoint, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.log.Warn().Str("endpoint", endpoint).Int("status", resp.StatusCode).Err(err).Msg("response is not JSON")
		return resp.StatusCode, &DecodeError{Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}
	return resp.StatusCode, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// multipartBody builds a single-file form.
func multipartBody(field, filename string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename == "" {
		filename = field
	}
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
