package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gaspardpetit/obix/core/logx"
	"github.com/gaspardpetit/obix/sdk/metrics"
)

const contentType = "text/xml; charset=utf-8"

// HTTPConfig configures the net/http transport.
type HTTPConfig struct {
	Timeout            time.Duration
	Username           string
	Password           string
	UserAgent          string
	InsecureSkipVerify bool
	// Client overrides the http.Client built from the fields above.
	Client *http.Client
}

// HTTP is a Transport backed by net/http.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTP builds an HTTP transport.
func NewHTTP(cfg HTTPConfig) *HTTP {
	client := cfg.Client
	if client == nil {
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.InsecureSkipVerify {
			tlsCfg.InsecureSkipVerify = true
		}
		client = &http.Client{Timeout: cfg.Timeout, Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     tlsCfg,
		}}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "obix-go"
	}
	return &HTTP{cfg: cfg, client: client}
}

func (h *HTTP) Get(ctx context.Context, u *url.URL) (*Response, error) {
	return h.do(ctx, http.MethodGet, u, nil)
}

func (h *HTTP) Put(ctx context.Context, u *url.URL, body []byte) (*Response, error) {
	return h.do(ctx, http.MethodPut, u, body)
}

func (h *HTTP) Post(ctx context.Context, u *url.URL, body []byte) (*Response, error) {
	return h.do(ctx, http.MethodPost, u, body)
}

func (h *HTTP) do(ctx context.Context, method string, u *url.URL, body []byte) (*Response, error) {
	start := time.Now()
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "text/xml, application/xml")
	req.Header.Set("User-Agent", h.cfg.UserAgent)
	if h.cfg.Username != "" {
		req.SetBasicAuth(h.cfg.Username, h.cfg.Password)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		metrics.RecordRequest(method, false)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	metrics.ObserveRequestDuration(method, time.Since(start))
	if err != nil {
		metrics.RecordRequest(method, false)
		return nil, &BodyError{Err: err}
	}
	out := &Response{StatusCode: resp.StatusCode, Reason: reason(resp), Body: data}
	metrics.RecordRequest(method, out.OK())
	logx.Log.Debug().
		Str("method", method).
		Str("url", u.String()).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("obix request")
	return out, nil
}

// reason extracts the reason phrase from a status line such as "404 Not Found".
func reason(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if r := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); r != "" {
		return r
	}
	return http.StatusText(resp.StatusCode)
}

// CloseIdleConnections releases pooled connections.
func (h *HTTP) CloseIdleConnections() {
	h.client.CloseIdleConnections()
}
