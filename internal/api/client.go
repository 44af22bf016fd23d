package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pders01/vsearch/internal/config"
	"github.com/pders01/vsearch/internal/debuglog"
	"golang.org/x/time/rate"
)

const (
	uploadPath    = "/api/upload"
	searchURLPath = "/api/search-url"
	healthPath    = "/api/health"
	statsPath     = "/api/stats"
	productsPath  = "/api/products/"

	// maxBodyBytes bounds how much of a collaborator response is read.
	maxBodyBytes = 8 << 20
)

// Client talks to the visual search service.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimiter *rate.Limiter
}

// NewClient creates a client from the api section of the configuration.
// A non-positive requests_per_second disables pacing.
func NewClient(cfg config.APIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:   cfg.UserAgent,
		rateLimiter: rate.NewLimiter(limit, burst),
	}
}

// BaseURL returns the collaborator origin without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// ImageURL resolves a product image path. Absolute http(s) URLs are
// returned unchanged; anything else is joined to the base URL.
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	if u, err := url.Parse(path); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// UploadAndSearch posts an image file and returns the ranked matches.
func (c *Client) UploadAndSearch(ctx context.Context, filename string, data []byte, mimeType string, k int, threshold float64) (*SearchResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("writing file part: %w", err)
	}
	if err := mw.WriteField("k", strconv.Itoa(k)); err != nil {
		return nil, fmt.Errorf("writing k field: %w", err)
	}
	if err := mw.WriteField("threshold", formatThreshold(threshold)); err != nil {
		return nil, fmt.Errorf("writing threshold field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	debuglog.WithFields(debuglog.Fields{
		"file": filename, "bytes": len(data), "k": k, "threshold": threshold,
	}).Infof("upload search")

	var resp SearchResponse
	if err := c.do(ctx, http.MethodPost, uploadPath, mw.FormDataContentType(), &body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchByURL asks the collaborator to fetch imageURL and search with it.
func (c *Client) SearchByURL(ctx context.Context, imageURL string, k int, threshold float64) (*SearchResponse, error) {
	payload, err := json.Marshal(urlSearchRequest{URL: imageURL, K: k, Threshold: threshold})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	debuglog.WithFields(debuglog.Fields{
		"url": imageURL, "k": k, "threshold": threshold,
	}).Infof("url search")

	var resp SearchResponse
	if err := c.do(ctx, http.MethodPost, searchURLPath, "application/json", bytes.NewReader(payload), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, healthPath, "", nil, &h); err != nil {
		return nil, err
	}
	return h, nil
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := c.do(ctx, http.MethodGet, statsPath, "", nil, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Product fetches a single catalog record. The collaborator may wrap it
// as {"success": true, "product": {...}} or return it bare.
func (c *Client) Product(ctx context.Context, id ProductID) (*Product, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, ErrProductNotFound
	}

	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, productsPath+url.PathEscape(string(id)), "", nil, &raw)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return nil, err
	}

	var env productEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Product != nil {
		if env.Success != nil && !*env.Success {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return env.Product, nil
	}

	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		debuglog.WithFields(debuglog.Fields{"path": path}).Warnf("request error: %v", err)
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrRequestFailed, err)
	}

	debuglog.WithFields(debuglog.Fields{
		"path": path, "status": resp.StatusCode, "elapsed": time.Since(start).Round(time.Millisecond),
	}).Debugf("%s done", method)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Message: parseErrorBody(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// formatThreshold renders the shortest decimal form, e.g. 0.3 not 0.300000.
func formatThreshold(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
