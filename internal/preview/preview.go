// Package preview checks whether a candidate image URL can be fetched and
// decoded, so the search form can warn before the URL is submitted.
package preview

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	// Decoders registered for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pders01/vsearch/internal/config"
	"github.com/pders01/vsearch/internal/debuglog"
	"github.com/pders01/vsearch/internal/gen"
	"github.com/pders01/vsearch/internal/validation"
)

const (
	MsgProtected  = "This link appears protected (auth required), so the image can't be accessed."
	MsgUnloadable = "Image preview couldn't load. The link may be protected, expired, or blocking hotlinking."
)

// ErrSuperseded is returned by Check when a newer check replaced it.
var ErrSuperseded = errors.New("preview check superseded")

type Kind int

const (
	KindIdle Kind = iota
	KindChecking
	KindLoadable
	KindUnloadable
)

func (k Kind) String() string {
	switch k {
	case KindChecking:
		return "checking"
	case KindLoadable:
		return "loadable"
	case KindUnloadable:
		return "unloadable"
	default:
		return "idle"
	}
}

// State is the observable result of the newest check.
type State struct {
	Kind   Kind
	URL    string
	Reason string

	// Format and dimensions are set for loadable images.
	Format string
	Width  int
	Height int
}

// Validator runs preview checks. Only the newest check may publish its
// state; starting a check cancels the one before it.
type Validator struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	maxBytes   int64

	tracker *gen.Tracker[State]

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewValidator(cfg config.PreviewConfig, userAgent string) *Validator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBytes := cfg.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Validator{
		httpClient: &http.Client{},
		userAgent:  userAgent,
		timeout:    timeout,
		maxBytes:   maxBytes,
		tracker:    gen.NewTracker(State{Kind: KindIdle}),
	}
}

// Current returns the newest published state.
func (v *Validator) Current() State {
	st, _ := v.tracker.Value()
	return st
}

// Changed receives after the published state changes.
func (v *Validator) Changed() <-chan struct{} {
	return v.tracker.Changed()
}

// Reset abandons any running check and returns to Idle.
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancelLocked()
	tok := v.tracker.Begin(State{Kind: KindIdle})
	v.tracker.Resolve(tok, State{Kind: KindIdle})
}

func (v *Validator) cancelLocked() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// Check validates rawURL and blocks until the check resolves. A check that
// is overtaken by a newer one returns ErrSuperseded and publishes nothing.
func (v *Validator) Check(ctx context.Context, rawURL string) (State, error) {
	target := strings.TrimSpace(rawURL)

	v.mu.Lock()
	v.cancelLocked()
	if target == "" {
		tok := v.tracker.Begin(State{Kind: KindIdle})
		v.tracker.Resolve(tok, State{Kind: KindIdle})
		v.mu.Unlock()
		return State{Kind: KindIdle}, nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, v.timeout)
	v.cancel = cancel
	tok := v.tracker.Begin(State{Kind: KindChecking, URL: target})
	v.mu.Unlock()
	defer cancel()

	log := debuglog.WithFields(debuglog.Fields{"url": target, "check": tok})
	log.Debugf("preview check started")

	// The existence probe only refines the failure message, so it runs
	// alongside the render probe and its errors are ignored.
	denied := make(chan bool, 1)
	if validation.IsHTTP(target) {
		go func() { denied <- v.probeExistence(checkCtx, target) }()
	} else {
		denied <- false
	}

	st := State{URL: target}
	info, err := v.probeRender(checkCtx, target)
	if !v.tracker.IsCurrent(tok) {
		return State{}, ErrSuperseded
	}

	if err == nil {
		st.Kind = KindLoadable
		st.Format = info.format
		st.Width = info.width
		st.Height = info.height
	} else {
		var protected bool
		select {
		case protected = <-denied:
		case <-checkCtx.Done():
		}
		st.Kind = KindUnloadable
		st.Reason = MsgUnloadable
		if protected {
			st.Reason = MsgProtected
		}
		log.Debugf("preview render failed: %v (protected=%t)", err, protected)
	}

	if !v.tracker.Resolve(tok, st) {
		return State{}, ErrSuperseded
	}
	log.Debugf("preview check resolved: %s", st.Kind)
	return st, nil
}

// probeExistence reports whether a HEAD request was refused for lack of
// credentials.
func (v *Validator) probeExistence(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}
	v.setHeaders(req)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden
}

type imageInfo struct {
	format        string
	width, height int
}

// probeRender fetches the image and decodes its header.
func (v *Validator) probeRender(ctx context.Context, target string) (imageInfo, error) {
	if strings.HasPrefix(target, "data:") {
		data, err := decodeDataURL(target)
		if err != nil {
			return imageInfo{}, err
		}
		return decodeHeader(bytes.NewReader(data))
	}

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return imageInfo{}, fmt.Errorf("unsupported image URL: %s", target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return imageInfo{}, fmt.Errorf("failed to create request: %w", err)
	}
	v.setHeaders(req)
	req.Header.Set("Accept", "image/*")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return imageInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return imageInfo{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	return decodeHeader(io.LimitReader(resp.Body, v.maxBytes))
}

func (v *Validator) setHeaders(req *http.Request) {
	if v.userAgent != "" {
		req.Header.Set("User-Agent", v.userAgent)
	}
}

func decodeHeader(r io.Reader) (imageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return imageInfo{}, fmt.Errorf("decoding image: %w", err)
	}
	return imageInfo{format: format, width: cfg.Width, height: cfg.Height}, nil
}

// decodeDataURL handles data:[<mediatype>][;base64],<data> URLs.
func decodeDataURL(raw string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URL")
	}
	if strings.HasSuffix(header, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data URL: %w", err)
	}
	return []byte(s), nil
}
