// Package resolve rewrites links that point at a page about an image
// (a GitHub blob view, a Dropbox share, an Imgur post) into a URL that
// serves the image bytes, so the preview probe and the search service
// can fetch it.
package resolve

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/pders01/vsearch/internal/debuglog"
)

// Link is the outcome of resolving a URL.
type Link struct {
	OriginalURL string
	ImageURL    string
	// Resolver is the name of the resolver that produced ImageURL, or ""
	// when the URL was passed through unchanged.
	Resolver string
	Title    string
}

// Changed reports whether resolution rewrote the URL.
func (l *Link) Changed() bool { return l.ImageURL != l.OriginalURL }

// Resolver handles one family of hosts.
type Resolver interface {
	Name() string
	CanHandle(url string) bool
	// Resolve may perform HTTP requests with client.
	Resolve(ctx context.Context, url string, client *http.Client) (*Link, error)
	// Priority orders resolvers that handle the same URL; higher wins.
	Priority() int
}

type Registry struct {
	resolvers []Resolver
	client    *http.Client
}

func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		client: &http.Client{Timeout: timeout},
	}
}

func (r *Registry) Register(res Resolver) {
	r.resolvers = append(r.resolvers, res)
	sort.SliceStable(r.resolvers, func(i, j int) bool {
		return r.resolvers[i].Priority() > r.resolvers[j].Priority()
	})
}

// Find returns the highest priority resolver for url, or nil.
func (r *Registry) Find(url string) Resolver {
	for _, res := range r.resolvers {
		if res.CanHandle(url) {
			return res
		}
	}
	return nil
}

// Resolve rewrites url when a resolver claims it. Resolver failures are
// logged and the URL is passed through unchanged: the preview probe will
// report it if the original does not load either.
func (r *Registry) Resolve(ctx context.Context, url string) *Link {
	passthrough := &Link{OriginalURL: url, ImageURL: url}

	res := r.Find(url)
	if res == nil {
		return passthrough
	}
	link, err := res.Resolve(ctx, url, r.client)
	if err != nil || link == nil || link.ImageURL == "" {
		debuglog.WithFields(debuglog.Fields{"resolver": res.Name(), "url": url}).Debugf("resolve failed: %v", err)
		return passthrough
	}
	link.OriginalURL = url
	link.Resolver = res.Name()
	return link
}

// List returns the registered resolvers in priority order.
func (r *Registry) List() []Resolver {
	return append([]Resolver(nil), r.resolvers...)
}
