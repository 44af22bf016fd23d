// Package builtin provides the link resolvers registered by default.
package builtin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/pders01/vsearch/internal/resolve"
)

// RegisterDefaults adds every built-in resolver to r.
func RegisterDefaults(r *resolve.Registry) {
	r.Register(NewGitHubResolver())
	r.Register(NewDropboxResolver())
	r.Register(NewImgurResolver())
	r.Register(NewOpenGraphResolver())
}

// GitHubResolver turns github.com blob views into raw file URLs.
type GitHubResolver struct{}

func NewGitHubResolver() *GitHubResolver { return &GitHubResolver{} }

func (GitHubResolver) Name() string  { return "github" }
func (GitHubResolver) Priority() int { return 80 }

func (GitHubResolver) CanHandle(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	return host == "github.com" && len(parts) >= 5 && parts[2] == "blob"
}

func (GitHubResolver) Resolve(_ context.Context, raw string, _ *http.Client) (*resolve.Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	// owner/repo/blob/ref/path...
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 5 {
		return nil, fmt.Errorf("not a blob URL: %s", raw)
	}
	rawPath := append(parts[:2:2], parts[3:]...)
	return &resolve.Link{
		ImageURL: "https://raw.githubusercontent.com/" + strings.Join(rawPath, "/"),
		Title:    path.Base(u.Path),
	}, nil
}

// DropboxResolver switches Dropbox share links to direct downloads.
type DropboxResolver struct{}

func NewDropboxResolver() *DropboxResolver { return &DropboxResolver{} }

func (DropboxResolver) Name() string  { return "dropbox" }
func (DropboxResolver) Priority() int { return 80 }

func (DropboxResolver) CanHandle(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return host == "dropbox.com" && (strings.HasPrefix(u.Path, "/s/") || strings.HasPrefix(u.Path, "/scl/"))
}

func (DropboxResolver) Resolve(_ context.Context, raw string, _ *http.Client) (*resolve.Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Del("dl")
	q.Set("raw", "1")
	u.RawQuery = q.Encode()
	return &resolve.Link{ImageURL: u.String(), Title: path.Base(u.Path)}, nil
}

// ImgurResolver maps single-image post pages to i.imgur.com files.
// Albums and galleries hold several images and are left to the
// OpenGraph resolver.
type ImgurResolver struct{}

func NewImgurResolver() *ImgurResolver { return &ImgurResolver{} }

func (ImgurResolver) Name() string  { return "imgur" }
func (ImgurResolver) Priority() int { return 70 }

func (ImgurResolver) CanHandle(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "imgur.com" && host != "m.imgur.com" {
		return false
	}
	id := strings.Trim(u.Path, "/")
	return id != "" && !strings.Contains(id, "/")
}

func (ImgurResolver) Resolve(_ context.Context, raw string, _ *http.Client) (*resolve.Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	id := strings.Trim(u.Path, "/")
	if path.Ext(id) == "" {
		id += ".jpg"
	}
	return &resolve.Link{ImageURL: "https://i.imgur.com/" + id, Title: "Imgur " + strings.TrimSuffix(id, path.Ext(id))}, nil
}
