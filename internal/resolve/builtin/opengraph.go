package builtin

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pders01/vsearch/internal/resolve"
)

const maxPageBytes = 2 << 20

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// OpenGraphResolver reads og:image (or twitter:image) from an HTML page,
// which covers product pages and most photo sharing sites.
type OpenGraphResolver struct{}

func NewOpenGraphResolver() *OpenGraphResolver { return &OpenGraphResolver{} }

func (OpenGraphResolver) Name() string  { return "opengraph" }
func (OpenGraphResolver) Priority() int { return 10 }

// CanHandle accepts http(s) URLs whose path does not already name an image file.
func (OpenGraphResolver) CanHandle(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	return !imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

func (OpenGraphResolver) Resolve(ctx context.Context, raw string, client *http.Client) (*resolve.Link, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,image/*;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "image/") {
		// Already an image, just without a telling extension.
		return &resolve.Link{ImageURL: raw}, nil
	}
	if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		return nil, fmt.Errorf("unexpected content type %q", mediaType)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	image := firstAttr(doc, "content",
		`meta[property="og:image:secure_url"]`,
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
	)
	if image == "" {
		image = firstAttr(doc, "href", `link[rel="image_src"]`)
	}
	if image == "" {
		return nil, fmt.Errorf("no preview image on page")
	}

	base := resp.Request.URL
	ref, err := url.Parse(strings.TrimSpace(image))
	if err != nil {
		return nil, fmt.Errorf("bad image reference %q: %w", image, err)
	}

	title := firstAttr(doc, "content", `meta[property="og:title"]`)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return &resolve.Link{ImageURL: base.ResolveReference(ref).String(), Title: title}, nil
}

func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
