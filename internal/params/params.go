// Package params turns the user's form selections into immutable search
// parameters. Building is pure: no I/O and no shared state.
package params

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pders01/vsearch/internal/validation"
)

const (
	MinResultCount  = 5
	MaxResultCount  = 50
	ResultCountStep = 5

	DefaultThresholdPercent = 30
	DefaultResultCount      = 20
)

// Method is the kind of query image the user selected.
type Method int

const (
	MethodNone Method = iota
	MethodUpload
	MethodURL
	MethodDemo
)

func (m Method) String() string {
	switch m {
	case MethodUpload:
		return "upload"
	case MethodURL:
		return "url"
	case MethodDemo:
		return "demo"
	default:
		return "none"
	}
}

// ParseMethod maps a method name back to its Method.
func ParseMethod(s string) (Method, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upload", "file":
		return MethodUpload, true
	case "url", "link":
		return MethodURL, true
	case "demo":
		return MethodDemo, true
	}
	return MethodNone, false
}

// Source is one of UploadSource, URLSource or DemoSource.
type Source interface {
	Method() Method
	// Label is a short human description used in history and the status bar.
	Label() string
}

type UploadSource struct {
	Filename string
	Data     []byte
	MIMEType string
}

func (UploadSource) Method() Method  { return MethodUpload }
func (s UploadSource) Label() string { return s.Filename }

type URLSource struct {
	URL string
}

func (URLSource) Method() Method  { return MethodURL }
func (s URLSource) Label() string { return s.URL }

// DemoSource names a built-in demo image; the orchestrator resolves it.
type DemoSource struct {
	ImageID string
}

func (DemoSource) Method() Method  { return MethodDemo }
func (s DemoSource) Label() string { return s.ImageID }

// SearchParameters is built fresh for every submission and never mutated.
type SearchParameters struct {
	Source      Source
	Threshold   float64
	ResultCount int
}

// Selections is the raw state of the search form.
type Selections struct {
	Method           Method
	Upload           *UploadSource
	URL              string
	DemoID           string
	ThresholdPercent int
	ResultCount      int
}

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("invalid search request")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// acceptedUploadTypes mirrors the upload dropzone's accept list.
var acceptedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Builder validates selections. The zero value is not usable; see NewBuilder.
type Builder struct {
	urls *validation.ImageURLValidator
}

func NewBuilder(urls *validation.ImageURLValidator) *Builder {
	if urls == nil {
		urls = validation.NewImageURLValidator()
	}
	return &Builder{urls: urls}
}

var defaultBuilder = NewBuilder(nil)

// Build validates sel with the default URL rules.
func Build(sel Selections) (SearchParameters, error) {
	return defaultBuilder.Build(sel)
}

// Build validates sel and returns the parameters for one submission.
// The result count is taken as given: the form control already clamps it
// to MinResultCount..MaxResultCount in ResultCountStep increments.
func (b *Builder) Build(sel Selections) (SearchParameters, error) {
	if sel.ThresholdPercent < 0 || sel.ThresholdPercent > 100 {
		return SearchParameters{}, invalid("threshold", "must be between 0 and 100, got %d", sel.ThresholdPercent)
	}

	var src Source
	switch sel.Method {
	case MethodUpload:
		up, err := buildUpload(sel.Upload)
		if err != nil {
			return SearchParameters{}, err
		}
		src = up
	case MethodURL:
		u, err := b.urls.ValidateAndNormalize(sel.URL)
		if err != nil {
			return SearchParameters{}, invalid("url", "%v", err)
		}
		src = URLSource{URL: u}
	case MethodDemo:
		id := strings.TrimSpace(sel.DemoID)
		if id == "" {
			return SearchParameters{}, invalid("demo", "no demo image selected")
		}
		src = DemoSource{ImageID: id}
	default:
		return SearchParameters{}, invalid("source", "select an image to upload, paste a URL or pick a demo image")
	}

	return SearchParameters{
		Source:      src,
		Threshold:   float64(sel.ThresholdPercent) / 100,
		ResultCount: sel.ResultCount,
	}, nil
}

func buildUpload(up *UploadSource) (UploadSource, error) {
	if up == nil {
		return UploadSource{}, invalid("file", "no image file selected")
	}
	if len(up.Data) == 0 {
		return UploadSource{}, invalid("file", "%s is empty", up.Filename)
	}

	mimeType := strings.ToLower(strings.TrimSpace(up.MIMEType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = DetectMIMEType(up.Data)
	}
	if mimeType == "image/jpg" {
		mimeType = "image/jpeg"
	}
	if !acceptedUploadTypes[mimeType] {
		return UploadSource{}, invalid("file", "unsupported image type %q (use jpg, png or webp)", mimeType)
	}

	name := up.Filename
	if name == "" {
		name = "upload"
	}
	data := make([]byte, len(up.Data))
	copy(data, up.Data)
	return UploadSource{Filename: name, Data: data, MIMEType: mimeType}, nil
}

// DetectMIMEType sniffs image content. webp is recognised by its RIFF
// header in addition to what net/http knows.
func DetectMIMEType(data []byte) string {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}
	ct := http.DetectContentType(data)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// ClampResultCount snaps n onto the result-count control's range and step.
func ClampResultCount(n int) int {
	if n < MinResultCount {
		return MinResultCount
	}
	if n > MaxResultCount {
		return MaxResultCount
	}
	return (n + ResultCountStep/2) / ResultCountStep * ResultCountStep
}

// ClampThreshold keeps a percentage within 0..100.
func ClampThreshold(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
