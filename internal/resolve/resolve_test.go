package resolve

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	name     string
	prefix   string
	priority int
	target   string
	err      error
}

func (s *stubResolver) Name() string               { return s.name }
func (s *stubResolver) Priority() int              { return s.priority }
func (s *stubResolver) CanHandle(url string) bool { return strings.HasPrefix(url, s.prefix) }

func (s *stubResolver) Resolve(_ context.Context, url string, client *http.Client) (*Link, error) {
	if client == nil {
		return nil, errors.New("no client")
	}
	if s.err != nil {
		return nil, s.err
	}
	return &Link{ImageURL: s.target}, nil
}

func TestRegistry_PriorityWins(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(&stubResolver{name: "low", prefix: "https://shop", priority: 10, target: "https://low/img.jpg"})
	r.Register(&stubResolver{name: "high", prefix: "https://shop", priority: 90, target: "https://high/img.jpg"})

	found := r.Find("https://shop.io/item/1")
	require.NotNil(t, found)
	assert.Equal(t, "high", found.Name())

	link := r.Resolve(context.Background(), "https://shop.io/item/1")
	assert.Equal(t, "https://high/img.jpg", link.ImageURL)
	assert.Equal(t, "https://shop.io/item/1", link.OriginalURL)
	assert.Equal(t, "high", link.Resolver)
	assert.True(t, link.Changed())

	names := []string{}
	for _, res := range r.List() {
		names = append(names, res.Name())
	}
	assert.Equal(t, []string{"high", "low"}, names)
}

func TestRegistry_PassThrough(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(&stubResolver{name: "broken", prefix: "https://broken", priority: 50, err: errors.New("boom")})

	link := r.Resolve(context.Background(), "https://other.io/a.jpg")
	assert.Equal(t, "https://other.io/a.jpg", link.ImageURL)
	assert.Empty(t, link.Resolver)
	assert.False(t, link.Changed())

	link = r.Resolve(context.Background(), "https://broken.io/page")
	assert.Equal(t, "https://broken.io/page", link.ImageURL)
	assert.Empty(t, link.Resolver)
	assert.Nil(t, r.Find("ftp://x"))
}
