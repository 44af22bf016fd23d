package tui

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pders01/vsearch/internal/api"
	"github.com/pders01/vsearch/internal/storage"
)

func TestDescribeErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantText string
		wantKind StatusKind
	}{
		{
			name:     "deleted search",
			err:      wrapErr("deleting search", fmt.Errorf("%w: abc", storage.ErrSearchNotFound)),
			wantText: "Search was already removed",
			wantKind: StatusWarn,
		},
		{
			name:     "service message",
			err:      wrapErr("loading", &api.Error{StatusCode: 503, Message: "Index is rebuilding"}),
			wantText: "Index is rebuilding",
			wantKind: StatusError,
		},
		{
			name:     "plain error",
			err:      wrapErr("reading image", errors.New("permission denied")),
			wantText: "reading image: permission denied",
			wantKind: StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, kind := describeErr(tt.err)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestWrapErrNil(t *testing.T) {
	assert.NoError(t, wrapErr("anything", nil))
}
