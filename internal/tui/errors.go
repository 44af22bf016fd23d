package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/vsearch/internal/api"
	"github.com/pders01/vsearch/internal/storage"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// describeErr picks the status line for err. Records that are already
// gone only warrant a warning; the service's own wording wins over ours.
func describeErr(err error) (string, StatusKind) {
	switch {
	case errors.Is(err, storage.ErrSearchNotFound):
		return "Search was already removed", StatusWarn
	case errors.Is(err, api.ErrProductNotFound):
		return "Product no longer in the catalog", StatusWarn
	}
	if msg := api.ServiceMessage(err); msg != "" {
		return msg, StatusError
	}
	return err.Error(), StatusError
}
