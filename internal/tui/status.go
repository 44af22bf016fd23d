package tui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Canonical short status messages used across the app.
const (
	MsgSearching        = "Searching through 42,700+ products..."
	MsgFashionOnly      = "Fashion items only"
	MsgEmptyResults     = "Upload an image or paste a URL to find similar products"
	MsgReadingImage     = "Reading image…"
	MsgLoadingProduct   = "Loading product…"
	MsgLoadingHistory   = "Loading history…"
	MsgHistoryEmpty     = "No searches yet"
	MsgSearchDeleted    = "Search removed from history"
	MsgIndexUnavailable = "Product index unavailable"
	MsgNoResults        = "No results"
	MsgNoMatchesHint    = "Try lowering the similarity threshold or another image."
	MsgReselectUpload   = "Pick the file again to repeat an upload search"
	MsgNoImage          = "Nothing to open"
	MsgBackendNotice    = "Heads up: the search backend runs on the developer's machine. If it is offline, try again between 9 AM and 6 PM IST."
)

func MsgFoundItems(n int) string {
	return fmt.Sprintf("Found %d visually similar items", n)
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgUploadReady(name string, size int) string {
	return fmt.Sprintf("Ready: %s (%s)", strings.TrimSpace(name), humanize.Bytes(uint64(size)))
}

func MsgSearchSummary(threshold, count int) string {
	return fmt.Sprintf("threshold %d%% • up to %d results", threshold, count)
}
