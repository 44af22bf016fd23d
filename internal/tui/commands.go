package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pders01/vsearch/internal/api"
	"github.com/pders01/vsearch/internal/debuglog"
	"github.com/pders01/vsearch/internal/params"
	"github.com/pders01/vsearch/internal/preview"
	"github.com/pders01/vsearch/internal/storage"
)

const historyPageSize = 50

// waitForOutcome reports the next change of the search outcome.
func (a *App) waitForOutcome() tea.Cmd {
	changed := a.orchestrator.Changed()
	return func() tea.Msg {
		<-changed
		return outcomeChangedMsg{}
	}
}

// waitForPreview reports the next change of the preview state.
func (a *App) waitForPreview() tea.Cmd {
	changed := a.preview.Changed()
	return func() tea.Msg {
		<-changed
		return previewChangedMsg{}
	}
}

func noticeAfter(delay time.Duration) tea.Cmd {
	if delay <= 0 {
		delay = 5 * time.Second
	}
	return tea.Tick(delay, func(time.Time) tea.Msg { return noticeMsg{} })
}

// schedulePreview restarts the debounce window for the URL input. Edits
// supersede the running check at once; blank input goes Idle without a
// probe.
func (a *App) schedulePreview() tea.Cmd {
	a.previewSeq++
	a.link = nil
	a.preview.Reset()
	a.previewState = preview.State{Kind: preview.KindIdle}

	if strings.TrimSpace(a.urlInput.Value()) == "" {
		return nil
	}
	seq := a.previewSeq
	return tea.Tick(a.previewDebounceTime, func(time.Time) tea.Msg { return previewDebounceMsg{seq: seq} })
}

func (a *App) resolveLink(seq int, target string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Preview.Timeout)
		defer cancel()
		return linkResolvedMsg{seq: seq, link: a.resolver.Resolve(ctx, target)}
	}
}

// checkPreview runs a check whose result arrives through waitForPreview.
func (a *App) checkPreview(target string) tea.Cmd {
	return func() tea.Msg {
		if _, err := a.preview.Check(context.Background(), target); err != nil {
			debuglog.Debugf("preview of %s: %v", target, err)
		}
		return nil
	}
}

// loadUpload reads the image at path for the upload source. When submit
// is set the search starts as soon as the file is ready.
func (a *App) loadUpload(path string, submit bool) tea.Cmd {
	return func() tea.Msg {
		clean, mimeType, err := a.files.ValidateImageFile(path)
		if err != nil {
			return uploadLoadedMsg{err: wrapErr("invalid image", err)}
		}
		data, err := os.ReadFile(clean)
		if err != nil {
			return uploadLoadedMsg{err: wrapErr("reading image", err)}
		}
		if sniffed := params.DetectMIMEType(data); strings.HasPrefix(sniffed, "image/") {
			mimeType = sniffed
		}
		return uploadLoadedMsg{
			source: &params.UploadSource{Filename: filepath.Base(clean), Data: data, MIMEType: mimeType},
			path:   path,
			submit: submit,
		}
	}
}

func (a *App) savePreferences() tea.Cmd {
	if a.store == nil {
		return nil
	}
	prefs := storage.Preferences{
		Method:           a.method.String(),
		ThresholdPercent: a.thresholdPercent,
		ResultCount:      a.resultCount,
		LastURL:          strings.TrimSpace(a.urlInput.Value()),
	}
	if d, ok := a.demoList.SelectedItem().(demoItem); ok {
		prefs.LastDemoID = d.demo.ID
	}
	return func() tea.Msg {
		if err := retryOperation(func() error { return a.store.SavePreferences(prefs) }); err != nil {
			debuglog.Warnf("saving preferences: %v", err)
		}
		return nil
	}
}

// renderProduct fetches the full product record and renders it. The copy
// from the result set is shown when the lookup fails.
func (a *App) renderProduct(p api.Product) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.API.Timeout)
		defer cancel()

		if p.ID != "" {
			full, err := a.client.Product(ctx, p.ID)
			if err == nil {
				if full.Similarity == 0 {
					full.Similarity = p.Similarity
				}
				p = *full
			} else {
				debuglog.WithFields(debuglog.Fields{"product": p.ID}).Debugf("product lookup failed: %v", err)
			}
		}

		var content strings.Builder
		content.WriteString(fmt.Sprintf("# %s\n\n", p.Name))
		if p.Category != "" {
			content.WriteString(fmt.Sprintf("**Category:** %s\n\n", p.Category))
		}
		if p.Similarity > 0 {
			content.WriteString(fmt.Sprintf("**Similarity:** %s\n\n", formatSimilarity(p.Similarity)))
		}
		if p.ID != "" {
			content.WriteString(fmt.Sprintf("**Product ID:** `%s`\n\n", p.ID))
		}
		if p.ImagePath != "" {
			content.WriteString(fmt.Sprintf("[View image](%s)\n\n", a.client.ImageURL(p.ImagePath)))
		}

		if a.store != nil && p.ID != "" {
			if seen, err := a.store.GetProduct(p.ID); err == nil {
				content.WriteString("---\n\n")
				content.WriteString(fmt.Sprintf("Seen in **%d** searches, best match %s.\n\n",
					seen.SeenCount, formatSimilarity(seen.BestSimilarity)))
				content.WriteString(fmt.Sprintf("*First seen: %s*\n", seen.FirstSeen.Format(time.RFC1123)))
			}
		}

		r, err := a.getRenderer()
		if err != nil {
			return productRenderedMsg{content: "Error initializing renderer: " + err.Error()}
		}
		rendered, err := r.Render(content.String())
		if err != nil {
			return productRenderedMsg{content: fmt.Sprintf("# Error\n\nFailed to render product: %s\n\nPress Escape to go back.", err.Error())}
		}
		return productRenderedMsg{content: rendered}
	}
}

func (a *App) loadHistory() tea.Cmd {
	return func() tea.Msg {
		if a.store == nil {
			return historyLoadedMsg{}
		}
		records, err := a.store.RecentSearches(historyPageSize)
		if err != nil {
			return errorMsg{err: wrapErr("loading history", err)}
		}
		return historyLoadedMsg{records: records}
	}
}

func (a *App) deleteSearch(id string) tea.Cmd {
	return func() tea.Msg {
		err := retryOperation(func() error { return a.store.DeleteSearch(id) })
		return historyDeletedMsg{err: err}
	}
}

func (a *App) performFind(query string, seq int) tea.Cmd {
	return func() tea.Msg {
		if a.index == nil {
			return statusMsg{text: MsgIndexUnavailable, kind: StatusWarn}
		}
		results, err := a.index.Search(query, 20)
		if err != nil {
			return errorMsg{err: wrapErr("searching history", err)}
		}
		return findResultsMsg{seq: seq, results: results}
	}
}

func (a *App) openImage(p api.Product) tea.Cmd {
	if p.ImagePath == "" {
		return func() tea.Msg { return statusMsg{text: MsgNoImage, kind: StatusWarn} }
	}
	target := a.client.ImageURL(p.ImagePath)
	return func() tea.Msg {
		if err := a.launcher.Open(target); err != nil {
			return errorMsg{err: fmt.Errorf("failed to open %s: %w", target, err)}
		}
		return nil
	}
}

// retryOperation retries a database operation up to 3 times with exponential backoff
func retryOperation(operation func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := operation(); err != nil {
			lastErr = err
			if i < maxRetries-1 {
				time.Sleep(baseDelay * time.Duration(1<<i))
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}
