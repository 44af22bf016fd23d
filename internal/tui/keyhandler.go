package tui

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pders01/vsearch/internal/api"
	"github.com/pders01/vsearch/internal/config"
	"github.com/pders01/vsearch/internal/params"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	keys        keyMap
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, keys: app.keys, modifierKey: modifierKey}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, kh.keys.ForceQuit) {
		return kh.app, tea.Quit
	}

	if kh.isFiltering() {
		return kh.delegateToCharm(msg)
	}

	if model, cmd, handled := kh.handleGlobalKeys(msg); handled {
		return model, cmd
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(msg); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

// isFiltering reports whether a list is capturing keys for its filter.
func (kh *KeyHandler) isFiltering() bool {
	switch kh.app.view {
	case ViewResults:
		return kh.app.resultList.FilterState() == list.Filtering
	case ViewHistory:
		return kh.app.historyList.FilterState() == list.Filtering
	default:
		return false
	}
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewSearch:
		if in := kh.app.inputFor(kh.app.method); in != nil {
			return in.Focused()
		}
		return false
	case ViewFind:
		return kh.app.findInput.Focused()
	default:
		return false
	}
}

// handleGlobalKeys handles modifier bindings, which never collide with typing.
func (kh *KeyHandler) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	if a.view == ViewBrowse {
		return a, nil, false
	}

	switch {
	case key.Matches(msg, kh.keys.Upload):
		a.view = ViewSearch
		return a, a.setMethod(params.MethodUpload), true
	case key.Matches(msg, kh.keys.URL):
		a.view = ViewSearch
		return a, a.setMethod(params.MethodURL), true
	case key.Matches(msg, kh.keys.Demo):
		a.view = ViewSearch
		return a, a.setMethod(params.MethodDemo), true
	case key.Matches(msg, kh.keys.History):
		model, cmd := kh.enterHistory()
		return model, cmd, true
	case key.Matches(msg, kh.keys.Find):
		model, cmd := kh.enterFindMode()
		return model, cmd, true
	case key.Matches(msg, kh.keys.Browse):
		if a.view == ViewSearch && a.method == params.MethodUpload {
			model, cmd := kh.enterBrowse()
			return model, cmd, true
		}
	}
	return a, nil, false
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return kh.navigateBack()
	case "enter":
		return kh.handleTextInputEnter()
	case "tab", "shift+tab":
		kh.blurInputs()
		return kh.app, nil
	case "down":
		if kh.app.view == ViewFind && len(kh.app.findList.Items()) > 0 {
			kh.app.findInput.Blur()
			kh.app.findList.Select(0)
			return kh.app, nil
		}
		return kh.delegateToTextInput(msg)
	default:
		return kh.delegateToTextInput(msg)
	}
}

func (kh *KeyHandler) blurInputs() {
	kh.app.pathInput.Blur()
	kh.app.urlInput.Blur()
	kh.app.findInput.Blur()
}

func (kh *KeyHandler) handleTextInputEnter() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewSearch:
		return kh.submitSearch()
	case ViewFind:
		if items := kh.app.findList.Items(); len(items) > 0 {
			if i, ok := items[0].(seenItem); ok {
				return kh.openDetail(i.result.Product, ViewFind)
			}
		}
		return kh.app, nil
	default:
		return kh.app, nil
	}
}

// submitSearch starts a search from the form. A typed upload path is read
// first and the search follows once the file is loaded.
func (kh *KeyHandler) submitSearch() (tea.Model, tea.Cmd) {
	a := kh.app
	if a.method == params.MethodUpload {
		path := strings.TrimSpace(a.pathInput.Value())
		if path != "" && (a.upload == nil || path != a.uploadPath) {
			a.setStatus(MsgReadingImage, StatusInfo)
			return a, a.loadUpload(path, true)
		}
	}
	return a, a.submit()
}

func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	switch a.view {
	case ViewSearch:
		in := a.inputFor(a.method)
		if in == nil {
			return a, nil
		}
		prev := in.Value()
		var cmd tea.Cmd
		*in, cmd = in.Update(msg)
		if in.Value() == prev {
			return a, cmd
		}
		if a.method == params.MethodURL {
			return a, tea.Batch(cmd, a.schedulePreview())
		}
		// The loaded file no longer matches the typed path.
		a.upload = nil
		a.uploadPath = ""
		return a, cmd

	case ViewFind:
		prev := a.pendingFindQuery
		var cmd tea.Cmd
		a.findInput, cmd = a.findInput.Update(msg)

		newVal := kh.sanitizeSearchInput(a.findInput.Value())
		if newVal != prev {
			a.pendingFindQuery = newVal
			a.findSeq++
			seq := a.findSeq
			wait := time.Duration(a.findDebounceMillis) * time.Millisecond
			return a, tea.Batch(cmd, tea.Tick(wait, func(time.Time) tea.Msg { return findDebounceFireMsg{seq: seq} }))
		}
		return a, cmd

	default:
		return a, nil
	}
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app

	switch {
	case key.Matches(msg, kh.keys.Back):
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case key.Matches(msg, kh.keys.Quit) && a.view != ViewBrowse:
		return a, tea.Quit, true
	case key.Matches(msg, kh.keys.Help) && a.view != ViewBrowse:
		a.help.ShowAll = !a.help.ShowAll
		return a, nil, true
	}

	switch a.view {
	case ViewSearch:
		return kh.handleSearchCustomKeys(msg)
	case ViewResults:
		return kh.handleResultsCustomKeys(msg)
	case ViewDetail:
		if key.Matches(msg, kh.keys.Open) && a.current != nil {
			return a, a.openImage(*a.current), true
		}
	case ViewHistory:
		return kh.handleHistoryCustomKeys(msg)
	}
	return a, nil, false
}

func (kh *KeyHandler) handleSearchCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	switch {
	case key.Matches(msg, kh.keys.Submit):
		model, cmd := kh.submitSearch()
		return model, cmd, true
	case key.Matches(msg, kh.keys.Focus):
		return a, a.focusInput(), true
	case key.Matches(msg, kh.keys.ThresholdUp):
		a.adjustThreshold(5)
		return a, nil, true
	case key.Matches(msg, kh.keys.ThresholdDown):
		a.adjustThreshold(-5)
		return a, nil, true
	case key.Matches(msg, kh.keys.CountUp):
		a.adjustCount(params.ResultCountStep)
		return a, nil, true
	case key.Matches(msg, kh.keys.CountDown):
		a.adjustCount(-params.ResultCountStep)
		return a, nil, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleResultsCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	i, ok := a.resultList.SelectedItem().(productItem)
	switch {
	case key.Matches(msg, kh.keys.Submit):
		if ok {
			model, cmd := kh.openDetail(i.product, ViewResults)
			return model, cmd, true
		}
		return a, nil, true
	case key.Matches(msg, kh.keys.Open):
		if ok {
			return a, a.openImage(i.product), true
		}
		return a, nil, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleHistoryCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	i, ok := a.historyList.SelectedItem().(historyItem)
	if !ok {
		return a, nil, false
	}
	switch {
	case key.Matches(msg, kh.keys.Submit):
		model, cmd := kh.rerunSearch(i)
		return model, cmd, true
	case key.Matches(msg, kh.keys.Delete):
		return a, a.deleteSearch(i.record.ID), true
	}
	return a, nil, false
}

// delegateToCharm lets Charm handle all keys we don't intercept
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	var cmd tea.Cmd

	switch a.view {
	case ViewSearch:
		if a.method == params.MethodDemo {
			a.demoList, cmd = a.demoList.Update(msg)
		}
		return a, cmd

	case ViewResults:
		a.resultList, cmd = a.resultList.Update(msg)
		return a, cmd

	case ViewHistory:
		a.historyList, cmd = a.historyList.Update(msg)
		return a, cmd

	case ViewDetail:
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	case ViewFind:
		switch msg.String() {
		case "tab", "shift+tab", "/", "i":
			return a, a.findInput.Focus()
		case "up":
			if len(a.findList.Items()) == 0 || a.findList.Index() == 0 {
				return a, a.findInput.Focus()
			}
		}
		a.findList, cmd = a.findList.Update(msg)
		if msg.String() == "enter" {
			if i, ok := a.findList.SelectedItem().(seenItem); ok {
				return kh.openDetail(i.result.Product, ViewFind)
			}
		}
		return a, cmd

	case ViewBrowse:
		a.picker, cmd = a.picker.Update(msg)
		if didSelect, path := a.picker.DidSelectFile(msg); didSelect {
			a.pathInput.SetValue(path)
			a.view = ViewSearch
			a.setStatus(MsgReadingImage, StatusInfo)
			return a, tea.Batch(a.focusInput(), a.loadUpload(path, false))
		}
		if didSelect, path := a.picker.DidSelectDisabledFile(msg); didSelect {
			a.setStatus("Not an image: "+truncateMiddle(path, 40), StatusWarn)
		}
		return a, cmd

	default:
		return a, nil
	}
}

// openDetail shows p and fetches its full record.
func (kh *KeyHandler) openDetail(p api.Product, from View) (tea.Model, tea.Cmd) {
	a := kh.app
	a.current = &p
	a.detailFrom = from
	a.view = ViewDetail
	a.loadingDetail = true
	return a, tea.Batch(a.startSpinner(MsgLoadingProduct), a.renderProduct(p))
}

// navigateBack implements smart back navigation
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := kh.app
	if a.showNotice {
		a.showNotice = false
		return a, nil
	}
	if a.help.ShowAll {
		a.help.ShowAll = false
		return a, nil
	}

	switch a.view {
	case ViewSearch:
		kh.blurInputs()
		return a, nil

	case ViewResults, ViewHistory, ViewBrowse:
		a.view = ViewSearch
		return a, a.focusInput()

	case ViewDetail:
		a.view = a.detailFrom
		a.current = nil
		if a.view == ViewFind {
			a.findInput.Blur()
		}
		return a, nil

	case ViewFind:
		a.view = a.previousView
		a.findInput.Reset()
		a.pendingFindQuery = ""
		a.findList.SetItems([]list.Item{})
		if a.view == ViewSearch {
			return a, a.focusInput()
		}
		return a, nil

	default:
		return a, tea.Quit
	}
}

func (kh *KeyHandler) enterHistory() (tea.Model, tea.Cmd) {
	a := kh.app
	if a.store == nil {
		a.setStatus("History is unavailable without a database", StatusWarn)
		return a, nil
	}
	kh.blurInputs()
	a.view = ViewHistory
	a.setStatus(MsgLoadingHistory, StatusInfo)
	return a, a.loadHistory()
}

// enterFindMode transitions to the find view over previously seen products.
func (kh *KeyHandler) enterFindMode() (tea.Model, tea.Cmd) {
	a := kh.app
	if a.index == nil {
		a.setStatus(MsgIndexUnavailable, StatusWarn)
		return a, nil
	}
	if a.view != ViewFind && a.view != ViewDetail {
		a.previousView = a.view
	}
	kh.blurInputs()
	a.view = ViewFind
	a.findInput.Reset()
	a.pendingFindQuery = ""
	a.findList.SetItems([]list.Item{})
	return a, a.findInput.Focus()
}

func (kh *KeyHandler) enterBrowse() (tea.Model, tea.Cmd) {
	a := kh.app
	kh.blurInputs()
	a.view = ViewBrowse
	return a, a.picker.Init()
}

// rerunSearch restores a history entry into the form and searches again.
// Uploaded bytes are not kept, so upload entries only restore settings.
func (kh *KeyHandler) rerunSearch(item historyItem) (tea.Model, tea.Cmd) {
	a := kh.app
	rec := item.record

	a.thresholdPercent = params.ClampThreshold(int(math.Round(rec.Threshold * 100)))
	a.resultCount = params.ClampResultCount(rec.ResultCount)

	m, _ := params.ParseMethod(rec.SourceKind)
	a.view = ViewSearch
	switch m {
	case params.MethodURL:
		a.method = params.MethodURL
		a.urlInput.SetValue(rec.SourceLabel)
		previewCmd := a.schedulePreview()
		a.focusInput()
		return a, tea.Batch(previewCmd, a.submit())
	case params.MethodDemo:
		a.method = params.MethodDemo
		a.selectDemo(rec.SourceLabel)
		a.focusInput()
		return a, a.submit()
	default:
		a.upload = nil
		a.uploadPath = ""
		a.pathInput.Reset()
		cmd := a.setMethod(params.MethodUpload)
		a.setStatus(MsgReselectUpload, StatusInfo)
		return a, cmd
	}
}

// sanitizeSearchInput sanitizes and limits search input length
func (kh *KeyHandler) sanitizeSearchInput(input string) string {
	input = strings.TrimSpace(input)

	if len(input) > 256 {
		input = input[:256]
	}

	input = strings.ReplaceAll(input, "\n", " ")
	input = strings.ReplaceAll(input, "\r", " ")
	input = strings.ReplaceAll(input, "\t", " ")

	for strings.Contains(input, "  ") {
		input = strings.ReplaceAll(input, "  ", " ")
	}

	return strings.TrimSpace(input)
}

// GetHelpForCurrentView returns only our custom help text (Charm handles the rest)
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	k := kh.keys
	h := func(b key.Binding) string { return b.Help().Key + ": " + b.Help().Desc }

	switch kh.app.view {
	case ViewSearch:
		help := []string{h(k.Submit), h(k.Upload), h(k.URL), h(k.Demo)}
		if kh.isInTextInputMode() {
			help = append(help, "tab: settings")
		} else {
			help = append(help, "[ ] threshold", "{ } results", h(k.History))
		}
		return append(help, h(k.Help))

	case ViewResults:
		return []string{"enter: details", h(k.Open), h(k.Find), "esc: back"}

	case ViewDetail:
		return []string{h(k.Open), "esc: back"}

	case ViewHistory:
		return []string{"enter: search again", h(k.Delete), "esc: back"}

	case ViewFind:
		return []string{h(k.Find)}

	case ViewBrowse:
		return []string{"enter: select", "esc: cancel"}

	default:
		return []string{}
	}
}
