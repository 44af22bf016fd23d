package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/pders01/vsearch/internal/api"
	"github.com/pders01/vsearch/internal/config"
	"github.com/pders01/vsearch/internal/index"
	"github.com/pders01/vsearch/internal/media"
	"github.com/pders01/vsearch/internal/orchestrator"
	"github.com/pders01/vsearch/internal/params"
	"github.com/pders01/vsearch/internal/preview"
	"github.com/pders01/vsearch/internal/resolve"
	"github.com/pders01/vsearch/internal/resolve/builtin"
	"github.com/pders01/vsearch/internal/storage"
	"github.com/pders01/vsearch/internal/validation"
)

var methodTabs = []params.Method{params.MethodUpload, params.MethodURL, params.MethodDemo}

type App struct {
	config       *config.Config
	store        *storage.Store
	index        *index.Index
	client       *api.Client
	orchestrator *orchestrator.Orchestrator
	preview      *preview.Validator
	resolver     *resolve.Registry
	builder      *params.Builder
	files        *validation.FilePathValidator
	launcher     *media.Launcher
	keyHandler   *KeyHandler
	keys         keyMap

	view         View
	previousView View
	detailFrom   View

	method      params.Method
	pathInput   textinput.Model
	urlInput    textinput.Model
	findInput   textinput.Model
	demoList    list.Model
	resultList  list.Model
	historyList list.Model
	findList    list.Model
	picker      filepicker.Model
	viewport    viewport.Model
	spinner     spinner.Model
	gauge       progress.Model
	help        help.Model

	thresholdPercent int
	resultCount      int
	upload           *params.UploadSource
	uploadPath       string
	link             *resolve.Link
	previewState     preview.State
	outcome          orchestrator.Outcome
	current          *api.Product

	previewSeq          int
	findSeq             int
	pendingFindQuery    string
	findDebounceMillis  int
	previewDebounceTime time.Duration

	status       string
	statusKind   StatusKind
	spinning     bool
	spinnerLabel string
	showNotice   bool

	width           int
	height          int
	err             error
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
	loadingDetail   bool
}

// NewApp wires the search client, orchestrator and preview validator.
// store and idx may be nil; history and find are then unavailable.
func NewApp(cfg *config.Config, store *storage.Store, idx *index.Index) *App {
	ApplyTheme(cfg.UI.Colors)

	client := api.NewClient(cfg.API)

	var opts []orchestrator.Option
	if store != nil {
		var hooks []func(*storage.SearchRecord)
		if idx != nil {
			hooks = append(hooks, idx.OnSearchSaved)
		}
		opts = append(opts, orchestrator.WithRecorder(store.Recorder(hooks...)))
	}

	resolver := resolve.NewRegistry(cfg.Preview.Timeout)
	builtin.RegisterDefaults(resolver)

	pathInput := textinput.New()
	pathInput.Placeholder = "Path to a jpg, png or webp image..."
	pathInput.CharLimit = 1024

	urlInput := textinput.New()
	urlInput.Placeholder = "https://example.com/image.jpg"
	urlInput.CharLimit = 2048

	findInput := textinput.New()
	findInput.Placeholder = "Find products seen in earlier results..."

	demoItems := make([]list.Item, len(cfg.Demos))
	for i, d := range cfg.Demos {
		demoItems[i] = demoItem{demo: d}
	}
	demoList := newList(demoItems, "› demo images", false)
	demoList.SetShowHelp(false)

	picker := filepicker.New()
	picker.AllowedTypes = []string{".jpg", ".jpeg", ".png", ".webp"}
	if home, err := os.UserHomeDir(); err == nil {
		picker.CurrentDirectory = home
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	app := &App{
		config:       cfg,
		store:        store,
		index:        idx,
		client:       client,
		orchestrator: orchestrator.New(client, cfg, opts...),
		preview:      preview.NewValidator(cfg.Preview, cfg.API.UserAgent),
		resolver:     resolver,
		builder:      params.NewBuilder(validation.NewImageURLValidator()),
		files:        validation.NewFilePathValidator(),
		launcher:     media.NewLauncher(cfg),
		keys:         newKeyMap(cfg.Keys),

		view:         ViewSearch,
		previousView: ViewSearch,
		detailFrom:   ViewResults,

		method:      params.MethodURL,
		pathInput:   pathInput,
		urlInput:    urlInput,
		findInput:   findInput,
		demoList:    demoList,
		resultList:  newList(nil, "› similar products", true),
		historyList: newList(nil, "› history", true),
		findList:    newList(nil, "› seen products", false),
		picker:      picker,
		viewport:    viewport.New(0, 0),
		spinner:     sp,
		gauge:       progress.New(progress.WithScaledGradient(string(PrimaryColor), string(AccentColor)), progress.WithoutPercentage(), progress.WithWidth(30)),
		help:        help.New(),

		thresholdPercent:    params.ClampThreshold(cfg.Search.DefaultThreshold),
		resultCount:         params.ClampResultCount(cfg.Search.DefaultResultCount),
		outcome:             orchestrator.Idle(),
		findDebounceMillis:  200,
		previewDebounceTime: cfg.Preview.Debounce,
	}
	app.findList.SetShowHelp(false)

	app.restorePreferences()
	app.focusInput()
	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

func newList(items []list.Item, title string, filtering bool) list.Model {
	if items == nil {
		items = []list.Item{}
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(filtering)
	l.SetShowHelp(true)
	return l
}

// restorePreferences loads the form state saved by the previous session.
func (a *App) restorePreferences() {
	if a.store == nil {
		return
	}
	prefs, ok, err := a.store.GetPreferences()
	if err != nil || !ok {
		return
	}
	if m, ok := params.ParseMethod(prefs.Method); ok && m != params.MethodNone {
		a.method = m
	}
	a.thresholdPercent = params.ClampThreshold(prefs.ThresholdPercent)
	if prefs.ResultCount > 0 {
		a.resultCount = params.ClampResultCount(prefs.ResultCount)
	}
	a.urlInput.SetValue(prefs.LastURL)
	a.selectDemo(prefs.LastDemoID)
}

func (a *App) selectDemo(id string) {
	for i, it := range a.demoList.Items() {
		if d, ok := it.(demoItem); ok && d.demo.ID == id {
			a.demoList.Select(i)
			return
		}
	}
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > 120 {
		wordWrapWidth = 120
	}
	if wordWrapWidth < 40 {
		wordWrapWidth = 40
	}
	if a.width < 50 {
		wordWrapWidth = a.width - 4
		if wordWrapWidth < 20 {
			wordWrapWidth = 20
		}
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		a.waitForOutcome(),
		a.waitForPreview(),
		tea.EnterAltScreen,
	}
	if a.config.UI.ShowNotice {
		cmds = append(cmds, noticeAfter(a.config.UI.NoticeDelay))
	}
	if a.method == params.MethodURL && strings.TrimSpace(a.urlInput.Value()) != "" {
		cmds = append(cmds, a.schedulePreview())
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resultList.SetSize(msg.Width, msg.Height-5)
		a.historyList.SetSize(msg.Width, msg.Height-3)
		findListHeight := msg.Height - 10
		if findListHeight < 5 {
			findListHeight = 5
		}
		a.findList.SetSize(msg.Width, findListHeight)
		a.demoList.SetSize(msg.Width, 12)
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 3
		a.help.Width = msg.Width

		inputWidth := msg.Width - 8
		if inputWidth < 20 {
			inputWidth = msg.Width
		}
		a.pathInput.Width = inputWidth
		a.urlInput.Width = inputWidth
		a.findInput.Width = inputWidth

		gaugeWidth := msg.Width - 24
		if gaugeWidth > 40 {
			gaugeWidth = 40
		}
		if gaugeWidth < 10 {
			gaugeWidth = 10
		}
		a.gauge.Width = gaugeWidth

		var cmd tea.Cmd
		a.picker, cmd = a.picker.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		if !a.spinning {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case outcomeChangedMsg:
		return a, tea.Batch(a.applyOutcome(a.orchestrator.Outcome()), a.waitForOutcome())

	case previewChangedMsg:
		a.previewState = a.preview.Current()
		return a, a.waitForPreview()

	case previewDebounceMsg:
		if msg.seq != a.previewSeq || a.method != params.MethodURL {
			return a, nil
		}
		target := strings.TrimSpace(a.urlInput.Value())
		if target == "" {
			return a, nil
		}
		return a, a.resolveLink(msg.seq, target)

	case linkResolvedMsg:
		if msg.seq != a.previewSeq {
			return a, nil
		}
		a.link = msg.link
		return a, a.checkPreview(msg.link.ImageURL)

	case uploadLoadedMsg:
		if msg.err != nil {
			a.upload = nil
			a.uploadPath = ""
			a.setStatus(msg.err.Error(), StatusError)
			return a, nil
		}
		a.upload = msg.source
		a.uploadPath = msg.path
		a.setStatus(MsgUploadReady(msg.source.Filename, len(msg.source.Data)), StatusSuccess)
		if msg.submit {
			return a, a.submit()
		}
		return a, nil

	case productRenderedMsg:
		if a.view == ViewDetail {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.loadingDetail = false
			a.stopSpinner()
			a.setStatus("", StatusInfo)
		}
		return a, nil

	case historyLoadedMsg:
		items := make([]list.Item, len(msg.records))
		for i, r := range msg.records {
			items[i] = historyItem{record: r}
		}
		cmd := a.historyList.SetItems(items)
		if len(items) == 0 {
			a.setStatus(MsgHistoryEmpty, StatusInfo)
		} else {
			a.setStatus(MsgResultsCount(len(items)), StatusInfo)
		}
		return a, cmd

	case historyDeletedMsg:
		if msg.err != nil {
			a.setStatus(describeErr(msg.err))
			return a, a.loadHistory()
		}
		a.setStatus(MsgSearchDeleted, StatusSuccess)
		return a, a.loadHistory()

	case findDebounceFireMsg:
		if msg.seq != a.findSeq || a.view != ViewFind {
			return a, nil
		}
		return a, a.performFind(a.pendingFindQuery, msg.seq)

	case findResultsMsg:
		if msg.seq != a.findSeq || a.view != ViewFind {
			return a, nil
		}
		items := make([]list.Item, len(msg.results))
		for i, r := range msg.results {
			items[i] = seenItem{result: r}
		}
		a.setStatus(MsgResultsCount(len(items)), StatusInfo)
		return a, a.findList.SetItems(items)

	case noticeMsg:
		a.showNotice = true
		return a, nil

	case statusMsg:
		a.setStatus(msg.text, msg.kind)
		return a, nil

	case errorMsg:
		a.err = msg.err
		a.stopSpinner()
		a.setStatus(describeErr(msg.err))
		return a, nil
	}

	switch a.view {
	case ViewBrowse:
		var cmd tea.Cmd
		a.picker, cmd = a.picker.Update(msg)
		cmds = append(cmds, cmd)
	case ViewResults:
		var cmd tea.Cmd
		a.resultList, cmd = a.resultList.Update(msg)
		cmds = append(cmds, cmd)
	case ViewHistory:
		var cmd tea.Cmd
		a.historyList, cmd = a.historyList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// applyOutcome renders the published search outcome.
func (a *App) applyOutcome(out orchestrator.Outcome) tea.Cmd {
	a.outcome = out
	switch out.Kind {
	case orchestrator.KindLoading:
		a.err = nil
		return a.startSpinner(MsgSearching)
	case orchestrator.KindSuccess:
		a.stopSpinner()
		items := make([]list.Item, len(out.Items))
		for i, p := range out.Items {
			items[i] = productItem{product: p, rank: i + 1}
		}
		a.resultList.ResetFilter()
		a.resultList.SetItems(items)
		a.resultList.Select(0)
		a.setStatus(MsgFoundItems(len(out.Items)), StatusSuccess)
	case orchestrator.KindFailure:
		a.stopSpinner()
		a.resultList.SetItems([]list.Item{})
		if out.Reason == orchestrator.ReasonNoResults {
			a.setStatus(out.Message, StatusWarn)
		} else {
			a.setStatus(out.Message, StatusError)
		}
	default:
		a.stopSpinner()
		a.resultList.SetItems([]list.Item{})
	}
	return nil
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
	if kind != StatusError {
		a.err = nil
	}
}

func (a *App) startSpinner(label string) tea.Cmd {
	a.spinnerLabel = label
	if a.spinning {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

func (a *App) stopSpinner() {
	a.spinning = false
	a.spinnerLabel = ""
}

func (a *App) inputFor(m params.Method) *textinput.Model {
	switch m {
	case params.MethodUpload:
		return &a.pathInput
	case params.MethodURL:
		return &a.urlInput
	default:
		return nil
	}
}

// focusInput focuses the text input of the active method, if it has one.
func (a *App) focusInput() tea.Cmd {
	a.pathInput.Blur()
	a.urlInput.Blur()
	if in := a.inputFor(a.method); in != nil {
		return in.Focus()
	}
	return nil
}

// setMethod switches the query source. The preview of a URL that is no
// longer being edited is abandoned.
func (a *App) setMethod(m params.Method) tea.Cmd {
	if a.method == m {
		return a.focusInput()
	}
	a.method = m
	a.err = nil
	cmd := a.focusInput()
	if m != params.MethodURL {
		a.previewSeq++
		a.preview.Reset()
		a.previewState = preview.State{Kind: preview.KindIdle}
		return cmd
	}
	return tea.Batch(cmd, a.schedulePreview())
}

func (a *App) adjustThreshold(delta int) {
	a.thresholdPercent = params.ClampThreshold(a.thresholdPercent + delta)
}

func (a *App) adjustCount(delta int) {
	a.resultCount = params.ClampResultCount(a.resultCount + delta)
}

// selections snapshots the form for the request builder.
func (a *App) selections() params.Selections {
	sel := params.Selections{
		Method:           a.method,
		ThresholdPercent: a.thresholdPercent,
		ResultCount:      a.resultCount,
	}
	switch a.method {
	case params.MethodUpload:
		sel.Upload = a.upload
	case params.MethodURL:
		target := strings.TrimSpace(a.urlInput.Value())
		if a.link != nil && a.link.OriginalURL == target {
			target = a.link.ImageURL
		}
		sel.URL = target
	case params.MethodDemo:
		if d, ok := a.demoList.SelectedItem().(demoItem); ok {
			sel.DemoID = d.demo.ID
		}
	}
	return sel
}

// submit validates the form and hands the request to the orchestrator.
// Validation errors stay on the form.
func (a *App) submit() tea.Cmd {
	p, err := a.builder.Build(a.selections())
	if err != nil {
		a.setStatus(err.Error(), StatusError)
		return nil
	}

	a.orchestrator.Submit(p)
	spin := a.applyOutcome(a.orchestrator.Outcome())
	a.view = ViewResults
	a.setStatus(MsgSearchSummary(a.thresholdPercent, a.resultCount), StatusInfo)
	return tea.Batch(spin, a.savePreferences())
}

func (a *App) View() string {
	var content string
	bodyHeight := a.height - 3
	if a.showNotice {
		bodyHeight -= 3
	}
	if bodyHeight < 0 {
		bodyHeight = 0
	}

	switch a.view {
	case ViewSearch:
		content = a.viewSearch()
	case ViewResults:
		content = a.viewResults(bodyHeight)
	case ViewDetail:
		if a.loadingDetail {
			content = renderCentered(a.width, bodyHeight, renderMuted(MsgLoadingProduct))
		} else {
			content = a.viewport.View()
		}
	case ViewHistory:
		if len(a.historyList.Items()) == 0 {
			content = renderCentered(a.width, bodyHeight, renderMuted(MsgHistoryEmpty))
		} else {
			content = a.historyList.View()
		}
	case ViewFind:
		content = a.viewFind()
	case ViewBrowse:
		content = lipgloss.JoinVertical(
			lipgloss.Top,
			renderHeader("› pick an image", a.picker.CurrentDirectory, a.width),
			"",
			a.picker.View(),
		)
	}

	if a.help.ShowAll {
		content = lipgloss.JoinVertical(lipgloss.Top, content, "", a.help.View(a.keys))
	}
	content = ContentWrapper(a.width, bodyHeight).Render(content)

	rows := []string{content}
	if a.showNotice {
		rows = append(rows, NoticeStyle.Width(a.width-4).Render(MsgBackendNotice))
	}

	customStatus := a.getCustomStatusBar()
	if customStatus != "" {
		separatorWidth := a.width - 2
		if separatorWidth < 0 {
			separatorWidth = 0
		}
		separator := SeparatorStyle.Render("─" + strings.Repeat("─", separatorWidth))
		rows = append(rows, separator, customStatus)
	}

	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

func (a *App) viewSearch() string {
	active := 0
	for i, m := range methodTabs {
		if m == a.method {
			active = i
		}
	}

	title := lipgloss.JoinHorizontal(
		lipgloss.Center,
		TitleStyle.Render("› visual search"),
		"  ",
		renderMuted(MsgFashionOnly),
	)

	rows := []string{
		title,
		"",
		renderTabs([]string{"Upload", "Image URL", "Demo"}, active),
		"",
	}

	switch a.method {
	case params.MethodUpload:
		rows = append(rows, renderInputFrame(a.pathInput.View(), a.pathInput.Focused(), a.pathInput.Width))
		if a.upload != nil {
			rows = append(rows, PreviewOKStyle.Render("✓ "+MsgUploadReady(a.upload.Filename, len(a.upload.Data))))
		} else {
			rows = append(rows, renderHelp(a.keys.Browse.Help().Key+": browse files"))
		}
	case params.MethodURL:
		rows = append(rows, renderInputFrame(a.urlInput.View(), a.urlInput.Focused(), a.urlInput.Width))
		rows = append(rows, a.previewLine())
	case params.MethodDemo:
		rows = append(rows, a.demoList.View())
	}

	rows = append(rows,
		"",
		renderGauge(a.gauge, "Threshold", a.thresholdPercent, 0, 100, "%"),
		renderGauge(a.gauge, "Results", a.resultCount, params.MinResultCount, params.MaxResultCount, ""),
	)

	return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// previewLine describes the newest preview check of the URL input.
func (a *App) previewLine() string {
	st := a.previewState
	var line string
	switch st.Kind {
	case preview.KindChecking:
		line = PreviewPendingStyle.Render("Checking image…")
	case preview.KindLoadable:
		desc := "✓ Image loads"
		if st.Format != "" {
			desc = fmt.Sprintf("✓ %s image, %d×%d", strings.ToUpper(st.Format), st.Width, st.Height)
		}
		line = PreviewOKStyle.Render(desc)
	case preview.KindUnloadable:
		line = StatusWarnStyle.Render("⚠ " + st.Reason)
	default:
		return ""
	}
	if a.link != nil && a.link.Changed() {
		line = lipgloss.JoinVertical(lipgloss.Left, line, renderMuted("→ "+truncateMiddle(a.link.ImageURL, a.width-8)))
	}
	return line
}

func (a *App) viewResults(height int) string {
	switch a.outcome.Kind {
	case orchestrator.KindLoading:
		return renderCentered(a.width, height, lipgloss.JoinVertical(
			lipgloss.Center,
			a.spinner.View()+" "+a.spinnerLabel,
			"",
			renderMuted(MsgFashionOnly),
		))
	case orchestrator.KindSuccess:
		return lipgloss.JoinVertical(
			lipgloss.Top,
			renderHeader("Similar Products", MsgFoundItems(len(a.outcome.Items)), a.width),
			a.resultList.View(),
		)
	case orchestrator.KindFailure:
		if a.outcome.Reason == orchestrator.ReasonNoResults {
			return renderCentered(a.width, height, lipgloss.JoinVertical(
				lipgloss.Center,
				StatusWarnStyle.Render(a.outcome.Message),
				"",
				renderHelp(MsgNoMatchesHint),
			))
		}
		return renderCentered(a.width, height, lipgloss.JoinVertical(
			lipgloss.Center,
			ErrorMessageStyle.Render("✗ "+a.outcome.Message),
			"",
			renderHelp("Press Esc to adjust the search"),
		))
	default:
		return renderCentered(a.width, height, GetWelcomeMessage())
	}
}

func (a *App) viewFind() string {
	header := "› find in history"
	if a.index != nil {
		if n, err := a.index.DocCount(); err == nil {
			header = fmt.Sprintf("› find in history (%s products)", humanize.Comma(int64(n)))
		}
	}

	helpText := ""
	switch {
	case a.findInput.Focused():
		helpText = "Type to search • Tab/↓: results • Esc: back"
	case len(a.findList.Items()) > 0:
		helpText = "↑↓: navigate • Enter: details • Tab/↑: search box • Esc: back"
	default:
		helpText = "No results found • Tab/↑: search box • Esc: back"
	}

	return lipgloss.JoinVertical(
		lipgloss.Top,
		HeaderStyle.Render(header),
		"",
		renderInputFrame(a.findInput.View(), a.findInput.Focused(), a.findInput.Width),
		renderMuted(helpText),
		"",
		a.findList.View(),
	)
}

func (a *App) getCustomStatusBar() string {
	if a.err != nil {
		return StatusBarStyleWithPadding().
			Width(a.width).
			Render(ErrorMessageStyle.Render(fmt.Sprintf("✗ %v", a.err)))
	}

	var left string
	if a.spinning && a.view != ViewResults {
		left = a.spinner.View() + " " + a.spinnerLabel
	} else if a.status != "" {
		left = a.statusKind.Style().Render(a.status)
	}

	commands := strings.Join(a.keyHandler.GetHelpForCurrentView(), " • ")
	if left == "" && commands == "" {
		return ""
	}
	if left != "" && commands != "" {
		left += renderMuted("  •  ")
	}
	return StatusBarStyleWithPadding().
		Width(a.width).
		Render(left + renderMuted(commands))
}

type demoItem struct {
	demo config.DemoImage
}

func (i demoItem) Title() string       { return i.demo.Label }
func (i demoItem) Description() string { return truncateMiddle(i.demo.URL, 60) }
func (i demoItem) FilterValue() string { return i.demo.Label }

type productItem struct {
	product api.Product
	rank    int
}

func (i productItem) Title() string {
	return fmt.Sprintf("%d. %s", i.rank, truncateText(i.product.Name, 50))
}

func (i productItem) Description() string {
	category := i.product.Category
	if category == "" {
		category = "Uncategorized"
	}
	return renderMuted(category+" • ") + SimilarityStyle.Render(formatSimilarity(i.product.Similarity)+" match")
}

func (i productItem) FilterValue() string { return i.product.Name + " " + i.product.Category }

type historyItem struct {
	record *storage.SearchRecord
}

func (i historyItem) Title() string {
	return fmt.Sprintf("[%s] %s", i.record.SourceKind, truncateMiddle(i.record.SourceLabel, 60))
}

func (i historyItem) Description() string {
	r := i.record
	result := r.Message
	if r.Outcome == orchestrator.KindSuccess.String() {
		result = fmt.Sprintf("%d items", len(r.Products))
	}
	when := TimeStyle.Render(" • " + humanize.Time(r.CreatedAt))
	return renderMuted(fmt.Sprintf("%s • %s", result, MsgSearchSummary(int(r.Threshold*100+0.5), r.ResultCount))) + when
}

func (i historyItem) FilterValue() string { return i.record.SourceLabel }

type seenItem struct {
	result *index.Result
}

func (i seenItem) Title() string { return truncateText(i.result.Product.Name, 50) }

func (i seenItem) Description() string {
	return renderMuted(fmt.Sprintf("%s • best %s • seen %d×",
		i.result.Product.Category, formatSimilarity(i.result.BestSimilarity), i.result.SeenCount))
}

func (i seenItem) FilterValue() string { return i.result.Product.Name }

// outcomeChangedMsg and previewChangedMsg only announce a change. Update
// reads the owning component, so a value captured before a newer submit
// or edit is never shown.
type outcomeChangedMsg struct{}

type previewChangedMsg struct{}

type previewDebounceMsg struct {
	seq int
}

type linkResolvedMsg struct {
	seq  int
	link *resolve.Link
}

type uploadLoadedMsg struct {
	source *params.UploadSource
	path   string
	submit bool
	err    error
}

type productRenderedMsg struct {
	content string
}

type historyLoadedMsg struct {
	records []*storage.SearchRecord
}

type historyDeletedMsg struct {
	err error
}

type findDebounceFireMsg struct {
	seq int
}

type findResultsMsg struct {
	seq     int
	results []*index.Result
}

type noticeMsg struct{}

type statusMsg struct {
	text string
	kind StatusKind
}

type errorMsg struct {
	err error
}
