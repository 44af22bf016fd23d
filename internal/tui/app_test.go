package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/vsearch/internal/api"
	"github.com/pders01/vsearch/internal/config"
	"github.com/pders01/vsearch/internal/index"
	"github.com/pders01/vsearch/internal/orchestrator"
	"github.com/pders01/vsearch/internal/params"
	"github.com/pders01/vsearch/internal/preview"
	"github.com/pders01/vsearch/internal/storage"
	"github.com/pders01/vsearch/internal/validation"
)

const twoProducts = `{"success":true,"products":[
	{"id":1,"name":"Canvas Sneaker","category":"Shoes","image_path":"images/1.jpg","similarity":0.873},
	{"id":2,"name":"Leather Sneaker","category":"Shoes","image_path":"images/2.jpg","similarity":0.81}]}`

// fakeService records requests and answers every search with body.
type fakeService struct {
	mu       sync.Mutex
	body     string
	requests []*http.Request
	payloads []map[string]any
	png      []byte
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/img.png":
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(f.png)
		return
	case "/api/search-url":
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.payloads = append(f.payloads, payload)
	case "/api/upload":
		_ = r.ParseMultipartForm(1 << 20)
	}
	f.requests = append(f.requests, r)
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, f.body)
}

func (f *fakeService) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.URL.Path
	}
	return out
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestApp(t *testing.T, body string, store *storage.Store, idx *index.Index) (*App, *fakeService, *httptest.Server) {
	t.Helper()
	svc := &fakeService{body: body, png: testPNG(t)}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	cfg := config.TestConfig()
	cfg.API.BaseURL = srv.URL

	app := NewApp(cfg, store, idx)
	app.builder = params.NewBuilder(validation.NewPermissiveImageURLValidator())
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return app, svc, srv
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "history.db"), time.Second, 10)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(a *App, msg tea.KeyMsg) tea.Cmd {
	_, cmd := a.Update(msg)
	return cmd
}

// settle feeds outcome notifications back into the app until the newest
// search has left Loading.
func settle(t *testing.T, a *App) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		done := make(chan tea.Msg, 1)
		go func() { done <- a.waitForOutcome()() }()
		select {
		case msg := <-done:
			a.Update(msg)
		case <-deadline:
			t.Fatal("search did not settle")
		}
		if a.outcome.Kind != orchestrator.KindLoading {
			return
		}
	}
}

func TestViewStateTransitions(t *testing.T) {
	tests := []struct {
		name         string
		initialView  View
		msg          tea.KeyMsg
		expectedView View
		setupFunc    func(*App)
	}{
		{
			name:         "ViewSearch to ViewHistory on ctrl+r",
			initialView:  ViewSearch,
			msg:          tea.KeyMsg{Type: tea.KeyCtrlR},
			expectedView: ViewHistory,
		},
		{
			name:         "ViewHistory to ViewSearch on Escape",
			initialView:  ViewHistory,
			msg:          tea.KeyMsg{Type: tea.KeyEsc},
			expectedView: ViewSearch,
		},
		{
			name:         "ViewResults to ViewSearch on Escape",
			initialView:  ViewResults,
			msg:          tea.KeyMsg{Type: tea.KeyEsc},
			expectedView: ViewSearch,
		},
		{
			name:         "ViewResults to ViewDetail on Enter",
			initialView:  ViewResults,
			msg:          tea.KeyMsg{Type: tea.KeyEnter},
			expectedView: ViewDetail,
			setupFunc: func(a *App) {
				a.resultList.SetItems([]list.Item{productItem{product: api.Product{ID: "1", Name: "Sneaker"}, rank: 1}})
			},
		},
		{
			name:         "ViewDetail back to ViewResults on Escape",
			initialView:  ViewDetail,
			msg:          tea.KeyMsg{Type: tea.KeyEsc},
			expectedView: ViewResults,
			setupFunc: func(a *App) {
				a.detailFrom = ViewResults
			},
		},
		{
			name:         "ViewSearch to ViewFind on ctrl+f",
			initialView:  ViewSearch,
			msg:          tea.KeyMsg{Type: tea.KeyCtrlF},
			expectedView: ViewFind,
		},
		{
			name:         "ViewFind back to previous view on Escape",
			initialView:  ViewFind,
			msg:          tea.KeyMsg{Type: tea.KeyEsc},
			expectedView: ViewResults,
			setupFunc: func(a *App) {
				a.previousView = ViewResults
			},
		},
		{
			name:         "ViewSearch to ViewBrowse on ctrl+b in upload mode",
			initialView:  ViewSearch,
			msg:          tea.KeyMsg{Type: tea.KeyCtrlB},
			expectedView: ViewBrowse,
			setupFunc: func(a *App) {
				a.setMethod(params.MethodUpload)
			},
		},
		{
			name:         "ctrl+b ignored outside upload mode",
			initialView:  ViewSearch,
			msg:          tea.KeyMsg{Type: tea.KeyCtrlB},
			expectedView: ViewSearch,
		},
		{
			name:         "ViewBrowse to ViewSearch on Escape",
			initialView:  ViewBrowse,
			msg:          tea.KeyMsg{Type: tea.KeyEsc},
			expectedView: ViewSearch,
		},
		{
			name:         "ctrl+d returns to the form from history",
			initialView:  ViewHistory,
			msg:          tea.KeyMsg{Type: tea.KeyCtrlD},
			expectedView: ViewSearch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			idx, err := index.Open(store, "")
			require.NoError(t, err)
			t.Cleanup(func() { idx.Close() })

			app, _, _ := newTestApp(t, twoProducts, store, idx)
			app.view = tt.initialView
			if tt.setupFunc != nil {
				tt.setupFunc(app)
			}

			updatedModel, _ := app.Update(tt.msg)
			updatedApp := updatedModel.(*App)

			assert.Equal(t, tt.expectedView, updatedApp.view)
		})
	}
}

func TestHistoryAndFindUnavailableWithoutStore(t *testing.T) {
	app, _, _ := newTestApp(t, twoProducts, nil, nil)

	press(app, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, ViewSearch, app.view)
	assert.Equal(t, StatusWarn, app.statusKind)

	press(app, tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.Equal(t, ViewSearch, app.view)
	assert.Equal(t, MsgIndexUnavailable, app.status)
}

func TestSubmitValidationErrorStaysOnForm(t *testing.T) {
	app, svc, _ := newTestApp(t, twoProducts, nil, nil)
	require.Equal(t, params.MethodURL, app.method)

	press(app, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ViewSearch, app.view)
	assert.Equal(t, StatusError, app.statusKind)
	assert.Contains(t, app.status, "url")
	assert.Equal(t, orchestrator.KindIdle, app.outcome.Kind)
	assert.Empty(t, svc.paths())
}

func TestDemoSearchShowsResults(t *testing.T) {
	app, svc, _ := newTestApp(t, twoProducts, nil, nil)

	press(app, tea.KeyMsg{Type: tea.KeyCtrlD})
	require.Equal(t, params.MethodDemo, app.method)
	press(app, tea.KeyMsg{Type: tea.KeyDown})

	press(app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewResults, app.view)
	assert.Equal(t, orchestrator.KindLoading, app.outcome.Kind)
	assert.True(t, app.spinning)
	assert.Contains(t, app.View(), MsgSearching)

	settle(t, app)

	require.Equal(t, orchestrator.KindSuccess, app.outcome.Kind)
	assert.False(t, app.spinning)
	assert.Len(t, app.resultList.Items(), 2)
	assert.Equal(t, "Found 2 visually similar items", app.status)
	assert.Contains(t, app.View(), "87.3%")

	require.Len(t, svc.payloads, 1)
	assert.Equal(t, config.DefaultDemos()[1].URL, svc.payloads[0]["url"])
	assert.Equal(t, float64(20), svc.payloads[0]["k"])
	assert.Equal(t, 0.3, svc.payloads[0]["threshold"])
}

func TestEmptyResultsRenderNoMatches(t *testing.T) {
	app, _, _ := newTestApp(t, `{"success":true,"products":[]}`, nil, nil)
	press(app, tea.KeyMsg{Type: tea.KeyCtrlD})
	press(app, tea.KeyMsg{Type: tea.KeyEnter})
	settle(t, app)

	assert.Equal(t, orchestrator.KindFailure, app.outcome.Kind)
	assert.Equal(t, orchestrator.ReasonNoResults, app.outcome.Reason)
	assert.Equal(t, StatusWarn, app.statusKind)
	assert.Contains(t, app.View(), "No results found")
	assert.Empty(t, app.resultList.Items())
}

func TestOutcomeRendering(t *testing.T) {
	tests := []struct {
		name       string
		outcome    orchestrator.Outcome
		wantKind   StatusKind
		wantInView string
	}{
		{
			name:       "request failure",
			outcome:    orchestrator.Failure("Service unavailable", orchestrator.ReasonRequest),
			wantKind:   StatusError,
			wantInView: "Service unavailable",
		},
		{
			name:       "no results",
			outcome:    orchestrator.Failure(orchestrator.MsgNoResults, orchestrator.ReasonNoResults),
			wantKind:   StatusWarn,
			wantInView: MsgNoMatchesHint,
		},
		{
			name:       "success",
			outcome:    orchestrator.Success([]api.Product{{ID: "1", Name: "Scarf", Category: "Accessories", Similarity: 0.5}}),
			wantKind:   StatusSuccess,
			wantInView: "Found 1 visually similar items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _ := newTestApp(t, twoProducts, nil, nil)
			app.view = ViewResults
			app.spinning = true

			app.applyOutcome(tt.outcome)

			assert.False(t, app.spinning)
			assert.Equal(t, tt.wantKind, app.statusKind)
			assert.Contains(t, app.View(), tt.wantInView)
		})
	}
}

func TestNewestSubmitWins(t *testing.T) {
	release := make(chan struct{})
	slow := config.DefaultDemos()[0].URL
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["url"] == slow {
			<-release
			_, _ = io.WriteString(w, `{"success":true,"products":[{"id":9,"name":"Stale","similarity":0.9}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"products":[{"id":1,"name":"Fresh","similarity":0.7}]}`)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	cfg := config.TestConfig()
	cfg.API.BaseURL = srv.URL
	app := NewApp(cfg, nil, nil)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	press(app, tea.KeyMsg{Type: tea.KeyCtrlD})
	press(app, tea.KeyMsg{Type: tea.KeyEnter})
	press(app, tea.KeyMsg{Type: tea.KeyEsc})
	press(app, tea.KeyMsg{Type: tea.KeyDown})
	press(app, tea.KeyMsg{Type: tea.KeyEnter})

	settle(t, app)
	require.Equal(t, orchestrator.KindSuccess, app.outcome.Kind)
	assert.Equal(t, "Fresh", app.outcome.Items[0].Name)
}

func TestOutcomeNoticeReadsNewestSearch(t *testing.T) {
	release := make(chan struct{})
	slow := config.DefaultDemos()[1].URL
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["url"] == slow {
			<-release
		}
		_, _ = io.WriteString(w, `{"success":true,"products":[{"id":1,"name":"Old","similarity":0.5}]}`)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	cfg := config.TestConfig()
	cfg.API.BaseURL = srv.URL
	app := NewApp(cfg, nil, nil)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	press(app, tea.KeyMsg{Type: tea.KeyCtrlD})
	press(app, tea.KeyMsg{Type: tea.KeyEnter})
	settle(t, app)
	require.Equal(t, orchestrator.KindSuccess, app.outcome.Kind)

	// The first search's change notice is still queued when the second
	// search starts.
	press(app, tea.KeyMsg{Type: tea.KeyEsc})
	press(app, tea.KeyMsg{Type: tea.KeyDown})
	press(app, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, orchestrator.KindLoading, app.orchestrator.Outcome().Kind)

	_, cmd := app.Update(outcomeChangedMsg{})
	assert.NotNil(t, cmd, "listener must be re-armed")
	assert.Equal(t, orchestrator.KindLoading, app.outcome.Kind)
	assert.True(t, app.spinning)
	assert.Equal(t, MsgSearching, app.spinnerLabel)
	assert.NotContains(t, app.status, "Found")
	assert.Contains(t, app.View(), MsgSearching)
}

func TestLoadingOutcomeRestartsSpinner(t *testing.T) {
	app, _, _ := newTestApp(t, twoProducts, nil, nil)
	app.stopSpinner()

	cmd := app.applyOutcome(orchestrator.Loading())

	assert.NotNil(t, cmd)
	assert.True(t, app.spinning)
	assert.Equal(t, MsgSearching, app.spinnerLabel)
}

func TestThresholdAndCountKeys(t *testing.T) {
	app, _, _ := newTestApp(t, twoProducts, nil, nil)
	require.True(t, app.urlInput.Focused())

	// Typed characters go to the URL input while it has focus.
	press(app, runeKey("]"))
	assert.Equal(t, 30, app.thresholdPercent)
	assert.Equal(t, "]", app.urlInput.Value())

	press(app, tea.KeyMsg{Type: tea.KeyTab})
	require.False(t, app.urlInput.Focused())

	press(app, runeKey("]"))
	assert.Equal(t, 35, app.thresholdPercent)
	press(app, runeKey("["))
	press(app, runeKey("["))
	assert.Equal(t, 25, app.thresholdPercent)

	press(app, runeKey("{"))
	assert.Equal(t, 15, app.resultCount)

	app.thresholdPercent = 100
	app.resultCount = params.MaxResultCount
	press(app, runeKey("]"))
	press(app, runeKey("}"))
	assert.Equal(t, 100, app.thresholdPercent)
	assert.Equal(t, params.MaxResultCount, app.resultCount)

	app.resultCount = params.MinResultCount
	press(app, runeKey("{"))
	assert.Equal(t, params.MinResultCount, app.resultCount)
}

func TestURLEditsSupersedePendingPreview(t *testing.T) {
	app, _, _ := newTestApp(t, twoProducts, nil, nil)

	press(app, runeKey("h"))
	first := app.previewSeq
	press(app, runeKey("t"))
	assert.Greater(t, app.previewSeq, first)

	_, cmd := app.Update(previewDebounceMsg{seq: first})
	assert.Nil(t, cmd, "stale debounce must not start a check")

	for app.urlInput.Value() != "" {
		press(app, tea.KeyMsg{Type: tea.KeyBackspace})
	}
	assert.Equal(t, preview.KindIdle, app.preview.Current().Kind)
}

func TestURLPreviewBecomesLoadable(t *testing.T) {
	app, _, srv := newTestApp(t, twoProducts, nil, nil)

	app.urlInput.SetValue(srv.URL + "/img.png")
	app.schedulePreview()
	seq := app.previewSeq

	_, cmd := app.Update(previewDebounceMsg{seq: seq})
	require.NotNil(t, cmd)
	resolved := cmd()
	require.IsType(t, linkResolvedMsg{}, resolved)

	_, cmd = app.Update(resolved)
	require.NotNil(t, cmd)
	cmd()

	st := app.preview.Current()
	assert.Equal(t, preview.KindLoadable, st.Kind)
	assert.Equal(t, 4, st.Width)

	app.Update(previewChangedMsg{})
	assert.Contains(t, app.View(), "PNG image, 4×3")
}

func TestPreviewOfEditedURLIsDropped(t *testing.T) {
	app, _, srv := newTestApp(t, twoProducts, nil, nil)
	target := srv.URL + "/img.png"
	app.urlInput.SetValue(target)

	st, err := app.preview.Check(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, preview.KindLoadable, st.Kind)

	press(app, runeKey("x"))
	require.Equal(t, target+"x", app.urlInput.Value())
	assert.Equal(t, preview.KindIdle, app.previewState.Kind)

	// Change notice from the check of the earlier URL.
	app.Update(previewChangedMsg{})
	assert.Equal(t, preview.KindIdle, app.previewState.Kind)
	assert.NotContains(t, app.View(), "PNG image")
}

func TestUploadPathSubmitsAfterLoading(t *testing.T) {
	app, svc, _ := newTestApp(t, twoProducts, nil, nil)

	path := filepath.Join(t.TempDir(), "shoe.png")
	require.NoError(t, os.WriteFile(path, testPNG(t), 0o600))

	press(app, tea.KeyMsg{Type: tea.KeyCtrlU})
	require.Equal(t, params.MethodUpload, app.method)
	app.pathInput.SetValue(path)

	cmd := press(app, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, ViewSearch, app.view)

	loaded := cmd()
	require.IsType(t, uploadLoadedMsg{}, loaded)
	app.Update(loaded)

	require.NotNil(t, app.upload)
	assert.Equal(t, "shoe.png", app.upload.Filename)
	assert.Equal(t, "image/png", app.upload.MIMEType)
	assert.Equal(t, ViewResults, app.view)

	settle(t, app)
	assert.Equal(t, orchestrator.KindSuccess, app.outcome.Kind)
	assert.Equal(t, []string{"/api/upload"}, svc.paths())
}

func TestUploadRejectsNonImage(t *testing.T) {
	app, _, _ := newTestApp(t, twoProducts, nil, nil)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	press(app, tea.KeyMsg{Type: tea.KeyCtrlU})
	app.pathInput.SetValue(path)
	cmd := press(app, tea.KeyMsg{Type: tea.KeyEnter})
	app.Update(cmd())

	assert.Nil(t, app.upload)
	assert.Equal(t, ViewSearch, app.view)
	assert.Equal(t, StatusError, app.statusKind)
}

func TestHistoryRecordsAndReruns(t *testing.T) {
	store := newTestStore(t)
	idx, err := index.Open(store, "")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	app, svc, _ := newTestApp(t, twoProducts, store, idx)
	press(app, tea.KeyMsg{Type: tea.KeyCtrlD})
	press(app, tea.KeyMsg{Type: tea.KeyEnter})
	settle(t, app)

	require.Eventually(t, func() bool {
		recs, err := store.RecentSearches(10)
		if err != nil || len(recs) != 1 {
			return false
		}
		n, err := idx.DocCount()
		return err == nil && n == 2
	}, 2*time.Second, 10*time.Millisecond)

	cmd := press(app, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Equal(t, ViewHistory, app.view)
	app.Update(cmd())
	require.Len(t, app.historyList.Items(), 1)
	assert.Contains(t, app.View(), "demo/sneakers.jpg")

	press(app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewResults, app.view)
	settle(t, app)
	assert.Len(t, svc.paths(), 2)
}

func TestFindSeenProducts(t *testing.T) {
	store := newTestStore(t)
	rec := &storage.SearchRecord{
		SourceKind: "url", SourceLabel: "https://img.example/a.jpg", Outcome: "success",
		Products: []api.Product{{ID: "5", Name: "Silk Scarf", Category: "Accessories", Similarity: 0.66}},
	}
	require.NoError(t, store.SaveSearch(rec))
	idx, err := index.Open(store, "")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	app, _, _ := newTestApp(t, twoProducts, store, idx)
	press(app, tea.KeyMsg{Type: tea.KeyCtrlF})
	require.Equal(t, ViewFind, app.view)

	var cmd tea.Cmd
	for _, r := range "scarf" {
		cmd = press(app, runeKey(string(r)))
	}
	require.NotNil(t, cmd)
	assert.Equal(t, "scarf", app.pendingFindQuery)

	_, cmd = app.Update(findDebounceFireMsg{seq: app.findSeq})
	require.NotNil(t, cmd)
	app.Update(cmd())

	require.Len(t, app.findList.Items(), 1)
	assert.Contains(t, app.View(), "Silk Scarf")

	press(app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewDetail, app.view)
	require.NotNil(t, app.current)
	assert.Equal(t, api.ProductID("5"), app.current.ID)
}

func TestPreferencesRestored(t *testing.T) {
	store := newTestStore(t)

	app, _, _ := newTestApp(t, twoProducts, store, nil)
	press(app, tea.KeyMsg{Type: tea.KeyCtrlD})
	press(app, tea.KeyMsg{Type: tea.KeyDown})
	press(app, tea.KeyMsg{Type: tea.KeyDown})
	app.thresholdPercent = 45
	app.resultCount = 35
	app.savePreferences()()

	restored, _, _ := newTestApp(t, twoProducts, store, nil)
	assert.Equal(t, params.MethodDemo, restored.method)
	assert.Equal(t, 45, restored.thresholdPercent)
	assert.Equal(t, 35, restored.resultCount)
	sel := restored.selections()
	assert.Equal(t, config.DefaultDemos()[2].ID, sel.DemoID)
}

func TestBackendNotice(t *testing.T) {
	app, _, _ := newTestApp(t, twoProducts, nil, nil)
	assert.NotContains(t, app.View(), "Heads up")

	app.Update(noticeMsg{})
	assert.Contains(t, app.View(), "Heads up")

	press(app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, app.showNotice)
	assert.NotContains(t, app.View(), "Heads up")
}

func TestProductDetailRendering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/1", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":1,"name":"Canvas Sneaker","category":"Shoes","image_path":"images/1.jpg"}`)
	}))
	t.Cleanup(srv.Close)

	cfg := config.TestConfig()
	cfg.API.BaseURL = srv.URL
	app := NewApp(cfg, nil, nil)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	app.view = ViewResults
	app.resultList.SetItems([]list.Item{productItem{product: api.Product{ID: "1", Name: "Canvas Sneaker", Similarity: 0.873}, rank: 1}})

	cmd := press(app, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewDetail, app.view)
	assert.True(t, app.loadingDetail)

	rendered := app.renderProduct(*app.current)()
	app.Update(rendered)
	assert.NotNil(t, cmd)
	assert.False(t, app.loadingDetail)

	view := app.View()
	assert.Contains(t, view, "Canvas Sneaker")
	assert.Contains(t, view, "87.3%")
	assert.True(t, strings.Contains(view, "Shoes"))
}
