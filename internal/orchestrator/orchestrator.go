// Package orchestrator owns the single authoritative search outcome.
// Submissions run concurrently; only the newest one may publish.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/pders01/vsearch/internal/api"
	"github.com/pders01/vsearch/internal/config"
	"github.com/pders01/vsearch/internal/debuglog"
	"github.com/pders01/vsearch/internal/gen"
	"github.com/pders01/vsearch/internal/params"
)

const (
	MsgNoResults = "No results found"
	MsgFallback  = "Failed to search. Please try again."
)

type Kind int

const (
	KindIdle Kind = iota
	KindLoading
	KindSuccess
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	default:
		return "idle"
	}
}

// Reason tells the two kinds of Failure apart.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonNoResults: the search ran but matched nothing.
	ReasonNoResults
	// ReasonRequest: the request could not be completed.
	ReasonRequest
)

// Outcome is exactly one of idle, loading, success or failure. Items is
// non-empty only on success; Message only on failure.
type Outcome struct {
	Kind    Kind
	Items   []api.Product
	Message string
	Reason  Reason
}

func Idle() Outcome    { return Outcome{Kind: KindIdle} }
func Loading() Outcome { return Outcome{Kind: KindLoading} }

func Success(items []api.Product) Outcome {
	return Outcome{Kind: KindSuccess, Items: items}
}

func Failure(msg string, reason Reason) Outcome {
	return Outcome{Kind: KindFailure, Message: msg, Reason: reason}
}

// Searcher is the part of the API client the orchestrator needs.
type Searcher interface {
	UploadAndSearch(ctx context.Context, filename string, data []byte, mimeType string, k int, threshold float64) (*api.SearchResponse, error)
	SearchByURL(ctx context.Context, imageURL string, k int, threshold float64) (*api.SearchResponse, error)
}

// DemoCatalog resolves demo image ids to fetchable URLs.
type DemoCatalog interface {
	Demo(id string) (config.DemoImage, bool)
}

// Recorder is notified of every outcome that was actually published.
type Recorder func(p params.SearchParameters, out Outcome, elapsed time.Duration)

type Option func(*Orchestrator)

// WithRecorder registers a hook called after a submission's outcome is
// published. It runs on the submission goroutine.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithContext sets the parent context of every submission.
func WithContext(ctx context.Context) Option {
	return func(o *Orchestrator) { o.baseCtx = ctx }
}

type Orchestrator struct {
	searcher Searcher
	demos    DemoCatalog
	recorder Recorder
	baseCtx  context.Context

	tracker *gen.Tracker[Outcome]
}

func New(searcher Searcher, demos DemoCatalog, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		searcher: searcher,
		demos:    demos,
		baseCtx:  context.Background(),
		tracker:  gen.NewTracker(Idle()),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Outcome returns the published outcome.
func (o *Orchestrator) Outcome() Outcome {
	out, _ := o.tracker.Value()
	return out
}

// Changed receives after the published outcome changes.
func (o *Orchestrator) Changed() <-chan struct{} {
	return o.tracker.Changed()
}

// Submit publishes Loading, starts the search in the background and
// returns immediately. Earlier submissions still in flight can no longer
// publish. Their requests are not cancelled; the collaborator's answers
// are simply discarded.
func (o *Orchestrator) Submit(p params.SearchParameters) gen.Token {
	tok := o.tracker.Begin(Loading())
	go o.run(tok, p)
	return tok
}

// Wait blocks until tok has resolved or been superseded and returns the
// outcome published at that point.
func (o *Orchestrator) Wait(ctx context.Context, tok gen.Token) (Outcome, error) {
	select {
	case <-o.tracker.Done(tok):
		return o.Outcome(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Reset returns to Idle and supersedes any running submission.
func (o *Orchestrator) Reset() {
	tok := o.tracker.Begin(Idle())
	o.tracker.Resolve(tok, Idle())
}

func (o *Orchestrator) run(tok gen.Token, p params.SearchParameters) {
	start := time.Now()
	log := debuglog.WithFields(debuglog.Fields{
		"search": tok, "source": p.Source.Method(), "k": p.ResultCount, "threshold": p.Threshold,
	})

	out := o.search(o.baseCtx, p)
	elapsed := time.Since(start)

	if !o.tracker.Resolve(tok, out) {
		log.Debugf("discarding superseded %s after %s", out.Kind, elapsed)
		return
	}
	log.Infof("search %s: %d items in %s", out.Kind, len(out.Items), elapsed)

	if o.recorder != nil {
		o.recorder(p, out, elapsed)
	}
}

func (o *Orchestrator) search(ctx context.Context, p params.SearchParameters) Outcome {
	var (
		resp *api.SearchResponse
		err  error
	)

	switch src := p.Source.(type) {
	case params.UploadSource:
		resp, err = o.searcher.UploadAndSearch(ctx, src.Filename, src.Data, src.MIMEType, p.ResultCount, p.Threshold)
	case params.URLSource:
		resp, err = o.searcher.SearchByURL(ctx, src.URL, p.ResultCount, p.Threshold)
	case params.DemoSource:
		demo, ok := o.lookupDemo(src.ImageID)
		if !ok {
			return Failure(fmt.Sprintf("Unknown demo image: %s", src.ImageID), ReasonRequest)
		}
		resp, err = o.searcher.SearchByURL(ctx, demo.URL, p.ResultCount, p.Threshold)
	default:
		return Failure(MsgFallback, ReasonRequest)
	}

	if err != nil {
		return Failure(failureMessage(err), ReasonRequest)
	}
	return interpret(resp)
}

func (o *Orchestrator) lookupDemo(id string) (config.DemoImage, bool) {
	if o.demos == nil {
		return config.DemoImage{}, false
	}
	return o.demos.Demo(id)
}

// interpret maps a decoded response to an outcome. A successful response
// with no products counts as a failure.
func interpret(resp *api.SearchResponse) Outcome {
	if resp == nil || !resp.Success || len(resp.Products) == 0 {
		return Failure(MsgNoResults, ReasonNoResults)
	}
	items := make([]api.Product, len(resp.Products))
	copy(items, resp.Products)
	return Success(items)
}

// failureMessage prefers the collaborator's own error text.
func failureMessage(err error) string {
	if msg := api.ServiceMessage(err); msg != "" {
		return msg
	}
	return MsgFallback
}
