package storage

import (
	"time"

	"github.com/pders01/vsearch/internal/debuglog"
	"github.com/pders01/vsearch/internal/orchestrator"
	"github.com/pders01/vsearch/internal/params"
)

// NewRecord builds the history entry for a published outcome.
func NewRecord(p params.SearchParameters, out orchestrator.Outcome, elapsed time.Duration) *SearchRecord {
	rec := &SearchRecord{
		Threshold:   p.Threshold,
		ResultCount: p.ResultCount,
		Outcome:     out.Kind.String(),
		Message:     out.Message,
		Products:    out.Items,
		ElapsedMS:   elapsed.Milliseconds(),
	}
	if p.Source != nil {
		rec.SourceKind = p.Source.Method().String()
		rec.SourceLabel = p.Source.Label()
	}
	return rec
}

// Recorder returns an orchestrator hook that persists every published
// outcome and then calls each onSaved callback with the stored record.
func (s *Store) Recorder(onSaved ...func(*SearchRecord)) orchestrator.Recorder {
	return func(p params.SearchParameters, out orchestrator.Outcome, elapsed time.Duration) {
		rec := NewRecord(p, out, elapsed)
		if err := s.SaveSearch(rec); err != nil {
			debuglog.Warnf("saving search history: %v", err)
			return
		}
		for _, fn := range onSaved {
			fn(rec)
		}
	}
}
