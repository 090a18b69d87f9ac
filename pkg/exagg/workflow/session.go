// Package workflow drives the scan, review and finalize cycle over one workbook.
package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/ukaji3/exagg-go/pkg/exagg"
	"github.com/ukaji3/exagg-go/pkg/exagg/aggregate"
	"github.com/ukaji3/exagg-go/pkg/exagg/grid"
	"github.com/ukaji3/exagg-go/pkg/exagg/models"
	"github.com/ukaji3/exagg-go/pkg/exagg/resolve"
)

// State is the session's position in the workflow.
type State int

const (
	Idle State = iota
	Scanning
	Reviewing
	Finalizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Reviewing:
		return "reviewing"
	case Finalizing:
		return "finalizing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session owns one workbook for a scan → review → finalize cycle.
// Methods are safe to call from several goroutines; a call made in the wrong
// state fails with exagg.ErrInvalidState.
type Session struct {
	wb grid.Workbook

	mu       sync.Mutex
	state    State
	scanned  *models.AggregationResult
	edited   *models.AggregationResult
	edits    map[string]string
	audit    resolve.Audit
	mappings []models.KeyMapping
}

// NewSession returns an idle session over wb.
func NewSession(wb grid.Workbook) *Session {
	return &Session{wb: wb}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) transition(to State, from ...State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range from {
		if s.state == f {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move from %s to %s", exagg.ErrInvalidState, s.state, to)
}

// reset drops every result and returns to Idle.
func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Idle
	s.scanned, s.edited, s.edits, s.audit, s.mappings = nil, nil, nil, nil, nil
}

// Scan runs the aggregation and enters Reviewing. A session already in Reviewing
// may rescan, discarding its edits. On any error the session returns to Idle.
func (s *Session) Scan(ctx context.Context, cfg aggregate.Config, progress models.ProgressFunc) (*models.AggregationResult, error) {
	if err := s.transition(Scanning, Idle, Reviewing); err != nil {
		return nil, err
	}
	res, err := aggregate.Run(ctx, s.wb, cfg, progress)
	if err != nil {
		s.reset()
		if exagg.IsCancelled(err) {
			zerolog.Ctx(ctx).Info().Msg("scan cancelled")
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reviewing
	s.scanned, s.edited, s.edits = res, res, nil
	s.audit = resolve.Audit{}
	s.mappings = resolve.Mappings(res, res)
	return res, nil
}

// Edit replaces the key edits and re-resolves the scan result. Every call starts
// from the scanned result, so edits do not stack across calls.
func (s *Session) Edit(edits map[string]string) (*models.AggregationResult, resolve.Audit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Reviewing {
		return nil, nil, fmt.Errorf("%w: edit while %s", exagg.ErrInvalidState, s.state)
	}
	out, audit := resolve.Apply(s.scanned, edits)
	s.edits = make(map[string]string, len(edits))
	for k, v := range edits {
		s.edits[k] = v
	}
	s.edited, s.audit = out, audit
	s.mappings = resolve.Mappings(s.scanned, out)
	return out, audit, nil
}

// Result returns the current (edited) result, or nil outside Reviewing.
func (s *Session) Result() *models.AggregationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Reviewing {
		return nil
	}
	return s.edited
}

// Mappings returns the term to key audit for the current edits.
func (s *Session) Mappings() []models.KeyMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.KeyMapping(nil), s.mappings...)
}

// Reset abandons the current cycle. It fails while a scan or finalize is running.
func (s *Session) Reset() error {
	if err := s.transition(Idle, Idle, Reviewing); err != nil {
		return err
	}
	s.reset()
	return nil
}
