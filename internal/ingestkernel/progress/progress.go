// Package progress implements the per-source multi-phase progress/state
// machine: IngestionState and the Manager that owns one live state per
// source path, dispatching its success or failure callback exactly once.
package progress

import (
	"sync"

	"brag/internal/ingestkernel"
)

// PhaseProgress tracks current/total counters for one ingestion phase.
// Percentage is undefined (returns -1) until Total is set to a positive
// value.
type PhaseProgress struct {
	mu      sync.Mutex
	current int
	total   int
}

func (p *PhaseProgress) SetTotal(total int) {
	p.mu.Lock()
	p.total = total
	p.mu.Unlock()
}

func (p *PhaseProgress) SetCurrent(current int) {
	p.mu.Lock()
	p.current = current
	p.mu.Unlock()
}

func (p *PhaseProgress) Increment(delta int) {
	if delta < 0 {
		return
	}
	p.mu.Lock()
	p.current += delta
	p.mu.Unlock()
}

// Snapshot returns (current, total, percentage). percentage is -1 when
// total <= 0.
func (p *PhaseProgress) Snapshot() (current, total int, percentage float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total <= 0 {
		return p.current, p.total, -1
	}
	return p.current, p.total, float64(p.current) / float64(p.total) * 100
}

// State is the per-source ingestion state: current phase, per-phase
// progress, and the (at most once) success/failure callbacks. Phases
// progress monotonically INIT -> (DOWNLOAD -> TRANSCRIPTION)? -> EMBEDDING
// -> STORING; the Manager does not itself enforce the monotonic phase
// order (callers add phases in the right sequence), but it does guarantee
// PhaseProgress.current is never set backwards via Increment.
type State struct {
	SourcePath   string
	mu           sync.Mutex
	currentPhase ingestkernel.Phase
	phases       map[ingestkernel.Phase]*PhaseProgress

	once    sync.Once
	onDone  func(success bool)
}

func newState(source string) *State {
	return &State{
		SourcePath: source,
		phases:     make(map[ingestkernel.Phase]*PhaseProgress),
	}
}

// GetOrCreatePhase returns the PhaseProgress for phase, creating it (with
// total 0) if absent, and advances CurrentPhase to phase.
func (s *State) GetOrCreatePhase(phase ingestkernel.Phase) *PhaseProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPhase = phase
	p, ok := s.phases[phase]
	if !ok {
		p = &PhaseProgress{}
		s.phases[phase] = p
	}
	return p
}

// CurrentPhase returns the most recently touched phase.
func (s *State) CurrentPhase() ingestkernel.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPhase
}

// Phase returns the PhaseProgress for phase if it exists.
func (s *State) Phase(phase ingestkernel.Phase) (*PhaseProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.phases[phase]
	return p, ok
}

// onComplete invokes the completion callback installed at creation (onDone)
// at most once: sync.Once makes every call after the first a no-op.
func (s *State) onComplete(success bool) {
	s.once.Do(func() {
		if s.onDone != nil {
			s.onDone(success)
		}
	})
}

// ToDict mirrors the reference implementation's IngestionState.to_dict():
// a snapshot of phase percentages keyed by phase name.
func (s *State) ToDict() map[string]any {
	s.mu.Lock()
	phases := make(map[ingestkernel.Phase]*PhaseProgress, len(s.phases))
	for k, v := range s.phases {
		phases[k] = v
	}
	current := s.currentPhase
	s.mu.Unlock()

	out := map[string]any{"current_phase": string(current)}
	phaseDict := make(map[string]any, len(phases))
	for phase, pp := range phases {
		cur, total, pct := pp.Snapshot()
		phaseDict[string(phase)] = map[string]any{
			"current":    cur,
			"total":      total,
			"percentage": pct,
		}
	}
	out["phases"] = phaseDict
	return out
}

// Manager owns at most one live State per source path, exactly as the
// reference SourceIngestionProgressManager does.
type Manager struct {
	mu     sync.Mutex
	states map[string]*State
}

// NewManager constructs an empty progress manager.
func NewManager() *Manager {
	return &Manager{states: make(map[string]*State)}
}

// CreateState creates (or replaces) the IngestionState for source, wiring
// success/failure callbacks that fire at most once and then remove the
// state. Callers typically follow this immediately with AddPhase(INIT, 1).
func (m *Manager) CreateState(source string, onSuccess, onFailure func()) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newState(source)
	s.onDone = func(success bool) {
		if success {
			if onSuccess != nil {
				onSuccess()
			}
		} else if onFailure != nil {
			onFailure()
		}
		m.mu.Lock()
		delete(m.states, source)
		m.mu.Unlock()
	}
	m.states[source] = s
	return s
}

// GetState returns the live state for source, or nil if none exists.
func (m *Manager) GetState(source string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[source]
}

// AddPhase creates (if absent) the state for source and sets phase's total,
// mirroring add_phase's "creates state if absent" behavior. It is a no-op
// producing a fresh untracked state if CreateState was never called — in
// that case the phase progress is tracked but no callback ever fires, which
// matches the reference's lenient add_phase when called out of order.
func (m *Manager) AddPhase(source string, phase ingestkernel.Phase, total int) *PhaseProgress {
	m.mu.Lock()
	s, ok := m.states[source]
	if !ok {
		s = newState(source)
		m.states[source] = s
	}
	m.mu.Unlock()
	pp := s.GetOrCreatePhase(phase)
	pp.SetTotal(total)
	return pp
}

// SetPhaseTotal sets phase's total for source, if the state exists.
func (m *Manager) SetPhaseTotal(source string, phase ingestkernel.Phase, total int) {
	s := m.GetState(source)
	if s == nil {
		return
	}
	s.GetOrCreatePhase(phase).SetTotal(total)
}

// SetPhaseProgress sets phase's current counter for source, if the state
// exists.
func (m *Manager) SetPhaseProgress(source string, phase ingestkernel.Phase, current int) {
	s := m.GetState(source)
	if s == nil {
		return
	}
	s.GetOrCreatePhase(phase).SetCurrent(current)
}

// IncrementPhaseProgress advances phase's current counter for source by
// delta, if the state exists.
func (m *Manager) IncrementPhaseProgress(source string, phase ingestkernel.Phase, delta int) {
	s := m.GetState(source)
	if s == nil {
		return
	}
	s.GetOrCreatePhase(phase).Increment(delta)
}

// GetPhasePercentage returns the percentage for source/phase, or -1 if
// unknown or total is unset.
func (m *Manager) GetPhasePercentage(source string, phase ingestkernel.Phase) float64 {
	s := m.GetState(source)
	if s == nil {
		return -1
	}
	pp, ok := s.Phase(phase)
	if !ok {
		return -1
	}
	_, _, pct := pp.Snapshot()
	return pct
}

// RemoveSourceState deletes source's state without firing any callback,
// used by administrative deletes (e.g. re-ingest overwrite).
func (m *Manager) RemoveSourceState(source string) {
	m.mu.Lock()
	delete(m.states, source)
	m.mu.Unlock()
}

// MarkCompleted fires the success callback (exactly once) and removes the
// state.
func (m *Manager) MarkCompleted(source string) {
	s := m.GetState(source)
	if s == nil {
		return
	}
	s.onComplete(true)
}

// MarkFailed fires the failure callback (exactly once) and removes the
// state.
func (m *Manager) MarkFailed(source string) {
	s := m.GetState(source)
	if s == nil {
		return
	}
	s.onComplete(false)
}
