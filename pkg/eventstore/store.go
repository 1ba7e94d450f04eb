// Package eventstore holds the per-execution append-only event logs and
// join set response collections that every view is reconstructed from.
package eventstore

import (
	"sync"

	"github.com/obeli-sk/webui/pkg/domain"
)

// Store accumulates events and responses for any number of executions.
// It is purely additive: nothing is ever reordered, deduplicated or removed.
// Callers guarantee that successive Append calls for one execution carry
// monotonic, non-overlapping pagination windows.
//
// Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	events    map[domain.ExecutionID][]domain.ExecutionEvent
	responses map[domain.ExecutionID]map[domain.JoinSetId][]domain.JoinSetResponse
}

// New creates an empty store.
func New() *Store {
	return &Store{
		events:    make(map[domain.ExecutionID][]domain.ExecutionEvent),
		responses: make(map[domain.ExecutionID]map[domain.JoinSetId][]domain.JoinSetResponse),
	}
}

// Append merges one pagination window into the execution's log and response
// collections. Responses are grouped under their join set in arrival order.
func (s *Store) Append(id domain.ExecutionID, events []domain.ExecutionEvent, responses []domain.JoinSetResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[id] = append(s.events[id], events...)

	if len(responses) == 0 {
		return
	}
	byJoinSet := s.responses[id]
	if byJoinSet == nil {
		byJoinSet = make(map[domain.JoinSetId][]domain.JoinSetResponse)
		s.responses[id] = byJoinSet
	}
	for _, resp := range responses {
		byJoinSet[resp.JoinSet] = append(byJoinSet[resp.JoinSet], resp)
	}
}

// Get returns the full ordered event slice and the join set response map of
// one execution. Both are copies; an execution without data yields empty
// results.
func (s *Store) Get(id domain.ExecutionID) ([]domain.ExecutionEvent, map[domain.JoinSetId][]domain.JoinSetResponse) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyEvents(s.events[id]), copyResponses(s.responses[id])
}

// Events returns a copy of the execution's ordered event log.
func (s *Store) Events(id domain.ExecutionID) []domain.ExecutionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyEvents(s.events[id])
}

// Snapshot is a read-only copy of the whole store, used to build trees and
// debugger frames without holding any lock.
type Snapshot struct {
	Events    map[domain.ExecutionID][]domain.ExecutionEvent
	Responses map[domain.ExecutionID]map[domain.JoinSetId][]domain.JoinSetResponse
}

// Snapshot copies the complete store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Events:    make(map[domain.ExecutionID][]domain.ExecutionEvent, len(s.events)),
		Responses: make(map[domain.ExecutionID]map[domain.JoinSetId][]domain.JoinSetResponse, len(s.responses)),
	}
	for id, events := range s.events {
		snap.Events[id] = copyEvents(events)
	}
	for id, byJoinSet := range s.responses {
		snap.Responses[id] = copyResponses(byJoinSet)
	}
	return snap
}

func copyEvents(events []domain.ExecutionEvent) []domain.ExecutionEvent {
	if events == nil {
		return nil
	}
	return append([]domain.ExecutionEvent(nil), events...)
}

func copyResponses(byJoinSet map[domain.JoinSetId][]domain.JoinSetResponse) map[domain.JoinSetId][]domain.JoinSetResponse {
	if byJoinSet == nil {
		return nil
	}
	out := make(map[domain.JoinSetId][]domain.JoinSetResponse, len(byJoinSet))
	for js, resps := range byJoinSet {
		out[js] = append([]domain.JoinSetResponse(nil), resps...)
	}
	return out
}
