// Package service wires the classifier, the conversation state machine and
// the calendar into the message-processing entry point a caller integrates
// with.
package service

import (
	"sync"
	"time"

	"github.com/bookwise-ai/booking-assistant/internal/model"
)

// ConversationStore is an in-memory conversation repository keyed by the
// caller-assigned conversation id. Turns for one conversation are serialized
// through a per-conversation lock so the availability re-check and the
// booking write of a single turn can never interleave with another turn of
// the same conversation.
type ConversationStore struct {
	mu    sync.RWMutex
	convs map[string]*model.ConversationState
	locks map[string]*sync.Mutex
}

// NewConversationStore creates an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		convs: make(map[string]*model.ConversationState),
		locks: make(map[string]*sync.Mutex),
	}
}

// Acquire returns the conversation for id, creating it on first use, with
// its turn lock held. The caller must call the returned release function
// when the turn is done.
func (s *ConversationStore) Acquire(id string, now time.Time) (*model.ConversationState, func()) {
	s.mu.Lock()
	conv, ok := s.convs[id]
	if !ok {
		conv = &model.ConversationState{
			ID:          id,
			CurrentNode: model.NodeStart,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.convs[id] = conv
		s.locks[id] = &sync.Mutex{}
	}
	lock := s.locks[id]
	s.mu.Unlock()

	lock.Lock()
	return conv, lock.Unlock
}

// Get returns a snapshot of a conversation for diagnostics. The snapshot is
// taken under the conversation's turn lock so it is never torn.
func (s *ConversationStore) Get(id string) (*model.ConversationState, bool) {
	s.mu.RLock()
	conv, ok := s.convs[id]
	lock := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	lock.Lock()
	snapshot := *conv
	lock.Unlock()
	return &snapshot, true
}

// Len reports the number of live conversations.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}
