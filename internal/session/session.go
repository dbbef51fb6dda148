// Package session keeps the per-browser page state that must survive a reload: the last
// keyword results and the last semantic search with its analysis.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tinytelemetry/logsearch/internal/model"
)

// KeywordResult is the last keyword search of a session.
type KeywordResult struct {
	Query   model.KeywordQuery
	Records []model.LogRecord
	RanAt   time.Time
}

// SemanticResult is the last semantic search of a session.
type SemanticResult struct {
	Query    model.SemanticQuery
	Records  []model.LogRecord
	Analysis string
	RanAt    time.Time
}

// State is everything stored for one session. Nil members mean "no search yet".
type State struct {
	Keyword  *KeywordResult
	Semantic *SemanticResult
	// Notice is a one-shot message shown after a redirect.
	Notice string
	Error  string
}

// Store is an expiring LRU of session states.
type Store struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, State]
}

// NewStore keeps at most capacity sessions, each for ttl after its last write.
func NewStore(capacity int, ttl time.Duration) *Store {
	if capacity <= 0 {
		capacity = model.DefaultSessionCapacity
	}
	if ttl <= 0 {
		ttl = model.DefaultSessionTTL
	}
	return &Store{cache: expirable.NewLRU[string, State](capacity, nil, ttl)}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an id from NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the state for id, or the zero State.
func (s *Store) Get(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, _ := s.cache.Get(id)
	return st
}

// Update applies fn to the state for id and stores the result.
func (s *Store) Update(id string, fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, _ := s.cache.Get(id)
	fn(&st)
	s.cache.Add(id, st)
}

// TakeFlash returns and clears the one-shot notice and error for id.
func (s *Store) TakeFlash(id string) (notice, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.cache.Get(id)
	if !ok {
		return "", ""
	}
	notice, errMsg = st.Notice, st.Error
	if notice != "" || errMsg != "" {
		st.Notice, st.Error = "", ""
		s.cache.Add(id, st)
	}
	return notice, errMsg
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}
