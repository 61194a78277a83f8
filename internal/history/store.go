// Package history holds the capacity-capped conversation log and its
// optional search index. The store performs no locking; the owning
// dashboard guards all access.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/agenttop/agenttop/internal/telemetry"
)

const (
	// DefaultSearchLimit applies when a query specifies no limit.
	DefaultSearchLimit = 100
	// MaxSearchLimit clamps unreasonably large query limits.
	MaxSearchLimit = 1000
)

// Store is an append-only, capacity-capped conversation log. When the log
// exceeds its cap, the oldest entries are evicted FIFO and purged from the
// search index.
type Store struct {
	entries []telemetry.ConversationEntry
	max     int
	idx     *index
}

// NewStore creates a Store capped at maxEntries (clamped to at least 1).
// When indexed is true, entries are additionally indexed by id, role, and
// tag for filtered searches.
func NewStore(maxEntries int, indexed bool) *Store {
	if maxEntries < 1 {
		maxEntries = 1
	}
	s := &Store{max: maxEntries}
	if indexed {
		s.idx = newIndex()
	}
	return s
}

// Add appends an entry to the log, indexing it when an index is
// configured, and evicts the oldest entries until the log fits the cap.
func (s *Store) Add(entry telemetry.ConversationEntry) {
	s.entries = append(s.entries, entry)
	if s.idx != nil {
		s.idx.add(entry)
	}
	for len(s.entries) > s.max {
		oldest := s.entries[0]
		s.entries = s.entries[1:]
		if s.idx != nil {
			s.idx.remove(oldest)
		}
	}
}

// Len returns the number of entries currently stored.
func (s *Store) Len() int {
	return len(s.entries)
}

// Recent returns the most recent min(n, Len) entries, oldest first.
func (s *Store) Recent(n int) []telemetry.ConversationEntry {
	if n < 1 || len(s.entries) == 0 {
		return nil
	}
	if n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]telemetry.ConversationEntry, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}

// ByID returns the entry with the given id. Uses the index when
// configured, a scan otherwise.
func (s *Store) ByID(id string) (telemetry.ConversationEntry, bool) {
	if s.idx != nil {
		e, ok := s.idx.byID[id]
		return e, ok
	}
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return telemetry.ConversationEntry{}, false
}

// Query describes a history search. Zero-valued fields are not applied.
type Query struct {
	// Text is a case-insensitive substring match on entry content.
	Text string
	// Role restricts results to entries with this role.
	Role telemetry.Role
	// From and To bound the entry timestamp inclusively.
	From time.Time
	To   time.Time
	// Tags lists required tags; an entry must carry all of them.
	Tags []string
	// Limit caps the result count; clamped to MaxSearchLimit, defaulted
	// to DefaultSearchLimit when unset.
	Limit int
	// Descending sorts newest-first when true, oldest-first otherwise.
	Descending bool
}

// matches applies the full query predicate to one entry. Both the indexed
// and the linear search path evaluate this same predicate, so the two
// paths produce identical results.
func (q Query) matches(e telemetry.ConversationEntry) bool {
	if q.Text != "" && !strings.Contains(strings.ToLower(e.Content), strings.ToLower(q.Text)) {
		return false
	}
	if q.Role != "" && e.Role != q.Role {
		return false
	}
	if !q.From.IsZero() && e.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && e.Timestamp.After(q.To) {
		return false
	}
	for _, tag := range q.Tags {
		if !e.HasTag(tag) {
			return false
		}
	}
	return true
}

// Search returns entries matching the query, sorted by timestamp. With an
// index configured, role and tag filters narrow the candidate set before
// the predicate runs; without one the whole log is scanned. Results are
// identical either way.
func (s *Store) Search(q Query) []telemetry.ConversationEntry {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	// The candidate set only narrows which entries get the predicate;
	// walking s.entries keeps insertion order, so entries with equal
	// timestamps sort identically on both paths.
	var candidates map[string]struct{}
	if s.idx != nil && (q.Role != "" || len(q.Tags) > 0) {
		candidates = s.idx.candidates(q)
	}

	var matched []telemetry.ConversationEntry
	for _, e := range s.entries {
		if candidates != nil {
			if _, ok := candidates[e.ID]; !ok {
				continue
			}
		}
		if q.matches(e) {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if q.Descending {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// All returns a copy of the full log, oldest first.
func (s *Store) All() []telemetry.ConversationEntry {
	out := make([]telemetry.ConversationEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
