package history

import "github.com/agenttop/agenttop/internal/telemetry"

// index maintains id, role, and tag lookups over the store's entries.
// Every entry removed from the log must also be removed here.
type index struct {
	byID   map[string]telemetry.ConversationEntry
	byRole map[telemetry.Role]map[string]struct{}
	byTag  map[string]map[string]struct{}
}

func newIndex() *index {
	return &index{
		byID:   make(map[string]telemetry.ConversationEntry),
		byRole: make(map[telemetry.Role]map[string]struct{}),
		byTag:  make(map[string]map[string]struct{}),
	}
}

func (ix *index) add(e telemetry.ConversationEntry) {
	ix.byID[e.ID] = e

	ids, ok := ix.byRole[e.Role]
	if !ok {
		ids = make(map[string]struct{})
		ix.byRole[e.Role] = ids
	}
	ids[e.ID] = struct{}{}

	for _, tag := range e.Tags {
		ids, ok := ix.byTag[tag]
		if !ok {
			ids = make(map[string]struct{})
			ix.byTag[tag] = ids
		}
		ids[e.ID] = struct{}{}
	}
}

func (ix *index) remove(e telemetry.ConversationEntry) {
	delete(ix.byID, e.ID)

	if ids, ok := ix.byRole[e.Role]; ok {
		delete(ids, e.ID)
		if len(ids) == 0 {
			delete(ix.byRole, e.Role)
		}
	}
	for _, tag := range e.Tags {
		if ids, ok := ix.byTag[tag]; ok {
			delete(ids, e.ID)
			if len(ids) == 0 {
				delete(ix.byTag, tag)
			}
		}
	}
}

// candidates returns the ids that satisfy the query's role and tag
// filters. The caller still applies the full predicate; this only narrows
// the set that has to be checked.
func (ix *index) candidates(q Query) map[string]struct{} {
	var sets []map[string]struct{}
	if q.Role != "" {
		sets = append(sets, ix.byRole[q.Role])
	}
	for _, tag := range q.Tags {
		sets = append(sets, ix.byTag[tag])
	}

	if len(sets) == 0 {
		return ix.allIDs()
	}

	// Intersect starting from the smallest set.
	smallest := sets[0]
	for _, s := range sets[1:] {
		if len(s) < len(smallest) {
			smallest = s
		}
	}

	out := make(map[string]struct{}, len(smallest))
outer:
	for id := range smallest {
		for _, s := range sets {
			if _, ok := s[id]; !ok {
				continue outer
			}
		}
		out[id] = struct{}{}
	}
	return out
}

func (ix *index) allIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(ix.byID))
	for id := range ix.byID {
		out[id] = struct{}{}
	}
	return out
}
