// Package identity resolves raw device identifiers to registered
// participants. Device data is imperfect: some devices send the external
// participant code, others the numeric internal id.
package identity

import (
	"strconv"
	"strings"

	"github.com/mihrab-labs/salahstreak/internal/domain/model"
)

// Resolver maps raw device identifiers onto participants. Lookups try an
// exact code match first, then fall back to interpreting the identifier as
// a numeric internal id. An unmatched identifier is reported explicitly so
// callers never drop records silently.
type Resolver struct {
	byCode map[string]model.Participant
	byID   map[int64]model.Participant
}

// NewResolver builds a resolver over the given participant directory.
func NewResolver(participants []model.Participant) *Resolver {
	r := &Resolver{
		byCode: make(map[string]model.Participant, len(participants)),
		byID:   make(map[int64]model.Participant, len(participants)),
	}
	for _, p := range participants {
		r.byCode[p.Code] = p
		r.byID[p.ID] = p
	}
	return r
}

// Resolve returns the participant a raw device identifier belongs to.
// The second return value is false when the identifier matches nobody.
func (r *Resolver) Resolve(ref string) (model.Participant, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Participant{}, false
	}
	if p, ok := r.byCode[ref]; ok {
		return p, true
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if p, ok := r.byID[id]; ok {
			return p, true
		}
	}
	return model.Participant{}, false
}
