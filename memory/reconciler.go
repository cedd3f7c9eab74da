package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/visionnaire/assistant-go/core"
)

// Reconciler merges persisted per-user history with the live session history
// into the single ordered message sequence supplied to generation.
//
// Merge policy: at most MaxHistory most-recent persisted messages, then the
// full session history, then the new message last. The bound keeps token
// growth in check while the session tail preserves in-session continuity.
type Reconciler struct {
	store  Store
	probe  []float32
	config *Config
}

// NewReconciler creates a Reconciler. dims must match the embedding size of
// the chat namespace.
func NewReconciler(store Store, dims int, config *Config) *Reconciler {
	if config == nil {
		config = DefaultConfig
	}
	return &Reconciler{
		store:  store,
		probe:  neutralProbe(dims),
		config: config,
	}
}

// Reconcile builds the history for one turn. The returned sequence is
// chronological, ends with the new message, and never exceeds
// MaxHistory + len(session) + 1 entries.
//
// A persisted-history fetch failure degrades to an empty persisted set and
// is reported through the returned error; the history itself is always
// usable and the turn must proceed with it.
func (r *Reconciler) Reconcile(ctx context.Context, userID string, session []core.Message, newMessage string) ([]core.Message, error) {
	persisted, err := r.fetchPersisted(ctx, userID)
	if err != nil {
		persisted = nil
		err = fmt.Errorf("fetch persisted history: %w", err)
	}

	if max := r.config.MaxHistory; len(persisted) > max {
		persisted = persisted[len(persisted)-max:]
	}

	history := make([]core.Message, 0, len(persisted)+len(session)+1)
	history = append(history, persisted...)
	history = append(history, session...)
	history = append(history, core.NewHumanMessage(newMessage))
	return history, err
}

// fetchPersisted loads the user's chat log from the store and returns it as
// chronologically ordered messages. The store query is a metadata filter in
// disguise: the probe vector is neutral and scores are ignored.
func (r *Reconciler) fetchPersisted(ctx context.Context, userID string) ([]core.Message, error) {
	filter := map[string]string{core.MetaUserID: userID}
	matches, err := r.store.Query(ctx, ChatNamespace, r.probe, filter, r.config.FetchLimit)
	if err != nil {
		return nil, err
	}

	// The store returns matches ordered by score. Chronological order comes
	// from the timestamp metadata; records without one sort first.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Metadata[core.MetaTimestamp] < matches[j].Metadata[core.MetaTimestamp]
	})

	var history []core.Message
	for _, match := range matches {
		meta := core.TurnMetadataFromMap(match.Metadata)
		history = append(history, meta.Messages()...)
	}
	return history, nil
}

// neutralProbe builds a unit vector with no directional preference, used
// when a query is only a metadata filter.
func neutralProbe(dims int) []float32 {
	if dims <= 0 {
		dims = 1
	}
	probe := make([]float32, dims)
	v := float32(1.0 / math.Sqrt(float64(dims)))
	for i := range probe {
		probe[i] = v
	}
	return probe
}
