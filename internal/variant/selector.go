package variant

import (
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"

	"github.com/shiftpages/funneltrace/internal/identity"
	"github.com/shiftpages/funneltrace/internal/model"
)

// storageKey is the state-store key holding the persisted variant id.
const storageKey = "hook_variant"

// OverrideParam is the URL query parameter that forces a variant.
const OverrideParam = "variant"

// DefaultVariants returns the built-in hook variant set. The display
// texts are placeholders; deployments supply their own copy.
func DefaultVariants() []model.VariantSelection {
	return []model.VariantSelection{
		{
			ID:                 "A",
			Label:              "Personalized hook",
			TagText:            "FOR MOTHERS",
			HeroHeading:        "You are one shift away",
			HighlightedMessage: "From pushing to them wanting it themselves",
			PersonalizeHeading: true,
		},
		{
			ID:                 "B",
			Label:              "Static hook",
			TagText:            "FOR MOTHERS",
			HeroHeading:        "You are one shift away",
			HighlightedMessage: "From pushing to them wanting it themselves",
			PersonalizeHeading: false,
		},
	}
}

// Selector picks and persists a hook variant.
// It is safe for concurrent use.
type Selector struct {
	store    *identity.Store
	variants []model.VariantSelection
	logger   *slog.Logger

	// randIndex picks a variant index for first-time visitors.
	// Replaceable for deterministic tests.
	randIndex func(n int) int

	mu          sync.Mutex
	subscribers []func(model.VariantSelection)
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets a custom logger for the selector.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) {
		s.logger = logger
	}
}

// WithRand sets the random index source used for first-time picks.
func WithRand(randIndex func(n int) int) Option {
	return func(s *Selector) {
		s.randIndex = randIndex
	}
}

// NewSelector creates a selector over the given variant set, persisting
// choices in store. An empty variant set falls back to DefaultVariants.
func NewSelector(store *identity.Store, variants []model.VariantSelection, opts ...Option) *Selector {
	s := &Selector{
		store:     store,
		variants:  variants,
		randIndex: rand.IntN,
	}

	for _, opt := range opts {
		opt(s)
	}

	if len(s.variants) == 0 {
		s.variants = DefaultVariants()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Subscribe registers a callback invoked with the selection made by
// each subsequent Select call.
func (s *Selector) Subscribe(fn func(model.VariantSelection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Select resolves the variant for a page view, in priority order:
// a valid URL override, the persisted choice, then a uniform random
// pick which is persisted for future loads. The selection is announced
// to subscribers before returning.
func (s *Selector) Select(pageURL string) model.VariantSelection {
	selected, fromOverride := s.resolve(pageURL)

	// Overrides are for previewing a specific variant; they do not
	// clobber the visitor's persisted assignment.
	if !fromOverride {
		if err := s.store.Save(storageKey, selected.ID); err != nil {
			s.logger.Debug("variant choice not persisted", "variant", selected.ID, "error", err)
		}
	}

	s.notify(selected)
	return selected
}

// resolve applies the override/persisted/random priority chain.
func (s *Selector) resolve(pageURL string) (sel model.VariantSelection, fromOverride bool) {
	if v, ok := s.overrideFrom(pageURL); ok {
		return v, true
	}

	if saved, ok := s.store.Load(storageKey); ok {
		if v, ok := s.byID(saved); ok {
			return v, false
		}
		// A stale id from an older variant set; re-pick below.
		s.logger.Debug("persisted variant unknown, re-picking", "variant", saved)
	}

	return s.variants[s.randIndex(len(s.variants))], false
}

// overrideFrom extracts and validates the URL override parameter.
// Unknown ids are ignored so a typo cannot select a non-existent variant.
func (s *Selector) overrideFrom(pageURL string) (model.VariantSelection, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return model.VariantSelection{}, false
	}

	raw := u.Query().Get(OverrideParam)
	if raw == "" {
		return model.VariantSelection{}, false
	}

	return s.byID(strings.ToUpper(strings.TrimSpace(raw)))
}

// byID finds a variant by identifier.
func (s *Selector) byID(id string) (model.VariantSelection, bool) {
	for _, v := range s.variants {
		if v.ID == id {
			return v, true
		}
	}
	return model.VariantSelection{}, false
}

// notify announces a selection to all subscribers.
func (s *Selector) notify(sel model.VariantSelection) {
	s.mu.Lock()
	subscribers := make([]func(model.VariantSelection), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(sel)
	}
}
