package variant

import (
	"testing"

	"github.com/shiftpages/funneltrace/internal/identity"
	"github.com/shiftpages/funneltrace/internal/model"
)

// TestSelectRandomThenPersisted verifies a first-time pick is random,
// persisted, and then sticky even when a different random draw would occur.
func TestSelectRandomThenPersisted(t *testing.T) {
	t.Parallel()

	store := identity.NewStore(t.TempDir())

	// Force the first pick to land on "B".
	selector := NewSelector(store, nil, WithRand(func(int) int { return 1 }))
	first := selector.Select("https://example.com/")
	if first.ID != "B" {
		t.Fatalf("expected forced first pick B, got %q", first.ID)
	}

	// A new selector over the same store would randomly draw "A", but
	// the persisted choice must win.
	sticky := NewSelector(store, nil, WithRand(func(int) int { return 0 }))
	if got := sticky.Select("https://example.com/"); got.ID != "B" {
		t.Errorf("expected persisted B, got %q", got.ID)
	}
}

// TestSelectOverride verifies the URL override parameter.
func TestSelectOverride(t *testing.T) {
	t.Parallel()

	t.Run("override wins over persisted choice", func(t *testing.T) {
		t.Parallel()
		store := identity.NewStore(t.TempDir())
		if err := store.Save("hook_variant", "A"); err != nil {
			t.Fatal(err)
		}

		selector := NewSelector(store, nil)
		if got := selector.Select("https://example.com/?variant=B"); got.ID != "B" {
			t.Errorf("expected override B, got %q", got.ID)
		}
	})

	t.Run("override is case-normalized", func(t *testing.T) {
		t.Parallel()
		selector := NewSelector(identity.NewStore(t.TempDir()), nil)
		if got := selector.Select("https://example.com/?variant=b"); got.ID != "B" {
			t.Errorf("expected normalized B, got %q", got.ID)
		}
	})

	t.Run("unknown override is ignored", func(t *testing.T) {
		t.Parallel()
		store := identity.NewStore(t.TempDir())
		if err := store.Save("hook_variant", "A"); err != nil {
			t.Fatal(err)
		}

		selector := NewSelector(store, nil)
		if got := selector.Select("https://example.com/?variant=Z"); got.ID != "A" {
			t.Errorf("expected persisted A when override invalid, got %q", got.ID)
		}
	})

	t.Run("override does not overwrite persisted choice", func(t *testing.T) {
		t.Parallel()
		store := identity.NewStore(t.TempDir())
		if err := store.Save("hook_variant", "A"); err != nil {
			t.Fatal(err)
		}

		selector := NewSelector(store, nil)
		_ = selector.Select("https://example.com/?variant=B")

		if saved, _ := store.Load("hook_variant"); saved != "A" {
			t.Errorf("expected persisted choice to stay A, got %q", saved)
		}
	})
}

// TestSelectStaleStoredVariant verifies an id from an older variant set
// triggers a re-pick instead of returning an unknown variant.
func TestSelectStaleStoredVariant(t *testing.T) {
	t.Parallel()

	store := identity.NewStore(t.TempDir())
	if err := store.Save("hook_variant", "C"); err != nil {
		t.Fatal(err)
	}

	selector := NewSelector(store, nil, WithRand(func(int) int { return 0 }))
	if got := selector.Select("https://example.com/"); got.ID != "A" {
		t.Errorf("expected re-pick A, got %q", got.ID)
	}
	if saved, _ := store.Load("hook_variant"); saved != "A" {
		t.Errorf("expected re-pick persisted, got %q", saved)
	}
}

// TestSubscribe verifies subscribers see each selection.
func TestSubscribe(t *testing.T) {
	t.Parallel()

	selector := NewSelector(identity.NewStore(t.TempDir()), nil, WithRand(func(int) int { return 0 }))

	var seen []model.VariantSelection
	selector.Subscribe(func(sel model.VariantSelection) {
		seen = append(seen, sel)
	})

	_ = selector.Select("https://example.com/")
	_ = selector.Select("https://example.com/?variant=B")

	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if seen[0].ID != "A" || seen[1].ID != "B" {
		t.Errorf("expected notifications A then B, got %q then %q", seen[0].ID, seen[1].ID)
	}
}
