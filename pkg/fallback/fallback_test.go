package fallback

import (
	"testing"

	"github.com/feedkit/feedkit/pkg/feed"
)

func TestFallback_FiltersBySection(t *testing.T) {
	source := NewStatic()

	items := source.Fallback(feed.Key{Section: "tech"})
	if len(items) == 0 {
		t.Fatal("Expected non-empty fallback for a known section")
	}
	for _, item := range items {
		if item.Section != "tech" {
			t.Errorf("Item %q has section %q, want %q", item.ID, item.Section, "tech")
		}
	}
}

func TestFallback_PersonalizedGetsEverything(t *testing.T) {
	source := NewStatic()

	all := source.Fallback(feed.Key{Section: "foryou", UserID: "u-1"})
	if len(all) != len(builtinItems()) {
		t.Errorf("Got %d items, want the full dataset (%d)", len(all), len(builtinItems()))
	}
}

func TestFallback_UnknownSectionEmpty(t *testing.T) {
	source := NewStatic()

	items := source.Fallback(feed.Key{Section: "does-not-exist"})
	if len(items) != 0 {
		t.Errorf("Got %d items for unknown section, want 0", len(items))
	}
}

func TestFallback_ReturnsCopy(t *testing.T) {
	source := NewStatic()
	key := feed.Key{Section: "foryou", UserID: "u-1"}

	first := source.Fallback(key)
	first[0].Title = "mutated"

	second := source.Fallback(key)
	if second[0].Title == "mutated" {
		t.Error("Fallback must not share backing storage with callers")
	}
}

func TestFallback_CustomDataset(t *testing.T) {
	custom := []feed.Item{
		{ID: "c-1", Section: "local"},
		{ID: "c-2", Section: "local"},
		{ID: "c-3", Section: "weather"},
	}
	source := NewStaticWith(custom)

	items := source.Fallback(feed.Key{Section: "local"})
	if len(items) != 2 {
		t.Errorf("Got %d items, want 2", len(items))
	}
}

func TestBuiltinItems_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, item := range builtinItems() {
		if seen[item.ID] {
			t.Errorf("Duplicate fallback item ID %q", item.ID)
		}
		seen[item.ID] = true
	}
}
