package pager

import (
	"github.com/feedkit/feedkit/pkg/feed"
)

// Snapshot is the read-only projection of pagination state handed to UI
// adapters. All fields are copies; mutating a Snapshot never affects the
// Pager.
type Snapshot struct {
	// Key is the currently selected feed key.
	Key feed.Key

	// Items is the accumulated, ordered item list.
	Items []feed.Item

	// Cursor is the highest page successfully merged so far.
	Cursor int

	// Exhausted is true once the upstream source has no further pages
	// for this feed key. Terminal until the next reset.
	Exhausted bool

	// InitialLoading is true while the page-1 fetch of a reset is pending.
	InitialLoading bool

	// LoadingMore is true while a load-next fetch is pending.
	LoadingMore bool

	// LastError holds a human-readable message for the most recent
	// failure, or the advisory message for a forbidden personalized
	// fetch. Empty when the last operation succeeded.
	LastError string
}

// Empty reports whether the snapshot holds no items.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Loading reports whether any fetch is currently pending.
func (s Snapshot) Loading() bool {
	return s.InitialLoading || s.LoadingMore
}
