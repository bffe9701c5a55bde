// Package feed defines the core data model shared by the pagination
// engine: feed items, feed keys, and the restricted-guest predicate.
package feed

import (
	"fmt"
	"strings"
	"time"
)

// GuestPrefix marks identity handles that belong to restricted guests.
// Guest identities are created client-side and must never reach the
// personalized-feed endpoints.
const GuestPrefix = "guest-"

// Item is a single feed entry. The engine treats it as an opaque record;
// only ID and Section participate in engine decisions.
type Item struct {
	// ID is the stable identifier, unique within one accumulated list
	// for a given feed key lifetime.
	ID string `json:"id"`

	// Section is the content section tag (e.g. "world", "tech").
	Section string `json:"section"`

	// Display fields, passed through untouched.
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Key identifies a logical feed: a section tag plus, for personalized
// feeds, the identity the feed is ranked for.
type Key struct {
	// Section is the content section tag.
	Section string

	// UserID is the opaque identity handle for personalized feeds.
	// Empty for public section feeds.
	UserID string
}

// Personalized reports whether the key denotes a personalized feed.
func (k Key) Personalized() bool {
	return k.UserID != ""
}

// String generates a deterministic key string.
// Format: feed:<section> or feed:<section>:user=<id>
//
// Example:
//
//	feed:tech
//	feed:foryou:user=u-8842
func (k Key) String() string {
	parts := []string{"feed"}

	section := strings.TrimSpace(k.Section)
	if section != "" {
		parts = append(parts, section)
	}

	if k.UserID != "" {
		parts = append(parts, fmt.Sprintf("user=%s", k.UserID))
	}

	return strings.Join(parts, ":")
}

// IsRestrictedGuest reports whether an identity handle is classified as a
// restricted guest. Guests are recognizable purely by handle prefix; no
// session lookup is involved.
func IsRestrictedGuest(handle string) bool {
	return strings.HasPrefix(handle, GuestPrefix)
}
