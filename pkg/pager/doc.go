// Package pager implements the feed pagination state machine.
//
// A Pager owns the accumulated item list for the currently selected feed
// key and coordinates all page fetches for it: reset-and-load on section
// switches, guarded load-next on scroll, fallback content on initial-load
// failure, and wholesale discard of responses that resolve after the feed
// key has changed.
//
// Example usage:
//
//	client, _ := fetch.New(fetch.DefaultConfig(baseURL, userAgent))
//	p, _ := pager.New(pager.Config{Fetcher: client})
//
//	p.ResetAndLoad(ctx, feed.Key{Section: "tech"})
//	p.LoadNext(ctx)
//	snap := p.Snapshot()
//
// The pager guarantees:
//   - at most one load-more fetch in flight per feed key, never
//     concurrent with the initial load
//   - results of a superseded feed key are discarded, never merged
//   - no operation returns an error; failures are absorbed into the
//     observable Snapshot
//
// Scroll-driven triggering is wired through Sensor and the EndVisibility
// capability interface, keeping the engine testable without a viewport.
package pager
