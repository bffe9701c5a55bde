package pager

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EndVisibility is the capability interface over viewport observation.
// Implementations invoke the registered callback once per visibility
// transition of the end-of-list sentinel (edge-triggered). Re-entrant
// callbacks are expected and absorbed by the pager's guards.
type EndVisibility interface {
	OnApproachingEnd(fn func())
}

// Sensor drives LoadNext from sentinel visibility and from the manual
// "load more" action. Both triggers go through the pager's guarded path;
// the sensor itself never mutates pagination state.
type Sensor struct {
	pager  *Pager
	logger zerolog.Logger
}

// NewSensor creates a sensor for the given pager.
func NewSensor(p *Pager) *Sensor {
	return &Sensor{
		pager:  p,
		logger: log.With().Str("component", "feed-sensor").Logger(),
	}
}

// Bind registers the sensor with a visibility source. Each visibility
// edge triggers one guarded LoadNext on its own goroutine, since
// visibility callbacks must never block on network I/O.
func (s *Sensor) Bind(ctx context.Context, visibility EndVisibility) {
	visibility.OnApproachingEnd(func() {
		s.logger.Debug().Msg("Sentinel visible, requesting next page")
		go s.pager.LoadNext(ctx)
	})
}

// LoadMore is the manual trigger. It uses the identical guarded path as
// visibility-driven loads.
func (s *Sensor) LoadMore(ctx context.Context) {
	s.logger.Debug().Msg("Manual load-more requested")
	s.pager.LoadNext(ctx)
}
