// Package session ties one filter resolver to one pricing tracker and
// exposes the pair over HTTP. Selections are persisted between requests;
// the resolver and tracker are rebuilt from the stored selection.
package session

import (
	"context"

	"pricewatch/internal/filters"
	"pricewatch/internal/pricing"
	"pricewatch/pkg/logger"
)

// Session is one browser's filter cascade and the pricing model of its
// current file id.
type Session struct {
	ID string

	resolver    *filters.Resolver
	tracker     *pricing.Tracker
	logger      *logger.Logger
	unsubscribe func()
}

func New(id string, resolver *filters.Resolver, tracker *pricing.Tracker, l *logger.Logger) *Session {
	if l == nil {
		l = logger.GetDefault()
	}
	s := &Session{
		ID:       id,
		resolver: resolver,
		tracker:  tracker,
		logger:   l.WithSessionID(id),
	}
	s.unsubscribe = resolver.Subscribe(s.onSnapshot)
	return s
}

// onSnapshot drops a pricing model the selection no longer points at, so a
// pending probe never shows prices of the previous combination.
func (s *Session) onSnapshot(snap filters.Snapshot) {
	if current := s.tracker.State().FileID; current != "" && current != snap.CurrentFileID {
		s.tracker.Clear()
	}
}

// Close detaches the session from its resolver.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Restore replays sel without loading pricing.
func (s *Session) Restore(ctx context.Context, sel filters.Selection) error {
	_, err := s.resolver.Restore(ctx, sel)
	return err
}

// Sync loads the pricing model for the current file id unless it is
// already tracked, or clears it when the selection is incomplete.
func (s *Session) Sync(ctx context.Context) View {
	s.tracker.Ensure(ctx, s.resolver.Snapshot().CurrentFileID)
	return s.View()
}

func (s *Session) SetCountry(ctx context.Context, country string) (View, error) {
	return s.transition(ctx, func() (filters.Snapshot, error) {
		return s.resolver.SetCountry(ctx, country)
	})
}

func (s *Session) SetPackage(ctx context.Context, pkg string) (View, error) {
	return s.transition(ctx, func() (filters.Snapshot, error) {
		return s.resolver.SetPackage(ctx, pkg)
	})
}

func (s *Session) SetDeparturePoint(ctx context.Context, departure string) (View, error) {
	return s.transition(ctx, func() (filters.Snapshot, error) {
		return s.resolver.SetDeparturePoint(ctx, departure)
	})
}

func (s *Session) SetPartySize(ctx context.Context, n int) (View, error) {
	return s.transition(ctx, func() (filters.Snapshot, error) {
		return s.resolver.SetPartySize(ctx, n)
	})
}

// Refetch reloads the pricing model of the current file id. A failed
// refetch is reported through the view, not as an error.
func (s *Session) Refetch(ctx context.Context) (View, error) {
	if _, err := s.tracker.Refetch(ctx, s.resolver.Snapshot().CurrentFileID); err != nil {
		return s.View(), err
	}
	return s.View(), nil
}

// View returns the current filters and pricing.
func (s *Session) View() View {
	return View{
		SessionID: s.ID,
		Filters:   s.resolver.Snapshot(),
		Pricing:   newPricingView(s.tracker.State()),
	}
}

func (s *Session) transition(ctx context.Context, set func() (filters.Snapshot, error)) (View, error) {
	snap, err := set()
	if err != nil {
		return s.View(), err
	}
	s.tracker.Ensure(ctx, snap.CurrentFileID)
	return s.View(), nil
}
