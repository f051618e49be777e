// Package clock resolves "now" in the marketplace's single fixed timezone.
// All pickup-window comparisons and payout periods use this zone.
package clock

import (
	"fmt"
	"time"
)

// Clock supplies the current time. Injected so services and tests control it
// instead of reading ambient wall-clock state.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// Service is the production clock pinned to one IANA zone.
type Service struct {
	loc *time.Location
}

// NewService loads the configured zone, e.g. "Asia/Almaty".
func NewService(timezone string) (*Service, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	return &Service{loc: loc}, nil
}

func (s *Service) Now() time.Time {
	return time.Now().In(s.loc)
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// In converts ts into the service zone.
func (s *Service) In(ts time.Time) time.Time {
	return ts.In(s.loc)
}

// Fixed is a frozen clock for tests.
type Fixed struct {
	Time time.Time
}

func (f Fixed) Now() time.Time {
	return f.Time
}

func (f Fixed) Location() *time.Location {
	return f.Time.Location()
}
