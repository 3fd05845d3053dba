package commission

import (
	"errors"

	"tarifario/internal"
)

var (
	ErrNoRecord        = errors.New("no record selected")
	ErrChannelDisabled = errors.New("channel disabled for record")
)

// Selector tracks the active record, its channel availability and the chosen channel. It never
// keeps an estimate for a channel the active record cannot use.
type Selector struct {
	record   *internal.FeeRecord
	states   []internal.ChannelState
	channel  internal.ChannelID
	estimate *internal.Estimate
}

func NewSelector() *Selector {
	return &Selector{}
}

// SetRecord switches the active record and recomputes availability. A selected channel that is
// still enabled is re-estimated for the new record; otherwise the selection is cleared.
func (s *Selector) SetRecord(r internal.FeeRecord) []internal.ChannelState {
	s.record = &r
	s.states = Availability(r)

	if s.channel != "" {
		if Eligible(r, s.channel) {
			est := Estimate(r, s.channel)
			s.estimate = &est
		} else {
			s.clear()
		}
	}
	return s.states
}

func (s *Selector) Select(id internal.ChannelID) (internal.Estimate, error) {
	if s.record == nil {
		return internal.Estimate{}, ErrNoRecord
	}
	est := Estimate(*s.record, id)
	if !est.Eligible {
		s.clear()
		return est, ErrChannelDisabled
	}
	s.channel = id
	s.estimate = &est
	return est, nil
}

// Current returns the selected channel and its estimate, or "" and nil.
func (s *Selector) Current() (internal.ChannelID, *internal.Estimate) {
	return s.channel, s.estimate
}

func (s *Selector) Availability() []internal.ChannelState {
	return s.states
}

func (s *Selector) clear() {
	s.channel = ""
	s.estimate = nil
}
