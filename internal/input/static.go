package input

import (
	"fmt"
	"sync"

	"github.com/srg/blepad/internal/axis"
)

// Static returns whatever values were last set. Unset channels read as Rest and
// unset pins as released. It is safe for concurrent use.
type Static struct {
	Rest axis.Sample

	mu      sync.RWMutex
	axes    map[int]axis.Sample
	buttons map[int]bool
	failing map[int]bool
}

// NewStatic creates a Static reader resting at rest.
func NewStatic(rest axis.Sample) *Static {
	return &Static{
		Rest:    rest,
		axes:    make(map[int]axis.Sample),
		buttons: make(map[int]bool),
		failing: make(map[int]bool),
	}
}

// SetAxis fixes the value of channel.
func (s *Static) SetAxis(channel int, v axis.Sample) {
	s.mu.Lock()
	s.axes[channel] = v
	s.mu.Unlock()
}

// SetButton fixes the state of pin.
func (s *Static) SetButton(pin int, pressed bool) {
	s.mu.Lock()
	s.buttons[pin] = pressed
	s.mu.Unlock()
}

// Fail makes reads of channel (or pin, they share the namespace) fail.
func (s *Static) Fail(channel int, fail bool) {
	s.mu.Lock()
	s.failing[channel] = fail
	s.mu.Unlock()
}

func (s *Static) ReadAxis(channel int) (axis.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing[channel] {
		return 0, fmt.Errorf("%w: channel %d", ErrReadFailed, channel)
	}
	if v, ok := s.axes[channel]; ok {
		return v, nil
	}
	return s.Rest, nil
}

func (s *Static) ReadButton(pin int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing[pin] {
		return false, fmt.Errorf("%w: pin %d", ErrReadFailed, pin)
	}
	return s.buttons[pin], nil
}
