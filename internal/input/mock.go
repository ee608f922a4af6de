package input

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/srg/blepad/internal/axis"
)

// MockOptions configures a Mock sensor.
type MockOptions struct {
	Rest     axis.Sample
	Noise    int     // peak noise in mV around the set value
	FailRate float64 // probability of a failed read, 0..1
	Seed     int64
}

// Mock is a noisy stand-in for the ADC. Values wander uniformly within Noise of
// whatever the embedded Static holds, and reads fail at FailRate. The same seed
// gives the same sequence.
type Mock struct {
	*Static

	mu       sync.Mutex
	rng      *rand.Rand
	noise    int
	failRate float64
}

// NewMock creates a Mock sensor.
func NewMock(opts MockOptions) *Mock {
	seed := uint64(opts.Seed)
	return &Mock{
		Static:   NewStatic(opts.Rest),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		noise:    max(opts.Noise, 0),
		failRate: opts.FailRate,
	}
}

func (m *Mock) ReadAxis(channel int) (axis.Sample, error) {
	base, err := m.Static.ReadAxis(channel)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failRate > 0 && m.rng.Float64() < m.failRate {
		return 0, fmt.Errorf("%w: channel %d (simulated)", ErrReadFailed, channel)
	}
	if m.noise == 0 {
		return base, nil
	}
	return base + axis.Sample(m.rng.IntN(2*m.noise+1)-m.noise), nil
}
