package input

import (
	"fmt"
	"strconv"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIO reads buttons wired to GPIO pins. With active-low wiring (button to
// ground, internal pull-up) a Low level means pressed.
type GPIO struct {
	pins      map[int]gpio.PinIn
	activeLow bool
}

// OpenGPIO initializes the host drivers and configures every pin as an input.
func OpenGPIO(pins []int, activeLow bool) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GPIO host: %w", err)
	}

	byNumber := make(map[int]gpio.PinIn, len(pins))
	for _, n := range pins {
		p := gpioreg.ByName(strconv.Itoa(n))
		if p == nil {
			return nil, fmt.Errorf("%w: GPIO%d", ErrNoChannel, n)
		}
		byNumber[n] = p
	}
	return NewGPIO(byNumber, activeLow)
}

// NewGPIO wraps already resolved pins.
func NewGPIO(pins map[int]gpio.PinIn, activeLow bool) (*GPIO, error) {
	pull := gpio.PullDown
	if activeLow {
		pull = gpio.PullUp
	}
	for n, p := range pins {
		if err := p.In(pull, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("failed to configure GPIO%d: %w", n, err)
		}
	}
	return &GPIO{pins: pins, activeLow: activeLow}, nil
}

func (g *GPIO) ReadButton(pin int) (bool, error) {
	p, ok := g.pins[pin]
	if !ok {
		return false, fmt.Errorf("%w: GPIO%d", ErrNoChannel, pin)
	}
	level := p.Read()
	if g.activeLow {
		return level == gpio.Low, nil
	}
	return level == gpio.High, nil
}
