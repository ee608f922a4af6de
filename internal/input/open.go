package input

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/srg/blepad/internal/axis"
	"github.com/srg/blepad/pkg/config"
)

// Hardware pairs the ADC with the GPIO buttons.
type Hardware struct {
	*IIO
	*GPIO
}

// Open builds the reader selected by cfg.Input.Driver. Readers holding OS
// resources implement io.Closer.
func Open(cfg *config.Config, logger *logrus.Logger) (Reader, error) {
	in := cfg.Input

	switch in.Driver {
	case config.DriverMock:
		return NewMock(MockOptions{
			Rest:     axis.Sample(in.MockRestMV),
			Noise:    in.MockNoise,
			FailRate: in.MockFailRate,
			Seed:     in.Seed,
		}), nil

	case config.DriverScript:
		return LoadScript(in.ScriptPath)

	case config.DriverLua:
		return LoadLua(in.ScriptPath, axis.Sample(cfg.Calibration.FallbackMV), logger)

	case config.DriverHardware:
		s := cfg.Sticks
		adc, err := OpenIIO(in.IIODevice,
			[]int{s.LeftX, s.LeftY, s.RightX, s.RightY, s.LeftTrigger, s.RightTrigger}, logger)
		if err != nil {
			return nil, err
		}
		buttons, err := OpenGPIO(cfg.Buttons.Pins(), in.ActiveLow)
		if err != nil {
			return nil, errors.Join(err, adc.Close())
		}
		return &Hardware{IIO: adc, GPIO: buttons}, nil

	default:
		return nil, fmt.Errorf("unknown input driver %q", in.Driver)
	}
}
