package input

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blepad/internal/axis"
	"golang.org/x/sys/unix"
)

// IIO reads ADC channels through the Linux Industrial I/O sysfs interface:
// <dir>/in_voltageN_raw scaled by in_voltageN_scale (or the shared
// in_voltage_scale) into millivolts.
//
// Raw attribute files stay open; each read is a pread at offset 0, which makes
// the kernel sample the channel again.
type IIO struct {
	dir    string
	logger *logrus.Logger

	mu     sync.Mutex
	files  map[int]*os.File
	scales map[int]float64
}

// OpenIIO opens the raw attribute of every non-negative channel.
func OpenIIO(dir string, channels []int, logger *logrus.Logger) (*IIO, error) {
	if logger == nil {
		logger = noopLogger
	}
	d := &IIO{
		dir:    dir,
		logger: logger,
		files:  make(map[int]*os.File),
		scales: make(map[int]float64),
	}

	for _, ch := range channels {
		if ch < 0 {
			continue
		}
		if _, ok := d.files[ch]; ok {
			continue
		}
		f, err := os.Open(filepath.Join(dir, fmt.Sprintf("in_voltage%d_raw", ch)))
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("failed to open ADC channel %d: %w", ch, err)
		}
		d.files[ch] = f
		d.scales[ch] = d.scaleFor(ch)

		logger.WithFields(logrus.Fields{
			"channel": ch,
			"scale":   d.scales[ch],
		}).Debug("Opened ADC channel")
	}
	return d, nil
}

func (d *IIO) scaleFor(ch int) float64 {
	for _, name := range []string{fmt.Sprintf("in_voltage%d_scale", ch), "in_voltage_scale"} {
		data, err := os.ReadFile(filepath.Join(d.dir, name))
		if err != nil {
			continue
		}
		s, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
		if err != nil || s <= 0 {
			d.logger.WithField("file", name).Warn("Ignoring unparsable ADC scale")
			continue
		}
		return s
	}
	return 1
}

func (d *IIO) ReadAxis(channel int) (axis.Sample, error) {
	d.mu.Lock()
	f, ok := d.files[channel]
	scale := d.scales[channel]
	d.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: ADC channel %d", ErrNoChannel, channel)
	}

	var buf [32]byte
	n, err := unix.Pread(int(f.Fd()), buf[:], 0)
	if err != nil {
		return 0, fmt.Errorf("%w: ADC channel %d: %w", ErrReadFailed, channel, err)
	}
	raw, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return 0, fmt.Errorf("%w: ADC channel %d: %w", ErrReadFailed, channel, err)
	}
	return axis.Sample(math.Round(float64(raw) * scale)), nil
}

// Close releases every open attribute file.
func (d *IIO) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for ch, f := range d.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(d.files, ch)
	}
	return errors.Join(errs...)
}
