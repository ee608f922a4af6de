package input

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/srg/blepad/internal/axis"
	"gopkg.in/yaml.v3"
)

// ScriptFrame holds input values for a number of ticks.
type ScriptFrame struct {
	Ticks   int                 `yaml:"ticks"`
	Axes    map[int]axis.Sample `yaml:"axes"`
	Buttons []int               `yaml:"buttons"` // held pins
	Fail    []int               `yaml:"fail"`    // channels or pins whose reads fail
}

// ScriptSpec is the YAML document replayed by Script:
//
//	rest: 1650
//	loop: true
//	frames:
//	  - ticks: 20
//	  - ticks: 5
//	    axes: {0: 3300}
//	    buttons: [32]
type ScriptSpec struct {
	Rest   axis.Sample   `yaml:"rest"`
	Loop   bool          `yaml:"loop"`
	Frames []ScriptFrame `yaml:"frames"`
}

// Script replays a ScriptSpec, one frame at a time, advanced by Step. Channels a
// frame does not mention read as Rest. Frame 0 is what calibration sees.
type Script struct {
	mu       sync.Mutex
	spec     ScriptSpec
	frame    int
	tick     int
	finished bool
}

// ParseScript decodes a script document.
func ParseScript(data []byte) (*Script, error) {
	var spec ScriptSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse input script: %w", err)
	}
	return NewScript(spec)
}

// LoadScript reads and decodes a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input script: %w", err)
	}
	return ParseScript(data)
}

// NewScript validates spec and returns a reader positioned at its first frame.
func NewScript(spec ScriptSpec) (*Script, error) {
	if len(spec.Frames) == 0 {
		return nil, fmt.Errorf("input script has no frames")
	}
	for i := range spec.Frames {
		if spec.Frames[i].Ticks < 1 {
			spec.Frames[i].Ticks = 1
		}
	}
	return &Script{spec: spec}, nil
}

// Step advances one tick. A non-looping script holds its last frame.
func (s *Script) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return
	}
	s.tick++
	if s.tick < s.spec.Frames[s.frame].Ticks {
		return
	}
	s.tick = 0
	s.frame++
	if s.frame < len(s.spec.Frames) {
		return
	}
	if s.spec.Loop {
		s.frame = 0
		return
	}
	s.frame = len(s.spec.Frames) - 1
	s.finished = true
}

// Finished reports whether a non-looping script has played every frame.
func (s *Script) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Frame returns the index of the current frame.
func (s *Script) Frame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

func (s *Script) ReadAxis(channel int) (axis.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.spec.Frames[s.frame]
	if slices.Contains(f.Fail, channel) {
		return 0, fmt.Errorf("%w: channel %d (frame %d)", ErrReadFailed, channel, s.frame)
	}
	if v, ok := f.Axes[channel]; ok {
		return v, nil
	}
	return s.spec.Rest, nil
}

func (s *Script) ReadButton(pin int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.spec.Frames[s.frame]
	if slices.Contains(f.Fail, pin) {
		return false, fmt.Errorf("%w: pin %d (frame %d)", ErrReadFailed, pin, s.frame)
	}
	return slices.Contains(f.Buttons, pin), nil
}
