package input

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/aarzilli/golua/lua"
	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/sirupsen/logrus"
	"github.com/srg/blepad/internal/axis"
)

// luaOutputLines bounds the print output kept between two steps; older lines
// are overwritten.
const luaOutputLines = 64

// Lua computes inputs with a Lua script, for synthetic patterns that are
// awkward to spell out as script frames:
//
//	function axis(channel, tick)
//	  if channel == 0 then return 1650 + 1650 * math.sin(tick / 10) end
//	  return 1650
//	end
//
//	function button(pin, tick)
//	  return pin == 32 and tick % 40 < 5
//	end
//
// A missing axis function reads rest, a missing button function reads
// released. Lua errors are read failures. print goes to the logger at debug
// level, flushed on Step.
type Lua struct {
	mu        sync.Mutex
	state     *lua.State
	rest      axis.Sample
	tick      int64
	hasAxis   bool
	hasButton bool

	output mpmc.RichOverlappedRingBuffer[string]
	logger *logrus.Logger
}

// LoadLua reads a Lua input script from path.
func LoadLua(path string, rest axis.Sample, logger *logrus.Logger) (*Lua, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read Lua input script: %w", err)
	}
	return NewLua(string(code), rest, logger)
}

// NewLua runs code once to define its functions. Close releases the state.
func NewLua(code string, rest axis.Sample, logger *logrus.Logger) (*Lua, error) {
	if logger == nil {
		logger = noopLogger
	}

	l := &Lua{
		state:  lua.NewState(),
		rest:   rest,
		output: mpmc.NewOverlappedRingBuffer[string](luaOutputLines),
		logger: logger,
	}
	l.state.OpenLibs()
	l.registerPrint()

	if err := l.state.DoString(code); err != nil {
		l.state.Close()
		return nil, fmt.Errorf("failed to load Lua input script: %w", err)
	}

	l.hasAxis = l.isFunction("axis")
	l.hasButton = l.isFunction("button")
	if !l.hasAxis && !l.hasButton {
		l.state.Close()
		return nil, ErrNoLuaHandler
	}
	return l, nil
}

func (l *Lua) isFunction(name string) bool {
	l.state.GetGlobal(name)
	defer l.state.Pop(1)
	return l.state.IsFunction(-1)
}

// registerPrint replaces print so script output lands in the ring buffer
// instead of the process stdout.
func (l *Lua) registerPrint() {
	l.state.PushGoFunction(func(L *lua.State) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			switch {
			case L.IsNil(i):
				parts = append(parts, "nil")
			case L.IsBoolean(i):
				parts = append(parts, fmt.Sprint(L.ToBoolean(i)))
			case L.IsNumber(i):
				parts = append(parts, fmt.Sprint(L.ToNumber(i)))
			case L.IsString(i):
				parts = append(parts, L.ToString(i))
			default:
				parts = append(parts, L.Typename(int(L.Type(i))))
			}
		}
		if _, err := l.output.EnqueueM(strings.Join(parts, "\t")); err != nil {
			l.logger.WithError(err).Debug("Lua print dropped")
		}
		return 0
	})
	l.state.SetGlobal("print")
}

// call invokes fn(arg, tick) and leaves its single result on the stack. The
// caller restores the stack top.
func (l *Lua) call(fn string, arg int) error {
	l.state.GetGlobal(fn)
	l.state.PushInteger(int64(arg))
	l.state.PushInteger(l.tick)
	if err := l.state.Call(2, 1); err != nil {
		return fmt.Errorf("%w: lua %s(%d): %v", ErrReadFailed, fn, arg, err)
	}
	return nil
}

func (l *Lua) ReadAxis(channel int) (axis.Sample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == nil {
		return 0, fmt.Errorf("%w: lua state closed", ErrReadFailed)
	}
	if !l.hasAxis {
		return l.rest, nil
	}
	top := l.state.GetTop()
	defer l.state.SetTop(top)
	if err := l.call("axis", channel); err != nil {
		return 0, err
	}

	if !l.state.IsNumber(-1) {
		return 0, fmt.Errorf("%w: lua axis(%d) returned %s, want a number",
			ErrReadFailed, channel, l.state.Typename(int(l.state.Type(-1))))
	}
	v := l.state.ToNumber(-1)
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: lua axis(%d) returned NaN", ErrReadFailed, channel)
	}
	return axis.Sample(math.Round(v)), nil
}

func (l *Lua) ReadButton(pin int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == nil {
		return false, fmt.Errorf("%w: lua state closed", ErrReadFailed)
	}
	if !l.hasButton {
		return false, nil
	}
	top := l.state.GetTop()
	defer l.state.SetTop(top)
	if err := l.call("button", pin); err != nil {
		return false, err
	}
	return l.state.ToBoolean(-1), nil
}

// Step advances the tick passed to the script and flushes its print output.
func (l *Lua) Step() {
	l.mu.Lock()
	l.tick++
	tick := l.tick
	l.mu.Unlock()

	for !l.output.IsEmpty() {
		line, err := l.output.Dequeue()
		if err != nil {
			break
		}
		l.logger.WithField("tick", tick).Debug("lua: " + line)
	}
}

// Tick returns the number of steps taken.
func (l *Lua) Tick() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tick
}

func (l *Lua) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != nil {
		l.state.Close()
		l.state = nil
	}
	return nil
}
