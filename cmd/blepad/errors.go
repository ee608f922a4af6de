package main

import (
	"errors"
	"fmt"

	"github.com/srg/blepad/internal/devicefactory"
	"github.com/srg/blepad/internal/report"
	"github.com/srg/blepad/pkg/config"
)

// Command-level errors
var (
	// ErrInvalidHex is returned by decode for input that is not a hex string.
	ErrInvalidHex = errors.New("invalid hex frame")

	// ErrUnknownButton is returned by encode for a button name missing from the
	// configured button map.
	ErrUnknownButton = errors.New("unknown button")
)

// FormatUserError turns an error chain into a one-line message with a hint
// where the fix is known.
func FormatUserError(err error) string {
	var verr *config.ValidationError
	switch {
	case errors.As(err, &verr):
		return fmt.Sprintf("invalid configuration: %s: %s", verr.Field, verr.Msg)
	case errors.Is(err, devicefactory.ErrUnsupportedPlatform):
		return fmt.Sprintf("%v (try 'blepad monitor' to run without a radio)", err)
	case errors.Is(err, report.ErrMalformedFrame), errors.Is(err, ErrInvalidHex):
		return fmt.Sprintf("%v (check --layout matches the frame)", err)
	default:
		return err.Error()
	}
}
