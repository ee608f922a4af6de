//go:build !linux && !darwin

package devicefactory

import "github.com/go-ble/ble"

const platform = "none"

func newPlatformDevice() (ble.Device, error) {
	return nil, ErrUnsupportedPlatform
}
