// Package devicefactory opens the platform BLE adapter in peripheral role.
package devicefactory

import (
	"errors"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
)

// ErrUnsupportedPlatform is returned where go-ble has no backend.
var ErrUnsupportedPlatform = errors.New("BLE peripheral not supported on this platform")

// DeviceFactory creates the ble.Device the peripheral serves on.
// This is a variable so that it can be overridden in tests.
var DeviceFactory = func() (ble.Device, error) {
	return newPlatformDevice()
}

// Open creates the adapter through DeviceFactory.
func Open(logger *logrus.Logger) (ble.Device, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to open BLE adapter: %w", err)
	}
	if logger != nil {
		logger.WithField("backend", platform).Debug("BLE adapter opened")
	}
	return dev, nil
}
