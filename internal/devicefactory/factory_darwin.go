//go:build darwin

package devicefactory

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
)

const platform = "darwin/corebluetooth"

func newPlatformDevice() (ble.Device, error) {
	d, err := darwin.NewDevice(ble.OptPeripheralRole())
	if err != nil {
		return nil, err
	}
	return d, nil
}
