package devicefactory

import (
	"errors"
	"testing"

	"github.com/go-ble/ble"
	"github.com/srg/blepad/internal/testutils/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UsesFactory(t *testing.T) {
	orig := DeviceFactory
	t.Cleanup(func() { DeviceFactory = orig })

	want := &mocks.MockDevice{}
	DeviceFactory = func() (ble.Device, error) { return want, nil }

	dev, err := Open(nil)
	require.NoError(t, err)
	assert.Same(t, want, dev)
}

func TestOpen_WrapsError(t *testing.T) {
	orig := DeviceFactory
	t.Cleanup(func() { DeviceFactory = orig })

	DeviceFactory = func() (ble.Device, error) { return nil, errors.New("hci0: no such device") }

	_, err := Open(nil)
	assert.ErrorContains(t, err, "failed to open BLE adapter: hci0: no such device")
}
