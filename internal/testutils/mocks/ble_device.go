// Package mocks holds testify mocks of the go-ble interfaces.
package mocks

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

// MockDevice is a mock of ble.Device. Only the peripheral-side calls are
// recorded; scanning and advertising variants the gamepad never uses return nil.
type MockDevice struct {
	mock.Mock
}

func (_m *MockDevice) AddService(svc *ble.Service) error {
	ret := _m.Called(svc)
	if rf, ok := ret.Get(0).(func(*ble.Service) error); ok {
		return rf(svc)
	}
	return ret.Error(0)
}

func (_m *MockDevice) AdvertiseNameAndServices(ctx context.Context, name string, uuids ...ble.UUID) error {
	args := []interface{}{ctx, name}
	for _, u := range uuids {
		args = append(args, u)
	}
	ret := _m.Called(args...)
	if rf, ok := ret.Get(0).(func(context.Context, string, ...ble.UUID) error); ok {
		return rf(ctx, name, uuids...)
	}
	return ret.Error(0)
}

func (_m *MockDevice) Stop() error {
	ret := _m.Called()
	return ret.Error(0)
}

func (_m *MockDevice) RemoveAllServices() error                                   { return nil }
func (_m *MockDevice) SetServices(svcs []*ble.Service) error                      { return nil }
func (_m *MockDevice) Advertise(ctx context.Context, adv ble.Advertisement) error { return nil }
func (_m *MockDevice) AdvertiseIBeacon(ctx context.Context, u ble.UUID, major, minor uint16, pwr int8) error {
	return nil
}
func (_m *MockDevice) AdvertiseIBeaconData(ctx context.Context, b []byte) error        { return nil }
func (_m *MockDevice) AdvertiseMfgData(ctx context.Context, id uint16, b []byte) error { return nil }
func (_m *MockDevice) AdvertiseServiceData16(ctx context.Context, id uint16, b []byte) error {
	return nil
}
func (_m *MockDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error { return nil }
func (_m *MockDevice) Dial(ctx context.Context, a ble.Addr) (ble.Client, error)     { return nil, nil }

var _ ble.Device = (*MockDevice)(nil)
