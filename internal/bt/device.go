package bt

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

type DeviceState int

const (
	Disconnected DeviceState = iota
	Connecting
	Connected
)

func (s DeviceState) String() string {
	switch s {
	case Connected:
		return "Connected"
	case Connecting:
		return "Connecting"
	case Disconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Device is a peripheral the app writes feedback to
type Device interface {
	Address() string
	LocalName() string
	State() DeviceState
	IsConnected() bool
	WaitForConnection(ctx context.Context, timeout time.Duration) error
	WriteCharacteristic(serviceUUID string, characteristicUUID string, data []byte) error
	WriteCharacteristicWithoutResponse(serviceUUID string, characteristicUUID string, data []byte) error
}

type device struct {
	logger  *log.Logger
	address bluetooth.Address

	mu        sync.Mutex
	localName string
	lastSeen  time.Time
	state     DeviceState
	connected *bluetooth.Device // nil unless connected

	// bleMu serialises discovery and writes on the connection
	bleMu           sync.Mutex
	services        map[string]*bluetooth.DeviceService
	characteristics map[string]*bluetooth.DeviceCharacteristic
	servicesFound   bool
}

func newDevice(logger *log.Logger, address bluetooth.Address) *device {
	if logger == nil {
		panic("BTDevice: logger cannot be nil")
	}
	return &device{
		logger:          logger,
		address:         address,
		localName:       "Unknown",
		state:           Disconnected,
		services:        make(map[string]*bluetooth.DeviceService),
		characteristics: make(map[string]*bluetooth.DeviceCharacteristic),
	}
}

func (d *device) Address() string {
	return d.address.String()
}

func (d *device) LocalName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.localName
}

func (d *device) State() DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *device) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected != nil
}

func (d *device) seen(name string, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if name != "" {
		d.localName = name
	}
	d.lastSeen = at
}

func (d *device) setState(state DeviceState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
}

func (d *device) setConnected(dev *bluetooth.Device) {
	d.mu.Lock()
	d.connected = dev
	if dev != nil {
		d.state = Connected
	} else {
		d.state = Disconnected
	}
	d.mu.Unlock()

	if dev == nil {
		// handles are invalid after a disconnect
		d.bleMu.Lock()
		d.services = make(map[string]*bluetooth.DeviceService)
		d.characteristics = make(map[string]*bluetooth.DeviceCharacteristic)
		d.servicesFound = false
		d.bleMu.Unlock()
	}
}

func (d *device) connectedDevice() *bluetooth.Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// WaitForConnection polls until the connect handler reported the device or
// the timeout or ctx expires
func (d *device) WaitForConnection(ctx context.Context, timeout time.Duration) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	timeoutChan := time.After(timeout)
	for {
		if d.IsConnected() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		case <-timeoutChan:
			return fmt.Errorf("timeout after %v waiting for connection to %s", timeout, d.Address())
		}
	}
}

func (d *device) WriteCharacteristic(serviceUUID string, characteristicUUID string, data []byte) error {
	return d.write(serviceUUID, characteristicUUID, data, true)
}

func (d *device) WriteCharacteristicWithoutResponse(serviceUUID string, characteristicUUID string, data []byte) error {
	return d.write(serviceUUID, characteristicUUID, data, false)
}

func (d *device) write(serviceUUID string, characteristicUUID string, data []byte, withResponse bool) error {
	d.bleMu.Lock()
	defer d.bleMu.Unlock()

	char, err := d.characteristic(serviceUUID, characteristicUUID)
	if err != nil {
		return err
	}
	if withResponse {
		_, err = char.Write(data)
	} else {
		_, err = char.WriteWithoutResponse(data)
	}
	if err != nil {
		return fmt.Errorf("failed to write characteristic %s: %w", characteristicUUID, err)
	}
	return nil
}

// characteristic resolves a characteristic, discovering all services once and
// all characteristics of a service once. Caller holds bleMu.
func (d *device) characteristic(serviceStr string, charStr string) (*bluetooth.DeviceCharacteristic, error) {
	serviceUUID, err := bluetooth.ParseUUID(serviceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid service UUID %q: %w", serviceStr, err)
	}
	charUUID, err := bluetooth.ParseUUID(charStr)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic UUID %q: %w", charStr, err)
	}
	key := serviceUUID.String() + "_" + charUUID.String()
	if c, ok := d.characteristics[key]; ok {
		return c, nil
	}

	conn := d.connectedDevice()
	if conn == nil {
		return nil, fmt.Errorf("device %s is not connected", d.Address())
	}

	if !d.servicesFound {
		d.logger.Printf("BTDevice: Discovering services on %s", d.Address())
		found, err := conn.DiscoverServices(nil)
		if err != nil {
			return nil, fmt.Errorf("error discovering services: %w", err)
		}
		for i := range found {
			d.services[found[i].UUID().String()] = &found[i]
		}
		d.servicesFound = true
	}

	svc, ok := d.services[serviceUUID.String()]
	if !ok {
		return nil, fmt.Errorf("service %s not found on device", serviceStr)
	}

	d.logger.Printf("BTDevice: Discovering characteristics for service %s", serviceStr)
	chars, err := svc.DiscoverCharacteristics(nil)
	if err != nil {
		return nil, fmt.Errorf("could not discover characteristics for service %s: %w", serviceStr, err)
	}
	for i := range chars {
		d.characteristics[serviceUUID.String()+"_"+chars[i].UUID().String()] = &chars[i]
	}

	c, ok := d.characteristics[key]
	if !ok {
		return nil, fmt.Errorf("characteristic %s not found in service %s", charStr, serviceStr)
	}
	return c, nil
}
