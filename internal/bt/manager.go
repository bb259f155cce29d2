package bt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/lowaak/cadence-timer/internal/events"
	"github.com/lowaak/cadence-timer/internal/safego"
)

// ErrNotFound is returned when a scan ends without seeing the requested address
var ErrNotFound = errors.New("device not found")

// Manager owns the adapter and the devices it has seen
type Manager struct {
	adapter *bluetooth.Adapter
	logger  *log.Logger

	mu      sync.Mutex
	devices map[string]*device

	connectedEvent *events.ChannelEvent[[]Device]
	wg             sync.WaitGroup
}

func NewManager(adapter *bluetooth.Adapter, logger *log.Logger) *Manager {
	if adapter == nil {
		panic("BTManager: adapter cannot be nil")
	}
	if logger == nil {
		panic("BTManager: logger cannot be nil")
	}
	return &Manager{
		adapter:        adapter,
		logger:         logger,
		devices:        make(map[string]*device),
		connectedEvent: events.NewChannelEvent[[]Device](true),
	}
}

func (m *Manager) deviceFor(address bluetooth.Address) *device {
	key := strings.ToUpper(address.String())
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[key]
	if !ok {
		d = newDevice(m.logger, address)
		m.devices[key] = d
	}
	return d
}

// Enable powers the adapter and tracks connections and disconnections
func (m *Manager) Enable() error {
	m.adapter.SetConnectHandler(func(dev bluetooth.Device, connected bool) {
		d := m.deviceFor(dev.Address)
		if connected {
			m.logger.Printf("BTManager: Device connected: %s", d.Address())
			d.setConnected(&dev)
		} else {
			m.logger.Printf("BTManager: Device disconnected: %s", d.Address())
			d.setConnected(nil)
		}
		m.connectedEvent.Notify(m.ConnectedDevices())
	})
	if err := m.adapter.Enable(); err != nil {
		return fmt.Errorf("enabling bluetooth adapter: %w", err)
	}
	return nil
}

// Find scans until a device with address is seen, ctx is done or timeout
// elapses
func (m *Manager) Find(ctx context.Context, address string, timeout time.Duration) (Device, error) {
	want := strings.ToUpper(strings.TrimSpace(address))
	m.logger.Printf("BTManager: Scanning for %s", want)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found := make(chan *device, 1)
	m.wg.Add(1)
	safego.Go(m.logger, "bt scan", func() {
		defer m.wg.Done()
		err := m.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if strings.ToUpper(result.Address.String()) != want {
				return
			}
			d := m.deviceFor(result.Address)
			d.seen(result.LocalName(), time.Now())
			select {
			case found <- d:
			default:
			}
			if err := adapter.StopScan(); err != nil {
				m.logger.Printf("BTManager: Error stopping scan: %v", err)
			}
		})
		if err != nil {
			m.logger.Printf("BTManager: Scan error: %v", err)
		}
	})

	select {
	case d := <-found:
		m.logger.Printf("BTManager: Found %s (%s)", d.LocalName(), d.Address())
		return d, nil
	case <-ctx.Done():
		if err := m.adapter.StopScan(); err != nil {
			m.logger.Printf("BTManager: Error stopping scan: %v", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, want)
	}
}

// Connect initiates a connection. Completion is reported through the connect
// handler, use Device.WaitForConnection to block on it.
func (m *Manager) Connect(dev Device) error {
	d := m.lookup(dev.Address())
	if d == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, dev.Address())
	}
	m.logger.Printf("BTManager: Connecting to %s", d.Address())
	d.setState(Connecting)
	if _, err := m.adapter.Connect(d.address, bluetooth.ConnectionParams{}); err != nil {
		d.setState(Disconnected)
		return fmt.Errorf("connecting to %s: %w", d.Address(), err)
	}
	return nil
}

func (m *Manager) Disconnect(dev Device) error {
	d := m.lookup(dev.Address())
	if d == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, dev.Address())
	}
	conn := d.connectedDevice()
	if conn == nil {
		return nil
	}
	m.logger.Printf("BTManager: Disconnecting from %s", d.Address())
	return conn.Disconnect()
}

func (m *Manager) lookup(address string) *device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devices[strings.ToUpper(address)]
}

// ConnectedDevices returns every currently connected device
func (m *Manager) ConnectedDevices() []Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Device, 0)
	for _, d := range m.devices {
		if d.IsConnected() {
			result = append(result, d)
		}
	}
	return result
}

// ListenToConnectedDevices registers a channel receiving the connected device
// list after every connect or disconnect
func (m *Manager) ListenToConnectedDevices(ch chan<- []Device) func() {
	return m.connectedEvent.Listen(ch)
}

// Shutdown disconnects everything and waits for scans to finish
func (m *Manager) Shutdown() {
	m.logger.Println("BTManager: Shutting down")
	for _, d := range m.ConnectedDevices() {
		if err := m.Disconnect(d); err != nil {
			m.logger.Printf("BTManager: Error disconnecting from %s: %v", d.Address(), err)
		}
	}
	if err := m.adapter.StopScan(); err != nil {
		m.logger.Printf("BTManager: Error stopping scan: %v", err)
	}
	m.wg.Wait()
	m.logger.Println("BTManager: Shutdown complete")
}
