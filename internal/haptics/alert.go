package haptics

import "fmt"

// Immediate Alert service and its Alert Level characteristic
const (
	ImmediateAlertServiceUUID = "00001802-0000-1000-8000-00805f9b34fb"
	AlertLevelUUID            = "00002a06-0000-1000-8000-00805f9b34fb"
)

// Alert Level values
const (
	alertNone byte = 0x00
	alertMild byte = 0x01
	alertHigh byte = 0x02
)

// AlertWriter is the part of a connected BLE peripheral the alert driver needs
type AlertWriter interface {
	WriteCharacteristicWithoutResponse(serviceUUID string, characteristicUUID string, data []byte) error
}

// AlertDriver vibrates a band or watch through its Immediate Alert service
type AlertDriver struct {
	dev AlertWriter
}

func NewAlertDriver(dev AlertWriter) *AlertDriver {
	if dev == nil {
		panic("AlertDriver: device cannot be nil")
	}
	return &AlertDriver{dev: dev}
}

func (d *AlertDriver) Pulse(sig Signal, intensity Intensity) error {
	level := AlertLevel(sig, intensity)
	if level == alertNone {
		return nil
	}
	if err := d.dev.WriteCharacteristicWithoutResponse(ImmediateAlertServiceUUID, AlertLevelUUID, []byte{level}); err != nil {
		return fmt.Errorf("writing alert level: %w", err)
	}
	return nil
}

// AlertLevel maps a pulse to an Alert Level value. Beats are mild unless the
// intensity is high; low intensity skips countdown warnings.
func AlertLevel(sig Signal, intensity Intensity) byte {
	switch sig {
	case SignalTap:
		if intensity == IntensityHigh {
			return alertHigh
		}
		return alertMild
	case SignalWarning:
		if intensity == IntensityLow {
			return alertNone
		}
		return alertMild
	case SignalSuccess, SignalBlockChange:
		return alertHigh
	default:
		return alertNone
	}
}
