package tts

import (
	"fmt"
	"os"
	"runtime"
)

type DeviceType string

const (
	DeviceTypeMock          DeviceType = "mock"
	DeviceTypeESpeak        DeviceType = "espeak"
	DeviceTypeSay           DeviceType = "say" // macOS only
	DeviceTypeGoogleClassic DeviceType = "googleclassic"
	DeviceTypeAuto          DeviceType = "auto" // Automatically choose best for platform
)

func (e DeviceType) String() string {
	return string(e)
}

// NewDevice creates a speech device based on the provided config.
func NewDevice(config Config) (Device, error) {
	if config.Type == "" || config.Type == DeviceTypeAuto.String() {
		config.Type = getBestDeviceForPlatform().String()
	}

	switch config.Type {
	case DeviceTypeMock.String():
		return newSimulatedDevice(config), nil

	case DeviceTypeGoogleClassic.String():
		return newGoogleClassicDevice(config)

	case DeviceTypeESpeak.String():
		return newESpeakDevice(config)

	case DeviceTypeSay.String():
		return newSayDevice(config)

	default:
		return nil, fmt.Errorf("unsupported speech device type: %s", config.Type)
	}
}

// getBestDeviceForPlatform returns the recommended device for the current platform
func getBestDeviceForPlatform() DeviceType {
	if hasGoogleCredentials() {
		return DeviceTypeGoogleClassic
	}

	switch runtime.GOOS {
	case "darwin":
		return DeviceTypeSay
	default:
		return DeviceTypeESpeak // Cross-platform fallback
	}
}

// GetAvailableDevices returns devices available on the current platform
func GetAvailableDevices() []DeviceType {
	devices := []DeviceType{DeviceTypeMock, DeviceTypeESpeak}

	if hasGoogleCredentials() {
		devices = append(devices, DeviceTypeGoogleClassic)
	}
	if runtime.GOOS == "darwin" {
		devices = append(devices, DeviceTypeSay)
	}
	return devices
}

// hasGoogleCredentials checks if Google Cloud credentials are available
func hasGoogleCredentials() bool {
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}
