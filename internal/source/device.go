package source

import (
	"fmt"

	"github.com/google/gopacket/pcap"

	"firestige.xyz/seqgap/internal/core"
)

// Device is a capture-capable network interface.
type Device struct {
	Name        string
	Description string
	Addresses   []string
}

// ListDevices enumerates interfaces through libpcap.
func ListDevices() ([]Device, error) {
	ifs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	devs := make([]Device, 0, len(ifs))
	for _, ifc := range ifs {
		d := Device{Name: ifc.Name, Description: ifc.Description}
		for _, a := range ifc.Addresses {
			d.Addresses = append(d.Addresses, a.IP.String())
		}
		devs = append(devs, d)
	}
	return devs, nil
}

// FindDevice returns the device whose name matches exactly.
func FindDevice(name string) (Device, error) {
	devs, err := ListDevices()
	if err != nil {
		return Device{}, err
	}
	return findDevice(devs, name)
}

func findDevice(devs []Device, name string) (Device, error) {
	for _, d := range devs {
		if d.Name == name {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %q", core.ErrDeviceNotFound, name)
}
