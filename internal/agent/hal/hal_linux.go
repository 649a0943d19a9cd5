//go:build linux

package hal

import (
	"os"
	"path/filepath"
	"sync"

	"optix.io/optix/internal/agent/core"
	"optix.io/optix/pkg/log"
)

// LinuxHAL reads the board identity from procfs and sysfs.
type LinuxHAL struct {
	iface string

	once   sync.Once
	serial string
}

func NewHAL(iface string) core.HAL {
	return &LinuxHAL{iface: iface}
}

// SerialNumber prefers the SoC serial, then the wireless MAC address.
// The result is computed once so that a random fallback stays stable.
func (h *LinuxHAL) SerialNumber() string {
	h.once.Do(func() {
		var cpu, mac string
		if data, err := os.ReadFile("/proc/cpuinfo"); err == nil {
			cpu = cpuinfoSerial(data)
		}
		if data, err := os.ReadFile(filepath.Join("/sys/class/net", h.iface, "address")); err == nil {
			mac = macSerial(data)
		}
		h.serial = pickSerial(cpu, mac)
		if cpu == "" && mac == "" {
			log.Warn("No hardware serial found, using a random one", "serial", h.serial)
		}
	})
	return h.serial
}
