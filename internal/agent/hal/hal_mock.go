//go:build !linux

package hal

import (
	"os"
	"sync"

	"optix.io/optix/internal/agent/core"
	"optix.io/optix/pkg/log"
)

// MockHAL lets the agent run on development machines. The serial comes from
// OPTIX_SERIAL or is generated once per process.
type MockHAL struct {
	once   sync.Once
	serial string
}

func NewHAL(_ string) core.HAL {
	return &MockHAL{}
}

func (h *MockHAL) SerialNumber() string {
	h.once.Do(func() {
		h.serial = pickSerial(os.Getenv("OPTIX_SERIAL"))
		log.Info("[HAL-Mock] Using serial", "serial", h.serial)
	})
	return h.serial
}
