package core

// HAL exposes the device facts the agent reads from the operating system.
type HAL interface {
	// SerialNumber returns a stable identifier for this board. It never returns "".
	SerialNumber() string
}
