package ble

import (
	"slices"
	"sync"
)

// Characteristic flags understood by BlueZ.
const (
	FlagRead                 = "read"
	FlagWrite                = "write"
	FlagWriteWithoutResponse = "write-without-response"
	FlagNotify               = "notify"
)

// Role says what an endpoint is for; the dispatch table is keyed by it.
type Role int

const (
	RoleCredential Role = iota
	RoleStatus
	RoleCommand
)

func (r Role) String() string {
	switch r {
	case RoleCredential:
		return "credential"
	case RoleStatus:
		return "status"
	case RoleCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Endpoint is one characteristic: a UUID, its flags and the current value.
type Endpoint struct {
	Role  Role
	UUID  string
	Flags []string

	mu        sync.RWMutex
	value     []byte
	notifying bool
}

func newEndpoint(role Role, uuid string, flags ...string) *Endpoint {
	return &Endpoint{Role: role, UUID: uuid, Flags: flags}
}

func (e *Endpoint) HasFlag(flag string) bool {
	return slices.Contains(e.Flags, flag)
}

// Value returns a copy of the current buffer.
func (e *Endpoint) Value() []byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.value)
}

func (e *Endpoint) SetValue(v []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = slices.Clone(v)
}

func (e *Endpoint) Notifying() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.notifying
}

func (e *Endpoint) setNotifying(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifying = v
}
