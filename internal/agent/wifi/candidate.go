// Package wifi turns credential deliveries into at most one configuration
// attempt at a time and verifies the resulting connection.
package wifi

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ErrInvalidCredentials is returned for payloads or pairs that cannot be applied.
var ErrInvalidCredentials = errors.New("invalid wifi credentials")

// Source identifies the delivery channel of a candidate.
type Source string

const (
	SourceRadio Source = "radio"
	SourceFile  Source = "file"
)

// Candidate is one (ssid, password) pair waiting to be applied.
type Candidate struct {
	SSID       string
	Password   string
	Source     Source
	ReceivedAt time.Time
}

// Hash identifies the pair regardless of source and arrival time.
func (c Candidate) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(c.SSID)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(c.Password)
	return d.Sum64()
}

// Valid reports whether both fields are present.
func (c Candidate) Valid() bool {
	return c.SSID != "" && c.Password != ""
}

type credentialPayload struct {
	SSID      string `json:"ssid"`
	Password  string `json:"password"`
	Timestamp any    `json:"timestamp,omitempty"`
}

// ParseCandidate decodes {"ssid": ..., "password": ...}.
func ParseCandidate(data []byte, src Source, now time.Time) (Candidate, error) {
	var p credentialPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	c := Candidate{SSID: p.SSID, Password: p.Password, Source: src, ReceivedAt: now}
	if !c.Valid() {
		return Candidate{}, fmt.Errorf("%w: ssid and password are required", ErrInvalidCredentials)
	}
	return c, nil
}
