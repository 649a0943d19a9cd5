package wifi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandidate(t *testing.T) {
	now := time.Now()

	c, err := ParseCandidate([]byte(`{"ssid":"Home","password":"secret123","timestamp":"2026-01-01T00:00:00Z"}`), SourceFile, now)
	require.NoError(t, err)
	assert.Equal(t, "Home", c.SSID)
	assert.Equal(t, "secret123", c.Password)
	assert.Equal(t, SourceFile, c.Source)
	assert.Equal(t, now, c.ReceivedAt)

	for _, bad := range []string{`not json`, `{"ssid":"Home"}`, `{"password":"x"}`, `{}`, `[]`} {
		_, err := ParseCandidate([]byte(bad), SourceRadio, now)
		assert.ErrorIs(t, err, ErrInvalidCredentials, bad)
	}
}

func TestCandidateHash(t *testing.T) {
	a := Candidate{SSID: "Home", Password: "secret123", Source: SourceRadio, ReceivedAt: time.Now()}
	b := Candidate{SSID: "Home", Password: "secret123", Source: SourceFile}
	assert.Equal(t, a.Hash(), b.Hash(), "source and time are not part of the identity")

	assert.NotEqual(t, a.Hash(), Candidate{SSID: "Home", Password: "secret124"}.Hash())
	assert.NotEqual(t,
		Candidate{SSID: "ab", Password: "c"}.Hash(),
		Candidate{SSID: "a", Password: "bc"}.Hash())
}
