package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicBuilder(t *testing.T) {
	b := NewTopicBuilder("optix/v1")

	assert.Equal(t, "optix/v1/status/abc123", b.Status("abc123"))
	assert.Equal(t, "optix/v1/lifecycle/abc123", b.Lifecycle("abc123"))
	assert.Equal(t, "optix/v1/online/abc123", b.Online("abc123"))
	assert.Equal(t, "optix/v1/command/abc123", b.Command("abc123"))
	assert.Equal(t, "optix/v1/status/+", b.StatusWildcard())
}
