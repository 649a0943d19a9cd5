package camera

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix.io/optix/internal/pkg/execx"
)

// argAfter returns the value following flag in args.
func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func writingTool(flag string, payload []byte) func([]string) ([]byte, error) {
	return func(args []string) ([]byte, error) {
		return nil, os.WriteFile(argAfter(args, flag), payload, 0o644)
	}
}

func TestCaptureWithRpicamStill(t *testing.T) {
	r := execx.NewFakeRunner()
	r.Handle("rpicam-still", writingTool("--output", []byte{0xff, 0xd8, 0xff}))

	dir := t.TempDir()
	c := NewCapturer(r, []string{"rpicam-still", "raspistill"}, time.Second, dir, "0.4,0.4,0.2,0.2")

	img, err := c.Capture(context.Background(), LowLight)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, img)

	calls := r.CallsTo("rpicam-still")
	require.Len(t, calls, 1)
	args := calls[0].Args
	assert.Equal(t, "3072", argAfter(args, "--width"))
	assert.Equal(t, "92", argAfter(args, "--quality"))
	assert.Equal(t, "cdn_fast", argAfter(args, "--denoise"))
	assert.Equal(t, "8000us", argAfter(args, "--shutter"))
	assert.Equal(t, "0.4,0.4,0.2,0.2", argAfter(args, "--autofocus-window"))
	assert.Equal(t, "10000us", argAfter(args, "--flicker-period"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary capture file must be removed")
}

func TestCaptureQualityHasNoShutterOrDenoise(t *testing.T) {
	c := NewCapturer(execx.NewFakeRunner(), nil, time.Second, "", "w")
	args := c.args("rpicam-still", "/tmp/x.jpg", Quality)
	assert.NotContains(t, args, "--shutter")
	assert.NotContains(t, args, "--denoise")
	assert.Equal(t, "sport", argAfter(args, "--exposure"))
}

func TestCaptureFallsBackToRaspistill(t *testing.T) {
	r := execx.NewFakeRunner()
	r.Missing["rpicam-still"] = true
	r.Handle("raspistill", writingTool("-o", []byte("jpeg")))

	c := NewCapturer(r, []string{"rpicam-still", "raspistill"}, time.Second, t.TempDir(), "")
	img, err := c.Capture(context.Background(), Motion)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(img))

	args := r.CallsTo("raspistill")[0].Args
	assert.Equal(t, "3072", argAfter(args, "-w"))
	assert.Equal(t, "90", argAfter(args, "-q"))
	assert.Equal(t, "1000", argAfter(args, "-t"))
}

func TestCaptureErrors(t *testing.T) {
	r := execx.NewFakeRunner()
	r.Missing["rpicam-still"] = true
	c := NewCapturer(r, []string{"rpicam-still"}, time.Second, t.TempDir(), "")

	_, err := c.Capture(context.Background(), Quality)
	assert.ErrorIs(t, err, ErrNoCaptureTool)

	r = execx.NewFakeRunner()
	r.Handle("rpicam-still", func([]string) ([]byte, error) { return nil, errors.New("camera busy") })
	c = NewCapturer(r, []string{"rpicam-still"}, time.Second, t.TempDir(), "")
	_, err = c.Capture(context.Background(), Quality)
	assert.ErrorContains(t, err, "camera busy")

	r = execx.NewFakeRunner()
	c = NewCapturer(r, []string{"rpicam-still"}, time.Second, t.TempDir(), "")
	_, err = c.Capture(context.Background(), Quality)
	assert.ErrorContains(t, err, "empty image")
}
