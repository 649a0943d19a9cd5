package camera

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix.io/optix/internal/pkg/execx"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Sample
	}{
		{
			name: "full frame",
			data: `[{"ExposureTime": 15000, "AnalogueGain": 4.5, "FrameDuration": 33333}, {"ExposureTime": 1}]`,
			want: Sample{ExposureMicros: 15000, AnalogueGain: 4.5, FPS: 1e6 / 33333.0},
		},
		{
			name: "short keys",
			data: `[{"Exposure": 900, "Ag": 2}]`,
			want: Sample{ExposureMicros: 900, AnalogueGain: 2, FPS: 0},
		},
		{
			name: "single object",
			data: `{"ExposureTime": 100, "AnalogueGain": 1.0, "FrameDuration": 100000}`,
			want: Sample{ExposureMicros: 100, AnalogueGain: 1.0, FPS: 10},
		},
		{
			name: "zero gain is neutral",
			data: `[{"ExposureTime": 100, "AnalogueGain": 0}]`,
			want: Sample{ExposureMicros: 100, AnalogueGain: 1.0},
		},
		{name: "no frames", data: `[]`, want: NeutralSample()},
		{name: "empty output", data: ``, want: NeutralSample()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMetadata([]byte(tt.data))
			require.NoError(t, err)
			assert.InDelta(t, tt.want.ExposureMicros, got.ExposureMicros, 1e-9)
			assert.InDelta(t, tt.want.AnalogueGain, got.AnalogueGain, 1e-9)
			assert.InDelta(t, tt.want.FPS, got.FPS, 1e-9)
		})
	}

	_, err := parseMetadata([]byte("not json"))
	assert.Error(t, err)
}

func TestProbeFallsBackToNeutral(t *testing.T) {
	r := execx.NewFakeRunner()
	r.Missing["rpicam-hello"] = true

	p := NewProbe(r, "rpicam-hello", time.Second)
	sample := p.Sample(context.Background())
	assert.Equal(t, NeutralSample(), sample)
	assert.Equal(t, NameQuality, NewSelector(DefaultThresholds()).Suggest(sample))

	r = execx.NewFakeRunner()
	r.Handle("rpicam-hello", func([]string) ([]byte, error) { return nil, errors.New("exit status 1") })
	assert.Equal(t, NeutralSample(), NewProbe(r, "rpicam-hello", time.Second).Sample(context.Background()))

	r.Handle("rpicam-hello", func([]string) ([]byte, error) { return []byte("garbage"), nil })
	assert.Equal(t, NeutralSample(), NewProbe(r, "rpicam-hello", time.Second).Sample(context.Background()))

	assert.Equal(t, NeutralSample(), NewProbe(r, "", time.Second).Sample(context.Background()))
}

func TestProbeInvocation(t *testing.T) {
	r := execx.NewFakeRunner()
	r.Handle("rpicam-hello", func([]string) ([]byte, error) {
		return []byte(`[{"ExposureTime": 20000, "AnalogueGain": 1.0}]`), nil
	})

	sample := NewProbe(r, "rpicam-hello", time.Second).Sample(context.Background())
	assert.Equal(t, 20000.0, sample.ExposureMicros)

	calls := r.CallsTo("rpicam-hello")
	require.Len(t, calls, 1)
	assert.Equal(t, "rpicam-hello --timeout 1200ms --metadata - --metadata-format json --nopreview", calls[0].Line())
}
