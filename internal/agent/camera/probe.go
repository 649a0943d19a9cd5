package camera

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"optix.io/optix/internal/pkg/execx"
	"optix.io/optix/pkg/log"
)

// Sample is one reading of the scene. It is never persisted.
type Sample struct {
	ExposureMicros float64
	AnalogueGain   float64
	FPS            float64
}

// NeutralSample is returned whenever the probe cannot produce a reading.
func NeutralSample() Sample {
	return Sample{ExposureMicros: 0, AnalogueGain: 1.0, FPS: 0}
}

// Probe samples exposure metadata with a short preview run.
type Probe struct {
	runner  execx.Runner
	tool    string
	timeout time.Duration
	logger  log.Logger
}

func NewProbe(runner execx.Runner, tool string, timeout time.Duration) *Probe {
	return &Probe{
		runner:  runner,
		tool:    tool,
		timeout: timeout,
		logger:  log.WithName("probe"),
	}
}

// Sample never fails: a missing tool, a timeout or unparsable output all
// yield NeutralSample.
func (p *Probe) Sample(ctx context.Context) Sample {
	if p.tool == "" {
		return NeutralSample()
	}

	out, err := execx.RunTimeout(ctx, p.runner, p.timeout, p.tool,
		"--timeout", "1200ms",
		"--metadata", "-",
		"--metadata-format", "json",
		"--nopreview",
	)
	if err != nil {
		p.logger.Debug("Probe unavailable, using neutral sample", "error", err.Error())
		return NeutralSample()
	}

	s, err := parseMetadata(out)
	if err != nil {
		p.logger.Error(err, "Failed to parse probe metadata")
		return NeutralSample()
	}
	return s
}

// parseMetadata reads the first frame of the metadata dump. Empty output is a
// valid dump with no frames.
func parseMetadata(data []byte) (Sample, error) {
	if len(data) == 0 {
		return NeutralSample(), nil
	}

	var frames []map[string]any
	if err := json.Unmarshal(data, &frames); err != nil {
		var single map[string]any
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return Sample{}, fmt.Errorf("decode metadata: %w", err)
		}
		frames = []map[string]any{single}
	}
	if len(frames) == 0 {
		return NeutralSample(), nil
	}
	md := frames[0]

	s := Sample{
		ExposureMicros: firstNumber(md, 0, "ExposureTime", "Exposure"),
		AnalogueGain:   firstNumber(md, 1.0, "AnalogueGain", "Ag"),
	}
	if s.AnalogueGain == 0 {
		s.AnalogueGain = 1.0
	}
	if fd := firstNumber(md, 0, "FrameDuration"); fd > 0 {
		s.FPS = 1e6 / fd
	}
	return s, nil
}

func firstNumber(md map[string]any, def float64, keys ...string) float64 {
	for _, k := range keys {
		v, ok := md[k]
		if !ok {
			continue
		}
		if f, ok := v.(float64); ok {
			return f
		}
		return def
	}
	return def
}
