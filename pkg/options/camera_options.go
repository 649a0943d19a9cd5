package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*CameraOptions)(nil)

// CameraOptions configures the capture tools and the profile selection thresholds.
type CameraOptions struct {
	// CaptureTools are tried in order; the first one found on PATH is used.
	CaptureTools []string `json:"capture-tools" mapstructure:"capture-tools"`
	ProbeTool    string   `json:"probe-tool" mapstructure:"probe-tool"`
	WorkDir      string   `json:"work-dir" mapstructure:"work-dir"`

	ProbeTimeout   time.Duration `json:"probe-timeout" mapstructure:"probe-timeout"`
	CaptureTimeout time.Duration `json:"capture-timeout" mapstructure:"capture-timeout"`

	DarkExposureMicros float64 `json:"dark-exposure-us" mapstructure:"dark-exposure-us"`
	DarkGain           float64 `json:"dark-gain" mapstructure:"dark-gain"`
	SlowFPS            float64 `json:"slow-fps" mapstructure:"slow-fps"`
	HysteresisHits     int     `json:"hysteresis-hits" mapstructure:"hysteresis-hits"`
	AutofocusWindow    string  `json:"autofocus-window" mapstructure:"autofocus-window"`
}

func NewCameraOptions() *CameraOptions {
	return &CameraOptions{
		CaptureTools:       []string{"rpicam-still", "raspistill"},
		ProbeTool:          "rpicam-hello",
		ProbeTimeout:       5 * time.Second,
		CaptureTimeout:     15 * time.Second,
		DarkExposureMicros: 12000,
		DarkGain:           8.0,
		SlowFPS:            12.0,
		HysteresisHits:     2,
		AutofocusWindow:    "0.4,0.4,0.2,0.2",
	}
}

func (o *CameraOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if len(o.CaptureTools) == 0 {
		errors = append(errors, fmt.Errorf("camera.capture-tools must list at least one tool"))
	}
	if o.ProbeTimeout <= 0 || o.CaptureTimeout <= 0 {
		errors = append(errors, fmt.Errorf("camera.probe-timeout and camera.capture-timeout must be positive"))
	}
	if o.DarkExposureMicros <= 0 || o.DarkGain <= 0 || o.SlowFPS < 0 {
		errors = append(errors, fmt.Errorf("camera thresholds must be positive"))
	}
	if o.HysteresisHits < 1 {
		errors = append(errors, fmt.Errorf("camera.hysteresis-hits must be at least 1, got %d", o.HysteresisHits))
	}

	return errors
}

func (o *CameraOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.CaptureTools, "camera.capture-tools", o.CaptureTools, "Still capture tools, tried in order.")
	fs.StringVar(&o.ProbeTool, "camera.probe-tool", o.ProbeTool, "Tool used to sample exposure metadata. Empty disables probing.")
	fs.StringVar(&o.WorkDir, "camera.work-dir", o.WorkDir, "Directory for temporary capture files. Empty uses the OS temp dir.")
	fs.DurationVar(&o.ProbeTimeout, "camera.probe-timeout", o.ProbeTimeout, "Timeout of a single probe invocation.")
	fs.DurationVar(&o.CaptureTimeout, "camera.capture-timeout", o.CaptureTimeout, "Timeout of a single capture invocation.")
	fs.Float64Var(&o.DarkExposureMicros, "camera.dark-exposure-us", o.DarkExposureMicros, "Exposure time (us) at or above which the scene is considered dark.")
	fs.Float64Var(&o.DarkGain, "camera.dark-gain", o.DarkGain, "Analogue gain at or above which the scene is considered dark.")
	fs.Float64Var(&o.SlowFPS, "camera.slow-fps", o.SlowFPS, "Frame rate at or below which the motion profile is suggested.")
	fs.IntVar(&o.HysteresisHits, "camera.hysteresis-hits", o.HysteresisHits, "Consecutive identical suggestions required to switch profile.")
	fs.StringVar(&o.AutofocusWindow, "camera.autofocus-window", o.AutofocusWindow, "Autofocus window x,y,w,h passed to the capture tool.")
}
