package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*StreamOptions)(nil)

// StreamOptions configures the frame collector connection.
type StreamOptions struct {
	Collector    string        `json:"collector" mapstructure:"collector"`
	Interval     time.Duration `json:"interval" mapstructure:"interval"`
	DialTimeout  time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`

	// MaxFrameBytes rejects frames larger than this before they are sent.
	MaxFrameBytes int `json:"max-frame-bytes" mapstructure:"max-frame-bytes"`
}

func NewStreamOptions() *StreamOptions {
	return &StreamOptions{
		Collector:     "192.168.1.122:5000",
		Interval:      3 * time.Second,
		DialTimeout:   5 * time.Second,
		WriteTimeout:  10 * time.Second,
		MaxFrameBytes: 32 << 20,
	}
}

func (o *StreamOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if err := ValidateAddress(o.Collector); err != nil {
		errors = append(errors, fmt.Errorf("stream.collector: %w", err))
	}
	if o.Interval <= 0 || o.DialTimeout <= 0 || o.WriteTimeout <= 0 {
		errors = append(errors, fmt.Errorf("stream durations must be positive"))
	}
	if o.MaxFrameBytes <= 0 {
		errors = append(errors, fmt.Errorf("stream.max-frame-bytes must be positive"))
	}

	return errors
}

func (o *StreamOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Collector, "stream.collector", o.Collector, "host:port of the frame collector.")
	fs.DurationVar(&o.Interval, "stream.interval", o.Interval, "Pause between two captures.")
	fs.DurationVar(&o.DialTimeout, "stream.dial-timeout", o.DialTimeout, "Timeout for connecting to the collector.")
	fs.DurationVar(&o.WriteTimeout, "stream.write-timeout", o.WriteTimeout, "Deadline for sending one frame.")
	fs.IntVar(&o.MaxFrameBytes, "stream.max-frame-bytes", o.MaxFrameBytes, "Largest frame accepted for sending.")
}
