package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions configures the local health and metrics endpoint.
type HttpOptions struct {
	// Addr is the bind address. An empty value disables the endpoint.
	Addr string `json:"addr" mapstructure:"addr"`

	// ShutdownTimeout bounds the graceful shutdown of the server.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewHttpOptions creates a HttpOptions object with default parameters.
func NewHttpOptions() *HttpOptions {
	return &HttpOptions{
		Addr:            "127.0.0.1:9100",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Enabled reports whether the endpoint should be served.
func (o *HttpOptions) Enabled() bool {
	return o != nil && o.Addr != ""
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *HttpOptions) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	errors := []error{}

	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}

	return errors
}

// AddFlags adds flags for the health/metrics endpoint to the specified FlagSet.
func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, "http.addr", o.Addr, "Bind address of the health and metrics endpoint. Empty disables it.")
	fs.DurationVar(&o.ShutdownTimeout, "http.shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout of the health endpoint.")
}
