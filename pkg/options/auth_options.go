package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*AuthOptions)(nil)

// AuthOptions configures the REST user store used by auth and register commands.
type AuthOptions struct {
	// BaseURL of the user store. Empty makes auth and register report an error status.
	BaseURL string        `json:"base-url" mapstructure:"base-url"`
	APIKey  string        `json:"api-key" mapstructure:"api-key"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

func NewAuthOptions() *AuthOptions {
	return &AuthOptions{
		Timeout: 10 * time.Second,
	}
}

func (o *AuthOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.BaseURL != "" {
		u, err := url.Parse(o.BaseURL)
		if err != nil {
			errors = append(errors, fmt.Errorf("auth.base-url: %w", err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Errorf("auth.base-url must be http(s), got %q", o.BaseURL))
		}
	}
	if o.Timeout <= 0 {
		errors = append(errors, fmt.Errorf("auth.timeout must be positive"))
	}

	return errors
}

func (o *AuthOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, "auth.base-url", o.BaseURL, "Base URL of the REST user store (e.g. https://xyz.supabase.co).")
	fs.StringVar(&o.APIKey, "auth.api-key", o.APIKey, "API key sent as apikey and bearer token.")
	fs.DurationVar(&o.Timeout, "auth.timeout", o.Timeout, "HTTP timeout of user store requests.")
}
