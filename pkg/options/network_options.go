package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*NetworkOptions)(nil)

// NetworkOptions configures credential intake and WiFi configuration.
type NetworkOptions struct {
	// CredentialFile is the file-drop channel. Empty disables the watcher.
	CredentialFile string `json:"credential-file" mapstructure:"credential-file"`

	SupplicantConfig string   `json:"supplicant-config" mapstructure:"supplicant-config"`
	Country          string   `json:"country" mapstructure:"country"`
	Interface        string   `json:"interface" mapstructure:"interface"`
	ReloadCommands   []string `json:"reload-commands" mapstructure:"reload-commands"`

	PollInterval   time.Duration `json:"poll-interval" mapstructure:"poll-interval"`
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	CommandTimeout time.Duration `json:"command-timeout" mapstructure:"command-timeout"`

	// RetryCooldown allows a failed candidate to be attempted again after it elapses.
	RetryCooldown time.Duration `json:"retry-cooldown" mapstructure:"retry-cooldown"`

	// Debounce coalesces bursts of file events.
	Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
}

func NewNetworkOptions() *NetworkOptions {
	return &NetworkOptions{
		CredentialFile:   "/tmp/wifi_credentials.json",
		SupplicantConfig: "/etc/wpa_supplicant/wpa_supplicant.conf",
		Country:          "TR",
		Interface:        "wlan0",
		ReloadCommands: []string{
			"systemctl restart dhcpcd",
			"systemctl restart wpa_supplicant",
		},
		PollInterval:   time.Second,
		ConnectTimeout: 10 * time.Second,
		CommandTimeout: 20 * time.Second,
		RetryCooldown:  30 * time.Second,
		Debounce:       500 * time.Millisecond,
	}
}

func (o *NetworkOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.SupplicantConfig == "" {
		errors = append(errors, fmt.Errorf("network.supplicant-config must not be empty"))
	}
	if len(o.Country) != 2 {
		errors = append(errors, fmt.Errorf("network.country must be a two letter code, got %q", o.Country))
	}
	if o.Interface == "" {
		errors = append(errors, fmt.Errorf("network.interface must not be empty"))
	}
	if o.PollInterval <= 0 || o.ConnectTimeout < o.PollInterval {
		errors = append(errors, fmt.Errorf("network.connect-timeout (%s) must be at least network.poll-interval (%s)", o.ConnectTimeout, o.PollInterval))
	}
	if o.CommandTimeout <= 0 {
		errors = append(errors, fmt.Errorf("network.command-timeout must be positive"))
	}
	if o.RetryCooldown < 0 || o.Debounce < 0 {
		errors = append(errors, fmt.Errorf("network.retry-cooldown and network.debounce must not be negative"))
	}

	return errors
}

func (o *NetworkOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.CredentialFile, "network.credential-file", o.CredentialFile, "JSON credential drop file watched for {ssid,password}. Empty disables the watcher.")
	fs.StringVar(&o.SupplicantConfig, "network.supplicant-config", o.SupplicantConfig, "Path of the wpa_supplicant configuration written on apply.")
	fs.StringVar(&o.Country, "network.country", o.Country, "Regulatory country code written to the supplicant configuration.")
	fs.StringVar(&o.Interface, "network.interface", o.Interface, "Wireless interface used for scans and connectivity checks.")
	fs.StringSliceVar(&o.ReloadCommands, "network.reload-commands", o.ReloadCommands, "Commands run (best-effort) after writing the configuration.")
	fs.DurationVar(&o.PollInterval, "network.poll-interval", o.PollInterval, "Connectivity poll interval after apply.")
	fs.DurationVar(&o.ConnectTimeout, "network.connect-timeout", o.ConnectTimeout, "Maximum time to wait for connectivity after apply.")
	fs.DurationVar(&o.CommandTimeout, "network.command-timeout", o.CommandTimeout, "Timeout of each reload or scan command.")
	fs.DurationVar(&o.RetryCooldown, "network.retry-cooldown", o.RetryCooldown, "Time after which a failed credential pair may be applied again.")
	fs.DurationVar(&o.Debounce, "network.debounce", o.Debounce, "Debounce window for credential file events.")
}
