package options

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

var _ IOptions = (*RadioOptions)(nil)

// RadioOptions configures the BLE provisioning service and the supervisor cadence.
type RadioOptions struct {
	// Adapter is the BlueZ adapter object path. Empty selects the first adapter
	// exposing GattManager1.
	Adapter   string `json:"adapter" mapstructure:"adapter"`
	LocalName string `json:"local-name" mapstructure:"local-name"`

	ServiceUUID    string `json:"service-uuid" mapstructure:"service-uuid"`
	CredentialUUID string `json:"credential-uuid" mapstructure:"credential-uuid"`
	StatusUUID     string `json:"status-uuid" mapstructure:"status-uuid"`
	CommandUUID    string `json:"command-uuid" mapstructure:"command-uuid"`

	// CallTimeout bounds every D-Bus method call.
	CallTimeout time.Duration `json:"call-timeout" mapstructure:"call-timeout"`

	// SupervisorInterval is the period of the supervisor cycle.
	SupervisorInterval time.Duration `json:"supervisor-interval" mapstructure:"supervisor-interval"`
}

func NewRadioOptions() *RadioOptions {
	return &RadioOptions{
		LocalName:          "OPTIX",
		ServiceUUID:        "12345678-1234-5678-9abc-123456789abc",
		CredentialUUID:     "87654321-4321-4321-4321-cba987654321",
		StatusUUID:         "11111111-2222-3333-4444-555555555555",
		CommandUUID:        "66666666-7777-8888-9999-aaaaaaaaaaaa",
		CallTimeout:        5 * time.Second,
		SupervisorInterval: 15 * time.Second,
	}
}

func (o *RadioOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.LocalName == "" {
		errors = append(errors, fmt.Errorf("radio.local-name must not be empty"))
	}

	for name, v := range map[string]string{
		"radio.service-uuid":    o.ServiceUUID,
		"radio.credential-uuid": o.CredentialUUID,
		"radio.status-uuid":     o.StatusUUID,
		"radio.command-uuid":    o.CommandUUID,
	} {
		if _, err := uuid.Parse(v); err != nil {
			errors = append(errors, fmt.Errorf("%s: %w", name, err))
		}
	}

	if o.CallTimeout <= 0 {
		errors = append(errors, fmt.Errorf("radio.call-timeout must be positive"))
	}
	if o.SupervisorInterval < time.Second {
		errors = append(errors, fmt.Errorf("radio.supervisor-interval must be at least 1s, got %s", o.SupervisorInterval))
	}

	return errors
}

func (o *RadioOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Adapter, "radio.adapter", o.Adapter, "BlueZ adapter object path (e.g. /org/bluez/hci0). Empty picks the first capable adapter.")
	fs.StringVar(&o.LocalName, "radio.local-name", o.LocalName, "Advertised local name.")
	fs.StringVar(&o.ServiceUUID, "radio.service-uuid", o.ServiceUUID, "UUID of the provisioning GATT service.")
	fs.StringVar(&o.CredentialUUID, "radio.credential-uuid", o.CredentialUUID, "UUID of the credential characteristic.")
	fs.StringVar(&o.StatusUUID, "radio.status-uuid", o.StatusUUID, "UUID of the status characteristic.")
	fs.StringVar(&o.CommandUUID, "radio.command-uuid", o.CommandUUID, "UUID of the command characteristic.")
	fs.DurationVar(&o.CallTimeout, "radio.call-timeout", o.CallTimeout, "Timeout of a single D-Bus call.")
	fs.DurationVar(&o.SupervisorInterval, "radio.supervisor-interval", o.SupervisorInterval, "Interval of the supervisor liveness cycle.")
}
