package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"optix.io/optix/internal/agent"
	"optix.io/optix/pkg/log"
	"optix.io/optix/pkg/options"
)

type AgentOptions struct {
	RadioOptions   *options.RadioOptions   `json:"radio" mapstructure:"radio"`
	NetworkOptions *options.NetworkOptions `json:"network" mapstructure:"network"`
	CameraOptions  *options.CameraOptions  `json:"camera" mapstructure:"camera"`
	StreamOptions  *options.StreamOptions  `json:"stream" mapstructure:"stream"`
	AuthOptions    *options.AuthOptions    `json:"auth" mapstructure:"auth"`
	MqttOptions    *options.MqttOptions    `json:"mqtt" mapstructure:"mqtt"`
	S3Options      *options.S3Options      `json:"s3" mapstructure:"s3"`
	HttpOptions    *options.HttpOptions    `json:"http" mapstructure:"http"`
	Log            *log.Options            `json:"log" mapstructure:"log"`
}

func NewAgentOptions() *AgentOptions {
	return &AgentOptions{
		RadioOptions:   options.NewRadioOptions(),
		NetworkOptions: options.NewNetworkOptions(),
		CameraOptions:  options.NewCameraOptions(),
		StreamOptions:  options.NewStreamOptions(),
		AuthOptions:    options.NewAuthOptions(),
		MqttOptions:    options.NewMqttOptions(),
		S3Options:      options.NewS3Options(),
		HttpOptions:    options.NewHttpOptions(),
		Log:            log.NewOptions(),
	}
}

func (o *AgentOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.RadioOptions.AddFlags(fss.FlagSet("radio"))
	o.NetworkOptions.AddFlags(fss.FlagSet("network"))
	o.CameraOptions.AddFlags(fss.FlagSet("camera"))
	o.StreamOptions.AddFlags(fss.FlagSet("stream"))
	o.AuthOptions.AddFlags(fss.FlagSet("auth"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *AgentOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.RadioOptions.Validate()...)
	errs = append(errs, o.NetworkOptions.Validate()...)
	errs = append(errs, o.CameraOptions.Validate()...)
	errs = append(errs, o.StreamOptions.Validate()...)
	errs = append(errs, o.AuthOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *AgentOptions) Config() (*agent.Config, error) {
	return &agent.Config{
		RadioOptions:   o.RadioOptions,
		NetworkOptions: o.NetworkOptions,
		CameraOptions:  o.CameraOptions,
		StreamOptions:  o.StreamOptions,
		AuthOptions:    o.AuthOptions,
		MqttOptions:    o.MqttOptions,
		S3Options:      o.S3Options,
		HttpOptions:    o.HttpOptions,
	}, nil
}
