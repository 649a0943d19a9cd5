package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/component-base/cli/globalflag"

	"optix.io/optix/cmd/optix-agent/app/options"
	"optix.io/optix/internal/agent/camera"
	"optix.io/optix/pkg/log"
)

const (
	commandName = "optix-agent"
	commandDesc = `The OPTIX agent runs on the camera. It accepts WiFi credentials and
commands over BLE, joins the network and streams frames to the collector.`

	envPrefix = "OPTIX"
)

func NewAgentCommand(ctx context.Context) *cobra.Command {
	opts := options.NewAgentOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:          commandName,
		Short:        "Launch the OPTIX camera agent",
		Long:         commandDesc,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd.Flags(), configFile, opts); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			log.Init(opts.Log)
			defer func() { _ = log.Sync() }()

			cfg, err := opts.Config()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			agent, err := cfg.NewAgent()
			if err != nil {
				log.Error(err, "failed to create agent")
				return err
			}

			return agent.Run(ctx)
		},
	}

	fs := cmd.Flags()
	namedfs := opts.Flags()
	globalflag.AddGlobalFlags(namedfs.FlagSet("global"), cmd.Name())
	for _, f := range namedfs.FlagSets {
		fs.AddFlagSet(f)
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML, JSON or TOML configuration file.")

	cmd.AddCommand(newProfilesCommand())
	return cmd
}

// loadConfig merges, by increasing precedence, defaults, the config file,
// OPTIX_* environment variables and explicitly set flags into opts.
func loadConfig(fs *pflag.FlagSet, configFile string, opts *options.AgentOptions) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}

func newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "Print the capture profiles",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printProfiles(cmd.OutOrStdout())
		},
	}
}

func printProfiles(w io.Writer) {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("NAME", "RESOLUTION", "QUALITY", "SHUTTER", "AUTOFOCUS", "EXPOSURE", "DENOISE")
	for _, p := range camera.Profiles() {
		denoise := p.DenoiseMode
		if denoise == "" {
			denoise = "-"
		}
		table.AddRow(p.Name, p.Resolution(), p.Quality, p.Shutter(), p.AutofocusRange+"/"+p.AutofocusSpeed, p.ExposureMode, denoise)
	}
	_, _ = fmt.Fprintln(w, table)
}
