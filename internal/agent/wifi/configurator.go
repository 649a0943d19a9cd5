package wifi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"optix.io/optix/internal/pkg/execx"
	"optix.io/optix/pkg/log"
)

// ErrConnectTimeout is returned when the requested network was not joined in time.
var ErrConnectTimeout = errors.New("wifi connection not confirmed")

var supplicantTemplate = template.Must(template.New("wpa_supplicant").Parse(`country={{ .Country }}
ctrl_interface=DIR=/var/run/wpa_supplicant GROUP=netdev
update_config=1

network={
    ssid="{{ .SSID }}"
    psk="{{ .PSK }}"
    key_mgmt=WPA-PSK
}
`))

type ConfiguratorConfig struct {
	Path           string
	Country        string
	ReloadCommands []string
	PollInterval   time.Duration
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

// Configurator writes the supplicant configuration and waits for the link.
type Configurator struct {
	cfg    ConfiguratorConfig
	runner execx.Runner
	conn   *Connectivity
	logger log.Logger
}

func NewConfigurator(cfg ConfiguratorConfig, runner execx.Runner, conn *Connectivity) *Configurator {
	return &Configurator{
		cfg:    cfg,
		runner: runner,
		conn:   conn,
		logger: log.WithName("wifi"),
	}
}

// Apply returns nil only once the interface reports ssid.
func (c *Configurator) Apply(ctx context.Context, ssid, psk string) error {
	if err := validatePair(ssid, psk); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := supplicantTemplate.Execute(&buf, struct{ Country, SSID, PSK string }{c.cfg.Country, ssid, psk}); err != nil {
		return fmt.Errorf("render supplicant config: %w", err)
	}
	if err := writeFileAtomic(c.cfg.Path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write supplicant config: %w", err)
	}
	c.logger.Info("Wrote network configuration", "ssid", ssid, "path", c.cfg.Path)

	for _, line := range c.cfg.ReloadCommands {
		name, args, ok := execx.SplitCommand(line)
		if !ok {
			continue
		}
		if _, err := execx.RunTimeout(ctx, c.runner, c.cfg.CommandTimeout, name, args...); err != nil {
			c.logger.Warn("Reload command failed, continuing", "command", line, "error", err.Error())
		}
	}

	err := wait.PollUntilContextTimeout(ctx, c.cfg.PollInterval, c.cfg.ConnectTimeout, false, func(ctx context.Context) (bool, error) {
		current, err := c.conn.CurrentSSID(ctx)
		if err != nil {
			return false, nil
		}
		return current == ssid, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s after %s", ErrConnectTimeout, ssid, c.cfg.ConnectTimeout)
	}

	c.logger.Info("WiFi connected", "ssid", ssid)
	return nil
}

func validatePair(ssid, psk string) error {
	if n := len(ssid); n == 0 || n > 32 {
		return fmt.Errorf("%w: ssid must be 1..32 bytes, got %d", ErrInvalidCredentials, n)
	}
	if n := len(psk); n < 8 || n > 63 {
		return fmt.Errorf("%w: passphrase must be 8..63 characters, got %d", ErrInvalidCredentials, n)
	}
	if strings.ContainsAny(ssid, "\"\r\n") || strings.ContainsAny(psk, "\"\r\n") {
		return fmt.Errorf("%w: quotes and line breaks are not allowed", ErrInvalidCredentials)
	}
	return nil
}

// writeFileAtomic replaces path so readers never see a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
