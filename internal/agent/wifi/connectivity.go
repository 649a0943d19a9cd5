package wifi

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"time"

	"optix.io/optix/internal/pkg/execx"
)

// Connectivity reports the SSID the wireless interface is associated with.
type Connectivity struct {
	runner  execx.Runner
	iface   string
	timeout time.Duration
}

func NewConnectivity(runner execx.Runner, iface string, timeout time.Duration) *Connectivity {
	return &Connectivity{runner: runner, iface: iface, timeout: timeout}
}

// CurrentSSID returns "" with an error when the interface is not associated.
func (c *Connectivity) CurrentSSID(ctx context.Context) (string, error) {
	out, err := execx.RunTimeout(ctx, c.runner, c.timeout, "iwgetid", c.iface, "-r")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Connected is true when an SSID is reported.
func (c *Connectivity) Connected(ctx context.Context) bool {
	ssid, err := c.CurrentSSID(ctx)
	return err == nil && ssid != ""
}

// Scan lists the visible network names, skipping hidden ones.
func (c *Connectivity) Scan(ctx context.Context) ([]string, error) {
	out, err := execx.RunTimeout(ctx, c.runner, c.timeout, "iwlist", c.iface, "scan")
	if err != nil {
		return nil, err
	}
	return parseScan(out), nil
}

func parseScan(out []byte) []string {
	var networks []string
	seen := map[string]bool{}

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		_, rest, ok := strings.Cut(sc.Text(), "ESSID:")
		if !ok {
			continue
		}
		ssid := strings.Trim(strings.TrimSpace(rest), `"`)
		if ssid == "" || ssid == "<hidden>" || strings.HasPrefix(ssid, `\x00`) || seen[ssid] {
			continue
		}
		seen[ssid] = true
		networks = append(networks, ssid)
	}
	return networks
}
