package hal

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/google/uuid"
)

// cpuinfoSerial extracts the "Serial" field of /proc/cpuinfo.
func cpuinfoSerial(data []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Serial" {
			continue
		}
		return strings.TrimSpace(value)
	}
	return ""
}

// macSerial turns "b8:27:eb:12:34:56" into "b827eb123456".
func macSerial(data []byte) string {
	return strings.ReplaceAll(strings.TrimSpace(string(data)), ":", "")
}

// randomSerial is the last resort when the board exposes no identity.
func randomSerial() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// pickSerial returns the first non-empty candidate, or a random one.
func pickSerial(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return randomSerial()
}
