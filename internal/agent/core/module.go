package core

import (
	"context"
	"strings"
)

// Verb names a command accepted on the command endpoint. A verb ending in ':'
// is a prefix ("auth:") and receives the rest of the string; any other verb
// ("scan_wifi") must match the whole command.
type Verb string

// IsPrefix reports whether v takes an argument.
func (v Verb) IsPrefix() bool { return strings.HasSuffix(string(v), ":") }

// CommandFunc handles one verb. arg is the text after the prefix (empty for exact verbs).
// Returned errors are logged by the router and never reach the radio protocol.
type CommandFunc func(ctx context.Context, arg string) error

// Module contributes a set of verbs to the command router.
type Module interface {
	Name() string

	Routes() map[Verb]CommandFunc
}
