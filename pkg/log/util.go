package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const redacted = "[redacted]"

// secretKeys never reach the log output with their value. Credentials travel
// through the agent as plain strings and are easy to pass to a logger by mistake.
var secretKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"psk":           {},
	"api_key":       {},
	"apikey":        {},
	"secret":        {},
	"secret_key":    {},
}

// IsSecretKey reports whether values logged under key are replaced.
func IsSecretKey(key string) bool {
	_, ok := secretKeys[strings.ToLower(key)]
	return ok
}

// toFields converts a loose key/value list into zap fields.
// A bare error becomes zap.Error and a zap.Field passes through. An unpaired
// trailing value is kept under "arg#N". Non-string keys land in "invalid_key_N".
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)

	for i := 0; i < len(args); {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			i++
			continue
		case error:
			fields = append(fields, zap.Error(v))
			i++
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2

		keyStr, ok := key.(string)
		if !ok {
			fields = append(fields, zap.Any(fmt.Sprintf("invalid_key_%d", i/2), map[string]any{
				"key":   key,
				"value": val,
			}))
			continue
		}

		fields = append(fields, field(keyStr, val))
	}

	return fields
}

func field(key string, val any) zap.Field {
	if IsSecretKey(key) {
		return zap.String(key, redacted)
	}
	switch v := val.(type) {
	case error:
		return zap.NamedError(key, v)
	case []byte:
		return zap.ByteString(key, v)
	case fmt.Stringer:
		return zap.Stringer(key, v)
	default:
		return zap.Any(key, v)
	}
}
