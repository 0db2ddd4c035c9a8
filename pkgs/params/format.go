package params

import (
	"net/netip"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// Format names the shape a string value must have. Values that do not
// validate as JSON strings are never checked against a format.
type Format string

// Formats built into the JSON Schema validator.
const (
	FormatURI      Format = "uri"
	FormatHostname Format = "hostname"
	FormatIPv4     Format = "ipv4"
	FormatIPv6     Format = "ipv6"
	FormatEmail    Format = "email"
)

// Formats this package checks.
const (
	FormatCIDR     Format = "cidr"     // 10.0.0.0/8
	FormatSemver   Format = "semver"   // 1.2.3 or v1.2.3
	FormatDuration Format = "duration" // 1h30m, as time.ParseDuration reads it
)

var formatCheckers = map[Format]func(string) bool{
	FormatCIDR: func(s string) bool {
		_, err := netip.ParsePrefix(s)
		return err == nil
	},
	FormatSemver: func(s string) bool {
		if !strings.HasPrefix(s, "v") {
			s = "v" + s
		}
		return semver.IsValid(s)
	},
	FormatDuration: func(s string) bool {
		_, err := time.ParseDuration(s)
		return err == nil
	},
}

// IsValidFormat reports whether a format constraint may name f.
func IsValidFormat(f Format) bool {
	switch f {
	case FormatURI, FormatHostname, FormatIPv4, FormatIPv6, FormatEmail:
		return true
	}
	_, ok := formatCheckers[f]
	return ok
}

// schemaFormats adapts formatCheckers to the validator's format hook.
func schemaFormats() map[string]func(any) bool {
	out := make(map[string]func(any) bool, len(formatCheckers))
	for f, check := range formatCheckers {
		out[string(f)] = func(v any) bool {
			s, ok := v.(string)
			return !ok || check(s)
		}
	}
	return out
}
