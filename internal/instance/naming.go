// Package instance names the status bus namespace a machine publishes under.
package instance

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxNameLength is the maximum length for an instance name (DNS-compatible)
const MaxNameLength = 63

// Fallback is used when no usable name can be derived from the host.
const Fallback = "localhost"

// NamePattern matches DNS-compatible names: lowercase alphanumeric with
// hyphens, not at the start or end.
var NamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

var invalidRun = regexp.MustCompile(`[^a-z0-9]+`)

// ValidateName checks an explicitly configured instance name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxNameLength)
	}
	if !NamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}
	return nil
}

// FromHostname derives an instance name from a host name: the first label,
// lowercased, with other characters collapsed to hyphens.
func FromHostname(host string) string {
	label, _, _ := strings.Cut(host, ".")
	name := invalidRun.ReplaceAllString(strings.ToLower(label), "-")
	name = strings.Trim(name, "-")
	if len(name) > MaxNameLength {
		name = strings.TrimRight(name[:MaxNameLength], "-")
	}
	if name == "" {
		return Fallback
	}
	return name
}

// Resolve returns configured when set, validated, otherwise the name derived
// from host.
func Resolve(configured, host string) (string, error) {
	if configured != "" {
		if err := ValidateName(configured); err != nil {
			return "", err
		}
		return configured, nil
	}
	return FromHostname(host), nil
}
