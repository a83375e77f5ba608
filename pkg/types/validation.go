package types

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Validation regexes - compiled once at package init
var (
	// Daemon service paths: slash-separated object-path-like identifiers
	servicePathRegex = regexp.MustCompile(`^/[a-zA-Z0-9_/]*[a-zA-Z0-9_]$`)

	// GUIDs: hex groups with dashes (RFC 4122 layout) or an opaque token
	guidRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

	// Hex-encoded SSIDs: even number of hex digits, 1-32 bytes
	hexSSIDRegex = regexp.MustCompile(`^(?:[0-9A-Fa-f]{2}){1,32}$`)
)

// ValidateNetworkID validates a network identifier: either a daemon service
// path or a tether GUID.
func ValidateNetworkID(id string) error {
	if id == "" {
		return fmt.Errorf("network id cannot be empty")
	}
	if strings.ContainsAny(id, " \t\n\x00") {
		return fmt.Errorf("network id cannot contain whitespace or null bytes")
	}
	if strings.HasPrefix(id, "/") {
		if !servicePathRegex.MatchString(id) {
			return fmt.Errorf("invalid service path: %q", id)
		}
		return nil
	}
	if !guidRegex.MatchString(id) {
		return fmt.Errorf("invalid network id: %q", id)
	}
	return nil
}

// ValidateSSID validates a WiFi SSID
func ValidateSSID(ssid string) error {
	if ssid == "" {
		return fmt.Errorf("SSID cannot be empty")
	}
	if len(ssid) > 32 {
		return fmt.Errorf("SSID too long (max 32 bytes)")
	}
	if strings.ContainsAny(ssid, "\x00") {
		return fmt.Errorf("SSID cannot contain null bytes")
	}
	return nil
}

// ValidateHexSSID validates a hex-encoded SSID as used in policy
// blocked-SSID lists.
func ValidateHexSSID(hexSSID string) error {
	if hexSSID == "" {
		return fmt.Errorf("hex SSID cannot be empty")
	}
	if !hexSSIDRegex.MatchString(hexSSID) {
		return fmt.Errorf("invalid hex SSID: %q", hexSSID)
	}
	return nil
}

// HexSSID returns the uppercase hex encoding of an SSID, the form policy
// lists use for comparison.
func HexSSID(ssid string) string {
	return strings.ToUpper(hex.EncodeToString([]byte(ssid)))
}

// EqualHexSSID compares two hex-encoded SSIDs case-insensitively.
func EqualHexSSID(a, b string) bool {
	return strings.EqualFold(a, b)
}
