// Package validation checks the reverse-tunnel endpoint settings.
package validation

import (
	"fmt"
	"net"
	"strings"
)

const maxHostnameLength = 253

// ValidateHost accepts an IP address, a single-label hostname or an FQDN.
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if len(host) > maxHostnameLength {
		return fmt.Errorf("host '%s' exceeds %d characters", host, maxHostnameLength)
	}

	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return fmt.Errorf("host '%s' cannot start or end with a dot", host)
	}

	if !IsValidHostname(host) {
		return fmt.Errorf("host '%s' contains invalid characters or format", host)
	}

	return nil
}

// IsValidHostname checks every dot-separated label of a hostname.
func IsValidHostname(hostname string) bool {
	if hostname == "" {
		return false
	}

	for _, label := range strings.Split(hostname, ".") {
		if label == "" || len(label) > 63 {
			return false
		}

		// Each label must start and end with alphanumeric
		if !isAlphanumeric(label[0]) || !isAlphanumeric(label[len(label)-1]) {
			return false
		}

		for _, char := range label {
			if !isAlphanumericOrHyphen(char) {
				return false
			}
		}
	}

	return true
}

// ValidatePort checks that port is a usable TCP port.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", port)
	}
	return nil
}

// isAlphanumeric checks if a byte is alphanumeric
func isAlphanumeric(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// isAlphanumericOrHyphen checks if a rune is alphanumeric or hyphen
func isAlphanumericOrHyphen(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-'
}
