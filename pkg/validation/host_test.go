package validation

import (
	"strings"
	"testing"
)

func TestValidateHost(t *testing.T) {
	tests := []struct {
		name      string
		host      string
		expectErr bool
	}{
		// Valid hosts
		{"Single label", "beehive", false},
		{"FQDN", "beehive.example.org", false},
		{"FQDN with hyphens", "bk-tunnel.example.org", false},
		{"IPv4", "10.31.81.1", false},
		{"IPv6", "fd00::1", false},

		// Invalid hosts
		{"Empty host", "", true},
		{"Starts with dot", ".example.org", true},
		{"Ends with dot", "example.org.", true},
		{"Empty label", "example..org", true},
		{"Label starts with hyphen", "-beehive.org", true},
		{"Label ends with hyphen", "beehive-.org", true},
		{"Underscore", "bee_hive", true},
		{"Space", "bee hive", true},
		{"Port included", "beehive:20022", true},
		{"Label too long", strings.Repeat("a", 64) + ".org", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHost(tt.host)
			if tt.expectErr && err == nil {
				t.Errorf("ValidateHost(%q) expected error, got nil", tt.host)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("ValidateHost(%q) unexpected error: %v", tt.host, err)
			}
		})
	}
}

func TestValidatePort(t *testing.T) {
	for _, port := range []int{1, 22, 20022, 65535} {
		if err := ValidatePort(port); err != nil {
			t.Errorf("ValidatePort(%d) unexpected error: %v", port, err)
		}
	}
	for _, port := range []int{-1, 0, 65536} {
		if err := ValidatePort(port); err == nil {
			t.Errorf("ValidatePort(%d) expected error, got nil", port)
		}
	}
}
