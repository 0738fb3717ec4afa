// Package profile defines serial device profiles used for port autodetection
// and per-device presentation limits.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Roles a serial connection can play.
const (
	RoleTrigger = "trigger"
	RoleDisplay = "display"
)

// Profile describes one known device type.
type Profile struct {
	Name         string   `yaml:"name"`
	Role         string   `yaml:"role"`
	Match        []string `yaml:"match"`        // case-insensitive substrings of the device id
	Baud         int      `yaml:"baud"`
	DisplayWidth int      `yaml:"displayWidth"` // character budget for one line, 0 = unlimited
}

// Set holds the loaded device profiles.
type Set struct {
	profiles []Profile
}

// Defaults returns the built-in device profiles: a generic Arduino-class
// trigger device and a small LCD display device.
func Defaults() []Profile {
	return []Profile{
		{
			Name:  "arduino-trigger",
			Role:  RoleTrigger,
			Match: []string{"arduino", "usb serial", "ch340", "cp210"},
			Baud:  115200,
		},
		{
			Name:         "esp32-display",
			Role:         RoleDisplay,
			Match:        []string{"esp32", "cp210", "usb-serial"},
			Baud:         115200,
			DisplayWidth: 16,
		},
	}
}

// Load reads profiles from a YAML file and appends them ahead of the built-in
// defaults so user entries win on lookup. An empty path or missing file yields
// defaults only.
func Load(path string) (*Set, error) {
	s := &Set{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read profiles file: %w", err)
			}
		} else {
			var loaded []Profile
			if err := yaml.Unmarshal(data, &loaded); err != nil {
				return nil, fmt.Errorf("parse profiles file: %w", err)
			}
			s.profiles = append(s.profiles, loaded...)
		}
	}
	s.profiles = append(s.profiles, Defaults()...)
	return s, nil
}

// ForRole returns all profiles for a role, user entries first.
func (s *Set) ForRole(role string) []Profile {
	var out []Profile
	for _, p := range s.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// DisplayWidth returns the character budget for a role's device line,
// or 0 when no profile limits it.
func (s *Set) DisplayWidth(role string) int {
	for _, p := range s.profiles {
		if p.Role == role && p.DisplayWidth > 0 {
			return p.DisplayWidth
		}
	}
	return 0
}

// Baud returns the configured baud rate for a role, or fallback when no
// profile specifies one.
func (s *Set) Baud(role string, fallback int) int {
	for _, p := range s.profiles {
		if p.Role == role && p.Baud > 0 {
			return p.Baud
		}
	}
	return fallback
}

// DetectIn scans dir (normally /dev/serial/by-id) for an entry whose name
// matches one of the role's profiles and returns its resolved path.
func (s *Set) DetectIn(role, dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, p := range s.ForRole(role) {
		for _, entry := range entries {
			name := strings.ToLower(entry.Name())
			for _, m := range p.Match {
				if strings.Contains(name, strings.ToLower(m)) {
					return filepath.Join(dir, entry.Name()), true
				}
			}
		}
	}
	return "", false
}

// Detect scans the standard Linux by-id directory for a device matching the role.
func (s *Set) Detect(role string) (string, bool) {
	return s.DetectIn(role, "/dev/serial/by-id")
}
