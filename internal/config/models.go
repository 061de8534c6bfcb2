package config

import (
	"fmt"
	"regexp"
	"sort"
)

// Registry represents the entire user configuration file.
// This stores field profiles, the verification server endpoint and
// application preferences.
type Registry struct {
	Version     int                      `yaml:"version"`
	Profiles    map[string]*FieldProfile `yaml:"profiles,omitempty"` // Keyed by profile name
	Server      *ServerPrefs             `yaml:"server,omitempty"`
	Preferences *Preferences             `yaml:"preferences,omitempty"`
	Theme       *Theme                   `yaml:"theme,omitempty"`
}

// FieldProfile describes one code-entry field shape: how many slots it
// has, which candidate strings it accepts and how it is presented.
type FieldProfile struct {
	Length      int    `yaml:"length"`                // Number of slots (must be positive)
	Pattern     string `yaml:"pattern,omitempty"`     // Regexp source, full-string matched; empty accepts anything
	Obscure     bool   `yaml:"obscure"`               // Mask filled slots
	Mask        string `yaml:"mask,omitempty"`        // Mask character when obscured (default "•")
	Description string `yaml:"description,omitempty"` // Shown in profile listings
}

// ServerPrefs points the client at a verification daemon. A nil ServerPrefs
// means no server is configured and the login demo verifies locally.
type ServerPrefs struct {
	Host    string `yaml:"host"`              // Daemon host or IP
	Port    int    `yaml:"port"`              // Daemon port
	Timeout int    `yaml:"timeout,omitempty"` // Dial/verify timeout in seconds
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultProfile  string `yaml:"default_profile"`        // Profile used when none is requested
	AutoDiscover    bool   `yaml:"auto_discover"`          // Enable mDNS daemon discovery on startup
	DiscoverTimeout int    `yaml:"discover_timeout"`       // mDNS discovery timeout in seconds
	DefaultUser     string `yaml:"default_user,omitempty"` // Pre-filled username in the login demo
}

// Theme holds the lipgloss color overrides for the client TUI. Empty
// fields fall back to the built-in palette.
type Theme struct {
	Accent string `yaml:"accent,omitempty"` // Active slot border and highlights
	Filled string `yaml:"filled,omitempty"` // Filled slot characters
	Empty  string `yaml:"empty,omitempty"`  // Empty slot placeholder
	Error  string `yaml:"error,omitempty"`  // Failure messages
}

// DigitsPattern accepts any run of ASCII digits, including none. Profiles
// use permissive * patterns so that clearing the field stays valid.
const DigitsPattern = "[0-9]*"

// DefaultProfiles returns the built-in field profiles.
func DefaultProfiles() map[string]*FieldProfile {
	return map[string]*FieldProfile{
		"pin4": {
			Length:      4,
			Pattern:     DigitsPattern,
			Obscure:     true,
			Description: "4-digit PIN, masked",
		},
		"pin6": {
			Length:      6,
			Pattern:     DigitsPattern,
			Obscure:     true,
			Description: "6-digit PIN, masked",
		},
		"sms6": {
			Length:      6,
			Pattern:     DigitsPattern,
			Description: "6-digit SMS/OTP code",
		},
		"hex8": {
			Length:      8,
			Pattern:     "[0-9a-fA-F]*",
			Description: "8-character hex token",
		},
		"date8": {
			Length:      8,
			Pattern:     DigitsPattern,
			Description: "date entry, DDMMYYYY",
		},
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:  1,
		Profiles: DefaultProfiles(),
		Preferences: &Preferences{
			DefaultProfile:  "sms6",
			AutoDiscover:    true,
			DiscoverTimeout: 5,
		},
	}
}

// Validate checks that the profile can actually drive a field: a positive
// length and, when present, a compilable pattern.
func (p *FieldProfile) Validate() error {
	if p.Length <= 0 {
		return fmt.Errorf("profile length must be positive, got %d", p.Length)
	}
	if p.Pattern != "" {
		if _, err := regexp.Compile("^(?:" + p.Pattern + ")$"); err != nil {
			return fmt.Errorf("profile pattern %q does not compile: %w", p.Pattern, err)
		}
	}
	return nil
}

// MaskRune returns the mask character to draw for obscured slots.
func (p *FieldProfile) MaskRune() rune {
	for _, r := range p.Mask {
		return r
	}
	return '•'
}

// GetProfile retrieves a profile by name. Returns nil if it doesn't exist.
func (r *Registry) GetProfile(name string) *FieldProfile {
	return r.Profiles[name]
}

// SetProfile adds or replaces a named profile.
func (r *Registry) SetProfile(name string, profile *FieldProfile) {
	if r.Profiles == nil {
		r.Profiles = make(map[string]*FieldProfile)
	}
	r.Profiles[name] = profile
}

// DeleteProfile removes a named profile. Removing a profile that doesn't
// exist is a no-op.
func (r *Registry) DeleteProfile(name string) {
	delete(r.Profiles, name)
}

// ProfileNames returns the profile names in sorted order for stable
// listings.
func (r *Registry) ProfileNames() []string {
	names := make([]string, 0, len(r.Profiles))
	for name := range r.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultProfile resolves the preferred profile, falling back to any
// profile with a deterministic pick when the preference is stale.
func (r *Registry) DefaultProfile() (string, *FieldProfile) {
	if r.Preferences != nil {
		if p := r.GetProfile(r.Preferences.DefaultProfile); p != nil {
			return r.Preferences.DefaultProfile, p
		}
	}
	for _, name := range r.ProfileNames() {
		return name, r.Profiles[name]
	}
	return "", nil
}

// SetServer records the verification daemon endpoint.
func (r *Registry) SetServer(host string, port int) {
	if r.Server == nil {
		r.Server = &ServerPrefs{}
	}
	r.Server.Host = host
	r.Server.Port = port
}
