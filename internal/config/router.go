package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical router defaults file.
const DefaultConfigPath = "config/router.defaults.json"

// RouterConfig is the startup configuration for the orientation router.
// Every field is optional; the Get* accessors supply the default for any
// field omitted from the file, so partial files are safe.
type RouterConfig struct {
	// Ingestion
	UDPPort     *int    `json:"udp_port,omitempty" yaml:"udp_port,omitempty"`
	RcvBuf      *int    `json:"rcv_buf,omitempty" yaml:"rcv_buf,omitempty"`
	ReadTimeout *string `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"` // duration string like "5s"
	MaxFace     *int    `json:"max_face,omitempty" yaml:"max_face,omitempty"`
	StatsPeriod *string `json:"stats_interval,omitempty" yaml:"stats_interval,omitempty"`

	// Debounce
	StabilityThreshold *int    `json:"stability_threshold,omitempty" yaml:"stability_threshold,omitempty"`
	ZeroPolicy         *string `json:"zero_policy,omitempty" yaml:"zero_policy,omitempty"` // "ignore" or "break"

	// Connectivity
	ConnectivityTimeout *string `json:"connectivity_timeout,omitempty" yaml:"connectivity_timeout,omitempty"`

	// Switching
	SettleInterval *string `json:"settle_interval,omitempty" yaml:"settle_interval,omitempty"`

	// Presentation
	SplashIntro    *string `json:"splash_intro,omitempty" yaml:"splash_intro,omitempty"`
	SplashHold     *string `json:"splash_hold,omitempty" yaml:"splash_hold,omitempty"`
	TransitionHold *string `json:"transition_hold,omitempty" yaml:"transition_hold,omitempty"`
	HoldPolicy     *string `json:"hold_policy,omitempty" yaml:"hold_policy,omitempty"` // "absorb" or "restart"

	// Evaluation loop
	TickInterval *string `json:"tick_interval,omitempty" yaml:"tick_interval,omitempty"`

	// Wired sensor variant
	SerialBaudRate *int `json:"serial_baud_rate,omitempty" yaml:"serial_baud_rate,omitempty"`

	Projects []ProjectConfig `json:"projects,omitempty" yaml:"projects,omitempty"`
}

// ProjectConfig describes the content bound to one face.
type ProjectConfig struct {
	Face        int    `json:"face" yaml:"face"`
	Name        string `json:"name" yaml:"name"`
	CreatorName string `json:"creator_name,omitempty" yaml:"creator_name,omitempty"`
	CreatorURL  string `json:"creator_url,omitempty" yaml:"creator_url,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Zero policy and hold policy tokens accepted in the config file.
const (
	ZeroPolicyIgnore  = "ignore"
	ZeroPolicyBreak   = "break"
	HoldPolicyAbsorb  = "absorb"
	HoldPolicyRestart = "restart"
)

// LoadRouterConfig loads a RouterConfig from a JSON or YAML file, chosen
// by extension. The file must be under 1MB.
func LoadRouterConfig(path string) (*RouterConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have a .json or .yaml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RouterConfig{}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *RouterConfig) Validate() error {
	if c.UDPPort != nil && (*c.UDPPort < 0 || *c.UDPPort > 65535) {
		return fmt.Errorf("udp_port must be between 0 and 65535, got %d", *c.UDPPort)
	}
	if c.RcvBuf != nil && *c.RcvBuf < 0 {
		return fmt.Errorf("rcv_buf must be non-negative, got %d", *c.RcvBuf)
	}
	if c.MaxFace != nil && (*c.MaxFace < 1 || *c.MaxFace > 64) {
		return fmt.Errorf("max_face must be between 1 and 64, got %d", *c.MaxFace)
	}
	if c.StabilityThreshold != nil && *c.StabilityThreshold < 1 {
		return fmt.Errorf("stability_threshold must be at least 1, got %d", *c.StabilityThreshold)
	}
	if c.ZeroPolicy != nil {
		switch strings.ToLower(*c.ZeroPolicy) {
		case ZeroPolicyIgnore, ZeroPolicyBreak:
		default:
			return fmt.Errorf("zero_policy must be %q or %q, got %q", ZeroPolicyIgnore, ZeroPolicyBreak, *c.ZeroPolicy)
		}
	}
	if c.HoldPolicy != nil {
		switch strings.ToLower(*c.HoldPolicy) {
		case HoldPolicyAbsorb, HoldPolicyRestart:
		default:
			return fmt.Errorf("hold_policy must be %q or %q, got %q", HoldPolicyAbsorb, HoldPolicyRestart, *c.HoldPolicy)
		}
	}
	if c.SerialBaudRate != nil && *c.SerialBaudRate < 0 {
		return fmt.Errorf("serial_baud_rate must be non-negative, got %d", *c.SerialBaudRate)
	}

	durations := []struct {
		name     string
		value    *string
		positive bool
	}{
		{"read_timeout", c.ReadTimeout, true},
		{"stats_interval", c.StatsPeriod, true},
		{"connectivity_timeout", c.ConnectivityTimeout, true},
		{"settle_interval", c.SettleInterval, false},
		{"splash_intro", c.SplashIntro, true},
		{"splash_hold", c.SplashHold, true},
		{"transition_hold", c.TransitionHold, true},
		{"tick_interval", c.TickInterval, true},
	}
	for _, d := range durations {
		if d.value == nil || *d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.value, err)
		}
		if parsed < 0 || (d.positive && parsed == 0) {
			return fmt.Errorf("%s must be positive, got %s", d.name, *d.value)
		}
	}

	maxFace := c.GetMaxFace()
	seen := make(map[int]bool, len(c.Projects))
	for _, p := range c.Projects {
		if p.Face < 1 || p.Face > maxFace {
			return fmt.Errorf("project %q face %d outside [1, %d]", p.Name, p.Face, maxFace)
		}
		if seen[p.Face] {
			return fmt.Errorf("face %d has more than one project", p.Face)
		}
		seen[p.Face] = true
	}

	return nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// GetUDPPort returns the udp_port value or the default (8888).
func (c *RouterConfig) GetUDPPort() int { return intOr(c.UDPPort, 8888) }

// GetRcvBuf returns the rcv_buf value or the default (64KiB).
func (c *RouterConfig) GetRcvBuf() int { return intOr(c.RcvBuf, 64<<10) }

// GetReadTimeout returns the read_timeout value or the default (5s).
func (c *RouterConfig) GetReadTimeout() time.Duration { return durationOr(c.ReadTimeout, 5*time.Second) }

// GetMaxFace returns the number of selectable faces N (default 6).
func (c *RouterConfig) GetMaxFace() int { return intOr(c.MaxFace, 6) }

// GetStatsInterval returns the stats_interval value or the default (30s).
func (c *RouterConfig) GetStatsInterval() time.Duration {
	return durationOr(c.StatsPeriod, 30*time.Second)
}

// GetStabilityThreshold returns the stability_threshold value or the default (3).
func (c *RouterConfig) GetStabilityThreshold() int { return intOr(c.StabilityThreshold, 3) }

// GetZeroPolicy returns the normalised zero_policy token (default "ignore").
func (c *RouterConfig) GetZeroPolicy() string {
	if c.ZeroPolicy == nil || *c.ZeroPolicy == "" {
		return ZeroPolicyIgnore
	}
	return strings.ToLower(*c.ZeroPolicy)
}

// GetConnectivityTimeout returns the connectivity_timeout value or the default (3s).
func (c *RouterConfig) GetConnectivityTimeout() time.Duration {
	return durationOr(c.ConnectivityTimeout, 3*time.Second)
}

// GetSettleInterval returns the settle_interval value or the default (50ms).
func (c *RouterConfig) GetSettleInterval() time.Duration {
	return durationOr(c.SettleInterval, 50*time.Millisecond)
}

// GetSplashIntro returns the first splash phase (default 2s).
func (c *RouterConfig) GetSplashIntro() time.Duration { return durationOr(c.SplashIntro, 2*time.Second) }

// GetSplashHold returns the second splash phase (default 1s).
func (c *RouterConfig) GetSplashHold() time.Duration { return durationOr(c.SplashHold, time.Second) }

// GetTransitionHold returns the transition hold (default 2s).
func (c *RouterConfig) GetTransitionHold() time.Duration {
	return durationOr(c.TransitionHold, 2*time.Second)
}

// GetHoldPolicy returns the normalised hold_policy token (default "absorb").
func (c *RouterConfig) GetHoldPolicy() string {
	if c.HoldPolicy == nil || *c.HoldPolicy == "" {
		return HoldPolicyAbsorb
	}
	return strings.ToLower(*c.HoldPolicy)
}

// GetTickInterval returns the evaluation tick (default 50ms).
func (c *RouterConfig) GetTickInterval() time.Duration {
	return durationOr(c.TickInterval, 50*time.Millisecond)
}

// GetSerialBaudRate returns the serial_baud_rate value or the default (115200).
func (c *RouterConfig) GetSerialBaudRate() int {
	if c.SerialBaudRate == nil || *c.SerialBaudRate == 0 {
		return 115200
	}
	return *c.SerialBaudRate
}

// ProjectFor returns the project configured for face, if any.
func (c *RouterConfig) ProjectFor(face int) (ProjectConfig, bool) {
	for _, p := range c.Projects {
		if p.Face == face {
			return p, true
		}
	}
	return ProjectConfig{}, false
}
