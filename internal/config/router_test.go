package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := &RouterConfig{}

	if got := cfg.GetUDPPort(); got != 8888 {
		t.Errorf("GetUDPPort() = %d, want 8888", got)
	}
	if got := cfg.GetMaxFace(); got != 6 {
		t.Errorf("GetMaxFace() = %d, want 6", got)
	}
	if got := cfg.GetStabilityThreshold(); got != 3 {
		t.Errorf("GetStabilityThreshold() = %d, want 3", got)
	}
	if got := cfg.GetZeroPolicy(); got != ZeroPolicyIgnore {
		t.Errorf("GetZeroPolicy() = %q, want %q", got, ZeroPolicyIgnore)
	}
	if got := cfg.GetHoldPolicy(); got != HoldPolicyAbsorb {
		t.Errorf("GetHoldPolicy() = %q, want %q", got, HoldPolicyAbsorb)
	}
	if got := cfg.GetConnectivityTimeout(); got != 3*time.Second {
		t.Errorf("GetConnectivityTimeout() = %v, want 3s", got)
	}
	if got := cfg.GetReadTimeout(); got != 5*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 5s", got)
	}
	if got := cfg.GetSplashIntro() + cfg.GetSplashHold(); got != 3*time.Second {
		t.Errorf("splash total = %v, want 3s", got)
	}
	if got := cfg.GetTransitionHold(); got != 2*time.Second {
		t.Errorf("GetTransitionHold() = %v, want 2s", got)
	}
	if got := cfg.GetSettleInterval(); got != 50*time.Millisecond {
		t.Errorf("GetSettleInterval() = %v, want 50ms", got)
	}
	if got := cfg.GetSerialBaudRate(); got != 115200 {
		t.Errorf("GetSerialBaudRate() = %d, want 115200", got)
	}
}

func TestLoadRouterConfig(t *testing.T) {
	path := writeConfig(t, "router.json", `{
  "udp_port": 9999,
  "max_face": 4,
  "stability_threshold": 5,
  "zero_policy": "BREAK",
  "connectivity_timeout": "1500ms",
  "hold_policy": "restart",
  "projects": [{"face": 2, "name": "Moka", "creator_url": "https://example.com/moka"}]
}`)

	cfg, err := LoadRouterConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetUDPPort() != 9999 {
		t.Errorf("GetUDPPort() = %d, want 9999", cfg.GetUDPPort())
	}
	if cfg.GetMaxFace() != 4 {
		t.Errorf("GetMaxFace() = %d, want 4", cfg.GetMaxFace())
	}
	if cfg.GetStabilityThreshold() != 5 {
		t.Errorf("GetStabilityThreshold() = %d, want 5", cfg.GetStabilityThreshold())
	}
	if cfg.GetZeroPolicy() != ZeroPolicyBreak {
		t.Errorf("GetZeroPolicy() = %q, want %q", cfg.GetZeroPolicy(), ZeroPolicyBreak)
	}
	if cfg.GetConnectivityTimeout() != 1500*time.Millisecond {
		t.Errorf("GetConnectivityTimeout() = %v, want 1.5s", cfg.GetConnectivityTimeout())
	}
	if cfg.GetHoldPolicy() != HoldPolicyRestart {
		t.Errorf("GetHoldPolicy() = %q, want %q", cfg.GetHoldPolicy(), HoldPolicyRestart)
	}
	// omitted fields keep defaults
	if cfg.GetTransitionHold() != 2*time.Second {
		t.Errorf("GetTransitionHold() = %v, want 2s", cfg.GetTransitionHold())
	}

	p, ok := cfg.ProjectFor(2)
	if !ok || p.Name != "Moka" {
		t.Errorf("ProjectFor(2) = %+v, %v", p, ok)
	}
	if _, ok := cfg.ProjectFor(3); ok {
		t.Error("ProjectFor(3) should be absent")
	}
}

func TestLoadRouterConfig_YAML(t *testing.T) {
	for _, name := range []string{"router.yaml", "router.yml"} {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, name, `
udp_port: 9100
zero_policy: break
transition_hold: 1500ms
projects:
  - face: 1
    name: Blender
    creator_name: Ada
`)
			cfg, err := LoadRouterConfig(path)
			if err != nil {
				t.Fatalf("Failed to load config: %v", err)
			}
			if cfg.GetUDPPort() != 9100 {
				t.Errorf("GetUDPPort() = %d, want 9100", cfg.GetUDPPort())
			}
			if cfg.GetZeroPolicy() != ZeroPolicyBreak {
				t.Errorf("GetZeroPolicy() = %q, want %q", cfg.GetZeroPolicy(), ZeroPolicyBreak)
			}
			if cfg.GetTransitionHold() != 1500*time.Millisecond {
				t.Errorf("GetTransitionHold() = %v, want 1.5s", cfg.GetTransitionHold())
			}
			if p, ok := cfg.ProjectFor(1); !ok || p.CreatorName != "Ada" {
				t.Errorf("ProjectFor(1) = %+v, %v", p, ok)
			}
		})
	}
}

func TestLoadRouterConfig_DefaultsFile(t *testing.T) {
	cfg, err := LoadRouterConfig(filepath.Join("..", "..", DefaultConfigPath))
	if err != nil {
		t.Fatalf("defaults file failed to load: %v", err)
	}
	if len(cfg.Projects) != cfg.GetMaxFace() {
		t.Errorf("defaults file has %d projects for %d faces", len(cfg.Projects), cfg.GetMaxFace())
	}
}

func TestLoadRouterConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "router.toml", `{}`, ".yaml extension"},
		{"invalid yaml", "router.yaml", "max_face: [", "failed to parse config YAML"},
		{"invalid json", "router.json", `{"max_face": "six"`, "failed to parse"},
		{"threshold zero", "router.json", `{"stability_threshold": 0}`, "stability_threshold"},
		{"bad zero policy", "router.json", `{"zero_policy": "sometimes"}`, "zero_policy"},
		{"bad hold policy", "router.json", `{"hold_policy": "queue"}`, "hold_policy"},
		{"bad duration", "router.json", `{"transition_hold": "two seconds"}`, "transition_hold"},
		{"zero tick", "router.json", `{"tick_interval": "0s"}`, "tick_interval must be positive"},
		{"zero splash intro", "router.json", `{"splash_intro": "0s"}`, "splash_intro must be positive"},
		{"zero splash hold", "router.yaml", "splash_hold: 0s", "splash_hold must be positive"},
		{"zero transition hold", "router.json", `{"transition_hold": "0s"}`, "transition_hold must be positive"},
		{"negative settle", "router.json", `{"settle_interval": "-5ms"}`, "settle_interval"},
		{"port range", "router.json", `{"udp_port": 70000}`, "udp_port"},
		{"project face range", "router.json", `{"max_face": 2, "projects": [{"face": 3, "name": "x"}]}`, "outside [1, 2]"},
		{"duplicate project", "router.json", `{"projects": [{"face": 1, "name": "a"}, {"face": 1, "name": "b"}]}`, "more than one project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadRouterConfig(path)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRouterConfig_Missing(t *testing.T) {
	if _, err := LoadRouterConfig("/nonexistent/path/to/router.json"); err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadRouterConfig_TooLarge(t *testing.T) {
	big := `{"projects": [` + strings.Repeat(`{"face": 1, "name": "x"},`, 60000) + `{"face": 1}]}`
	path := writeConfig(t, "big.json", big)
	_, err := LoadRouterConfig(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected too large error, got %v", err)
	}
}
