package main

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tesseract/internal/config"
	"github.com/banshee-data/tesseract/internal/ingest"
	"github.com/banshee-data/tesseract/internal/monitoring"
	"github.com/banshee-data/tesseract/internal/targets"
	"github.com/banshee-data/tesseract/internal/timeutil"
)

func setFlag[T any](t *testing.T, p *T, v T) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}

func intPtr(v int) *int { return &v }

func durPtr(v string) *string { return &v }

func quiet(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })
}

func defaultsPath() string { return filepath.Join("..", "..", config.DefaultConfigPath) }

func emptyConfig() *config.RouterConfig { return &config.RouterConfig{} }

// TestFlagDefaults verifies the flags exist with the documented defaults.
func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, config.DefaultConfigPath, *configPath)
	assert.Equal(t, 0, *udpPort)
	assert.Equal(t, "", *udpAddr)
	assert.Equal(t, ":8080", *listen)
	assert.Equal(t, "", *serialPath)
	assert.Equal(t, "", *pcapPath)
	assert.Equal(t, 1.0, *replaySpeed)
	assert.False(t, *tuiMode)
	assert.False(t, *showVersion)
}

func TestUDPAddress(t *testing.T) {
	tests := []struct {
		name string
		port int
		addr string
		cfg  *config.RouterConfig
		want string
	}{
		{"config default", 0, "", emptyConfig(), ":8888"},
		{"config port", 0, "", &config.RouterConfig{UDPPort: intPtr(9000)}, ":9000"},
		{"flag overrides config", 7000, "", &config.RouterConfig{UDPPort: intPtr(9000)}, ":7000"},
		{"bind host", 0, "127.0.0.1", emptyConfig(), "127.0.0.1:8888"},
		{"ipv6 host", 0, "::1", emptyConfig(), "[::1]:8888"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setFlag(t, udpPort, tt.port)
			setFlag(t, udpAddr, tt.addr)
			assert.Equal(t, tt.want, udpAddress(tt.cfg))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Projects)
	assert.Equal(t, 6, cfg.GetMaxFace())

	cfg, err = loadConfig(defaultsPath())
	require.NoError(t, err)
	assert.Len(t, cfg.Projects, cfg.GetMaxFace())

	_, err = loadConfig("missing.json")
	assert.Error(t, err)
}

func TestLoadConfig_MissingDefaultFileFallsBack(t *testing.T) {
	quiet(t)
	t.Chdir(t.TempDir())

	cfg, err := loadConfig(config.DefaultConfigPath)
	require.NoError(t, err)
	assert.Empty(t, cfg.Projects)
}

func TestBuildSlots_BuiltInDefaultsReachEveryFace(t *testing.T) {
	quiet(t)
	cfg, err := loadConfig("")
	require.NoError(t, err)

	slots := buildSlots(cfg)
	require.Len(t, slots, cfg.GetMaxFace())
	for i, s := range slots {
		assert.NotNil(t, s.Target, "face %d", i+1)
		assert.Equal(t, fmt.Sprintf("face-%d", i+1), s.Project.Name)
	}

	reg, err := targets.NewRegistry(cfg.GetMaxFace(), slots)
	require.NoError(t, err)
	sw := targets.NewSwitcher(reg, targets.SwitcherConfig{SettleInterval: -1, Clock: timeutil.NewMockClock(time.Time{})})
	for face := 1; face <= cfg.GetMaxFace(); face++ {
		_, err := sw.SwitchTo(face)
		require.NoError(t, err, "face %d", face)
	}
}

func TestBuildSlots(t *testing.T) {
	quiet(t)
	cfg := &config.RouterConfig{
		MaxFace: intPtr(3),
		Projects: []config.ProjectConfig{
			{Face: 1, Name: "Blender", CreatorName: "Ada", CreatorURL: "https://example.com/a"},
			{Face: 3, Name: "Vesta"},
		},
	}

	slots := buildSlots(cfg)
	require.Len(t, slots, 3)
	assert.NotNil(t, slots[0].Target)
	assert.Equal(t, targets.Project{Name: "Blender", CreatorName: "Ada", CreatorURL: "https://example.com/a"}, slots[0].Project)
	assert.Nil(t, slots[1].Target, "face 2 has no project")
	assert.Equal(t, "Vesta", slots[2].Project.Name)

	reg, err := targets.NewRegistry(3, slots)
	require.NoError(t, err)
	sw := targets.NewSwitcher(reg, targets.SwitcherConfig{SettleInterval: -1, Clock: timeutil.NewMockClock(time.Time{})})

	_, err = sw.SwitchTo(2)
	assert.ErrorIs(t, err, targets.ErrUnassigned)
	changed, err := sw.SwitchTo(3)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestBuildSlots_DefaultsFileAssignsEveryFace(t *testing.T) {
	quiet(t)
	cfg, err := loadConfig(defaultsPath())
	require.NoError(t, err)

	for i, s := range buildSlots(cfg) {
		assert.NotNil(t, s.Target, "face %d", i+1)
		assert.NotEmpty(t, s.Project.Name, "face %d", i+1)
	}
}

func TestSettleInterval(t *testing.T) {
	assert.Equal(t, 50*time.Millisecond, settleInterval(emptyConfig()))
	assert.Equal(t, 10*time.Millisecond, settleInterval(&config.RouterConfig{SettleInterval: durPtr("10ms")}))
	assert.Equal(t, time.Duration(-1), settleInterval(&config.RouterConfig{SettleInterval: durPtr("0s")}))
}

func TestNewSource(t *testing.T) {
	clock := timeutil.NewMockClock(time.Time{})
	cell := &ingest.ReadingCell{}

	src, stats := newSource(emptyConfig(), cell, clock)
	assert.IsType(t, &ingest.Receiver{}, src)
	assert.NotNil(t, stats)

	setFlag(t, serialPath, "/dev/ttyUSB0")
	src, _ = newSource(emptyConfig(), cell, clock)
	assert.IsType(t, &ingest.SerialSource{}, src)

	setFlag(t, pcapPath, "capture.pcap")
	src, stats = newSource(emptyConfig(), cell, clock)
	assert.Nil(t, src, "pcap replay runs without a long-lived source")
	assert.NotNil(t, stats)
}
