package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, uint32(DefaultFrequency), cfg.Frequency)
	assert.Equal(t, "auto", cfg.GainStr)
	assert.Equal(t, DefaultRawOutPort, cfg.RawOutPort)
	assert.Equal(t, DefaultRawInPort, cfg.RawInPort)
	assert.Equal(t, DefaultSBSOutPort, cfg.SBSOutPort)
	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	assert.Equal(t, 1, cfg.Loops)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "zero frequency rejected", mutate: func(c *Config) { c.Frequency = 0 }, wantErr: true},
		{name: "negative loops rejected", mutate: func(c *Config) { c.Loops = -1 }, wantErr: true},
		{name: "gain auto resolves", mutate: func(c *Config) { c.GainStr = "AUTO" }},
		{name: "gain numeric resolves to tenths of dB", mutate: func(c *Config) { c.GainStr = "40.5" }},
		{name: "gain garbage rejected", mutate: func(c *Config) { c.GainStr = "loud" }, wantErr: true},
		{name: "lat without lon rejected", mutate: func(c *Config) { c.Lat = 51.5 }, wantErr: true},
		{name: "lat and lon together accepted", mutate: func(c *Config) { c.Lat, c.Lon = 51.5, -0.1 }},
		{name: "net-active without a host rejected", mutate: func(c *Config) { c.NetActive = true }, wantErr: true},
		{name: "net-active with raw-in host accepted", mutate: func(c *Config) { c.NetActive = true; c.HostRawIn = "example.com:30001" }},
		{
			name: "duplicate ports rejected",
			mutate: func(c *Config) {
				c.SBSOutPort = c.RawOutPort
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateResolvesGainToTenthsOfDB(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GainStr = "40.5"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 405, cfg.Gain)
}

func TestConfig_ValidateAutoGain(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultGain, cfg.Gain)
}

func TestNewApplication(t *testing.T) {
	cfg := DefaultConfig()
	application := NewApplication(cfg)
	require.NotNil(t, application)
	assert.NotNil(t, application.logger)
}

func TestNewApplication_Verbose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Verbose = true
	application := NewApplication(cfg)
	require.NotNil(t, application)
}

func TestShowVersion(t *testing.T) {
	assert.NotPanics(t, func() {
		ShowVersion()
	})
}
