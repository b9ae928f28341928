package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.TargetHosts)
	assert.NotEmpty(t, cfg.DNSServers)
	assert.NotEmpty(t, cfg.ValidDomains)
	assert.NotEmpty(t, cfg.QueryTypes)
	assert.NotEmpty(t, cfg.UserAgents)
	assert.NotEmpty(t, cfg.TCPPorts)
	assert.NotEmpty(t, cfg.UDPPorts)
	assert.Greater(t, cfg.QueriesPerIteration, 0)
	assert.LessOrEqual(t, cfg.SleepMinSeconds, cfg.SleepMaxSeconds)
	assert.Zero(t, cfg.MaxCycles)
}

func TestLoadConfigFromFile(t *testing.T) {
	testConfigContent := `
log_level: debug
queries_per_iteration: 12
sleep_min_seconds: 1
sleep_max_seconds: 3
beacon_prob: 0.9
dns_servers:
  - "10.0.0.53"
max_cycles: 5
`

	err := os.WriteFile("config.yaml", []byte(testConfigContent), 0644)
	assert.NoError(t, err)
	defer os.Remove("config.yaml")

	cfg, err := LoadConfig()
	assert.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 12, cfg.QueriesPerIteration)
	assert.Equal(t, []string{"10.0.0.53"}, cfg.DNSServers)
	assert.Equal(t, 0.9, cfg.BeaconProb)
	assert.Equal(t, 5, cfg.MaxCycles)

	// Environment variables override file values.
	os.Setenv("CHAFF_LOG_LEVEL", "warn")
	defer os.Unsetenv("CHAFF_LOG_LEVEL")

	cfg, err = LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func validTestConfig() *RunConfig {
	return &RunConfig{
		LogLevel:            "info",
		EventLogPath:        "chaff_events.log",
		TargetHosts:         []string{"192.168.1.10"},
		DNSServers:          []string{"8.8.8.8"},
		ValidDomains:        []string{"example.org"},
		QueryTypes:          []string{"A", "TXT"},
		UserAgents:          []string{"curl/8.5.0"},
		TCPPorts:            []int{80},
		UDPPorts:            []int{53},
		QueriesPerIteration: 6,
		SleepMinSeconds:     5,
		SleepMaxSeconds:     30,
		BeaconProb:          0.35,
		TXTPayloadProb:      0.5,
		NXDomainBurstProb:   0.1,
		NXDomainBurstSize:   8,
		LargePayloadSize:    2048,
		DNSSECProb:          0.1,
		BeaconIntervalMS:    500,
		ActionDelayMaxMS:    250,
		ProbeTimeoutSeconds: 3,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr string
	}{
		{"valid", func(c *RunConfig) {}, ""},
		{"empty target hosts", func(c *RunConfig) { c.TargetHosts = nil }, "target_hosts"},
		{"empty dns servers", func(c *RunConfig) { c.DNSServers = []string{} }, "dns_servers"},
		{"empty valid domains", func(c *RunConfig) { c.ValidDomains = nil }, "valid_domains"},
		{"empty query types", func(c *RunConfig) { c.QueryTypes = nil }, "query_types"},
		{"empty user agents", func(c *RunConfig) { c.UserAgents = nil }, "user_agents"},
		{"empty tcp ports", func(c *RunConfig) { c.TCPPorts = nil }, "tcp_ports"},
		{"empty udp ports", func(c *RunConfig) { c.UDPPorts = nil }, "udp_ports"},
		{"unknown query type", func(c *RunConfig) { c.QueryTypes = []string{"BOGUS"} }, "query type"},
		{"zero queries per iteration", func(c *RunConfig) { c.QueriesPerIteration = 0 }, "queries_per_iteration"},
		{"negative sleep min", func(c *RunConfig) { c.SleepMinSeconds = -1 }, "sleep_min_seconds"},
		{"min exceeds max", func(c *RunConfig) { c.SleepMinSeconds = 31 }, "exceeds sleep_max_seconds"},
		{"beacon prob out of range", func(c *RunConfig) { c.BeaconProb = 1.5 }, "beacon_prob"},
		{"negative nxdomain prob", func(c *RunConfig) { c.NXDomainBurstProb = -0.1 }, "nxdomain_burst_prob"},
		{"zero burst size", func(c *RunConfig) { c.NXDomainBurstSize = 0 }, "nxdomain_burst_size"},
		{"zero payload size", func(c *RunConfig) { c.LargePayloadSize = 0 }, "large_payload_size"},
		{"zero probe timeout", func(c *RunConfig) { c.ProbeTimeoutSeconds = 0 }, "probe_timeout_seconds"},
		{"zero beacon interval", func(c *RunConfig) { c.BeaconIntervalMS = 0 }, "beacon_interval_ms"},
		{"negative action delay", func(c *RunConfig) { c.ActionDelayMaxMS = -1 }, "action_delay_max_ms"},
		{"negative max cycles", func(c *RunConfig) { c.MaxCycles = -1 }, "max_cycles"},
		{"bad run duration", func(c *RunConfig) { c.RunDuration = "not-a-duration" }, "run_duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestRunBound(t *testing.T) {
	cfg := validTestConfig()

	d, err := cfg.RunBound()
	assert.NoError(t, err)
	assert.Zero(t, d)

	cfg.RunDuration = "90m"
	d, err = cfg.RunBound()
	assert.NoError(t, err)
	assert.Equal(t, "1h30m0s", d.String())
}
