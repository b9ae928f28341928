package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/spf13/viper"
)

// RunConfig is the full set of tunables for a generator run: the action
// pools and the numeric knobs of the scheduling engine. It is loaded once at
// startup and never mutated afterwards.
// Tags are used by Viper to map YAML keys to struct fields.
type RunConfig struct {
	LogLevel     string `mapstructure:"log_level"`
	EventLogPath string `mapstructure:"event_log_path"`
	APIPort      string `mapstructure:"api_port"` // empty disables the status API

	// Action pools. Every pool must be non-empty; validated at startup.
	TargetHosts  []string `mapstructure:"target_hosts"`
	DNSServers   []string `mapstructure:"dns_servers"`
	ValidDomains []string `mapstructure:"valid_domains"`
	QueryTypes   []string `mapstructure:"query_types"`
	UserAgents   []string `mapstructure:"user_agents"`
	TCPPorts     []int    `mapstructure:"tcp_ports"`
	UDPPorts     []int    `mapstructure:"udp_ports"`

	// Scheduling knobs.
	QueriesPerIteration int     `mapstructure:"queries_per_iteration"`
	SleepMinSeconds     int     `mapstructure:"sleep_min_seconds"`
	SleepMaxSeconds     int     `mapstructure:"sleep_max_seconds"`
	BeaconProb          float64 `mapstructure:"beacon_prob"`
	TXTPayloadProb      float64 `mapstructure:"txt_payload_prob"`
	NXDomainBurstProb   float64 `mapstructure:"nxdomain_burst_prob"`
	NXDomainBurstSize   int     `mapstructure:"nxdomain_burst_size"`
	LargePayloadSize    int     `mapstructure:"large_payload_size"`
	DNSSECProb          float64 `mapstructure:"dnssec_prob"`
	BeaconIntervalMS    int     `mapstructure:"beacon_interval_ms"`
	ActionDelayMaxMS    int     `mapstructure:"action_delay_max_ms"`
	ProbeTimeoutSeconds int     `mapstructure:"probe_timeout_seconds"`
	FootprintEvery      int     `mapstructure:"footprint_every"` // iterations between footprint samples, 0 disables

	// Run bounds. Zero values mean "run indefinitely".
	MaxCycles   int    `mapstructure:"max_cycles"`
	RunDuration string `mapstructure:"run_duration"`
}

// SleepMin returns the lower bound of the inter-iteration sleep window.
func (c *RunConfig) SleepMin() time.Duration {
	return time.Duration(c.SleepMinSeconds) * time.Second
}

// SleepMax returns the upper bound of the inter-iteration sleep window.
func (c *RunConfig) SleepMax() time.Duration {
	return time.Duration(c.SleepMaxSeconds) * time.Second
}

// ProbeTimeout returns the per-probe timeout.
func (c *RunConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// BeaconInterval returns the fixed delay between the repeated queries of a
// beacon burst.
func (c *RunConfig) BeaconInterval() time.Duration {
	return time.Duration(c.BeaconIntervalMS) * time.Millisecond
}

// ActionDelayMax returns the upper bound of the per-action micro-delay.
func (c *RunConfig) ActionDelayMax() time.Duration {
	return time.Duration(c.ActionDelayMaxMS) * time.Millisecond
}

// RunBound returns the optional wall-clock bound, or zero for unbounded.
func (c *RunConfig) RunBound() (time.Duration, error) {
	if c.RunDuration == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RunDuration)
	if err != nil {
		return 0, fmt.Errorf("invalid run_duration %q: %w", c.RunDuration, err)
	}
	return d, nil
}

// LoadConfig reads the configuration from a YAML file (config.yaml) and
// environment variables. Every knob carries a sane default so the generator
// runs out of the box inside a lab network.
func LoadConfig() (*RunConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/chaff/")

	setDefaults(v)

	v.SetEnvPrefix("CHAFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults and environment carry the run.
	}

	var cfg RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("event_log_path", "chaff_events.log")
	v.SetDefault("api_port", "")

	// Lab-internal targets plus well-known public resolvers. No destination
	// outside this set is ever contacted.
	v.SetDefault("target_hosts", []string{"192.168.1.10", "192.168.1.20"})
	v.SetDefault("dns_servers", []string{"8.8.8.8", "1.1.1.1", "9.9.9.9"})
	v.SetDefault("valid_domains", []string{
		"example.org", "wikipedia.org", "github.com", "debian.org", "cloudflare.com",
	})
	v.SetDefault("query_types", []string{"A", "AAAA", "TXT", "MX", "NS", "CNAME"})
	v.SetDefault("user_agents", []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		"Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
		"curl/8.5.0",
		"python-requests/2.31.0",
	})
	v.SetDefault("tcp_ports", []int{80, 443, 8080, 4444, 8443})
	v.SetDefault("udp_ports", []int{53, 123, 5353, 1900})

	v.SetDefault("queries_per_iteration", 6)
	v.SetDefault("sleep_min_seconds", 5)
	v.SetDefault("sleep_max_seconds", 30)
	v.SetDefault("beacon_prob", 0.35)
	v.SetDefault("txt_payload_prob", 0.5)
	v.SetDefault("nxdomain_burst_prob", 0.1)
	v.SetDefault("nxdomain_burst_size", 8)
	v.SetDefault("large_payload_size", 2048)
	v.SetDefault("dnssec_prob", 0.1)
	v.SetDefault("beacon_interval_ms", 500)
	v.SetDefault("action_delay_max_ms", 250)
	v.SetDefault("probe_timeout_seconds", 3)
	v.SetDefault("footprint_every", 10)

	v.SetDefault("max_cycles", 0)
	v.SetDefault("run_duration", "")
}

// Validate checks the invariants the scheduling loop depends on. Any
// violation is fatal at startup; the engine refuses to enter the loop.
func (c *RunConfig) Validate() error {
	pools := []struct {
		name string
		size int
	}{
		{"target_hosts", len(c.TargetHosts)},
		{"dns_servers", len(c.DNSServers)},
		{"valid_domains", len(c.ValidDomains)},
		{"query_types", len(c.QueryTypes)},
		{"user_agents", len(c.UserAgents)},
		{"tcp_ports", len(c.TCPPorts)},
		{"udp_ports", len(c.UDPPorts)},
	}
	for _, p := range pools {
		if p.size == 0 {
			return fmt.Errorf("config: pool %s must not be empty", p.name)
		}
	}

	for _, qt := range c.QueryTypes {
		if _, ok := dns.StringToType[strings.ToUpper(qt)]; !ok {
			return fmt.Errorf("config: unknown DNS query type %q", qt)
		}
	}

	if c.QueriesPerIteration <= 0 {
		return fmt.Errorf("config: queries_per_iteration must be positive, got %d", c.QueriesPerIteration)
	}
	if c.SleepMinSeconds < 0 {
		return fmt.Errorf("config: sleep_min_seconds must not be negative, got %d", c.SleepMinSeconds)
	}
	if c.SleepMinSeconds > c.SleepMaxSeconds {
		return fmt.Errorf("config: sleep_min_seconds (%d) exceeds sleep_max_seconds (%d)",
			c.SleepMinSeconds, c.SleepMaxSeconds)
	}

	probs := []struct {
		name  string
		value float64
	}{
		{"beacon_prob", c.BeaconProb},
		{"txt_payload_prob", c.TXTPayloadProb},
		{"nxdomain_burst_prob", c.NXDomainBurstProb},
		{"dnssec_prob", c.DNSSECProb},
	}
	for _, p := range probs {
		if p.value < 0 || p.value > 1 {
			return fmt.Errorf("config: %s must be within [0,1], got %g", p.name, p.value)
		}
	}

	if c.NXDomainBurstSize <= 0 {
		return fmt.Errorf("config: nxdomain_burst_size must be positive, got %d", c.NXDomainBurstSize)
	}
	if c.LargePayloadSize <= 0 {
		return fmt.Errorf("config: large_payload_size must be positive, got %d", c.LargePayloadSize)
	}
	if c.BeaconIntervalMS <= 0 {
		return fmt.Errorf("config: beacon_interval_ms must be positive, got %d", c.BeaconIntervalMS)
	}
	if c.ActionDelayMaxMS < 0 {
		return fmt.Errorf("config: action_delay_max_ms must not be negative, got %d", c.ActionDelayMaxMS)
	}
	if c.ProbeTimeoutSeconds <= 0 {
		return fmt.Errorf("config: probe_timeout_seconds must be positive, got %d", c.ProbeTimeoutSeconds)
	}
	if c.MaxCycles < 0 {
		return fmt.Errorf("config: max_cycles must not be negative, got %d", c.MaxCycles)
	}
	if _, err := c.RunBound(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	return nil
}
