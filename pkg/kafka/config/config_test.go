package kafka_config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConsumerGroup != DefaultConsumerGroup {
		t.Errorf("ConsumerGroup = %q, want %q", cfg.ConsumerGroup, DefaultConsumerGroup)
	}
	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != DefaultKafkaBrokers {
		t.Errorf("Brokers = %v", cfg.Brokers)
	}
}

func TestLoad_TrimsBrokers(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "kafka-1:9092, kafka-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Brokers = %v", cfg.Brokers)
	}
}

func TestLoad_Disabled(t *testing.T) {
	t.Setenv(EnvKafkaEnabled, "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Enabled {
		t.Error("Enabled = true, want false")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Brokers:                   []string{"localhost:9092"},
			ProducerMaxAttempts:       3,
			ProducerBatchTimeout:      10 * time.Millisecond,
			ProducerRequireAcks:       -1,
			ProducerCompression:       "snappy",
			ConsumerGroup:             "aptbook-notifier",
			ConsumerStartOffset:       -2,
			ConsumerMinBytes:          1,
			ConsumerMaxBytes:          1024,
			ConsumerMaxWait:           time.Second,
			ConsumerHeartbeatInterval: 3 * time.Second,
			ConsumerSessionTimeout:    10 * time.Second,
			ConsumerRebalanceTimeout:  time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty broker", mutate: func(c *Config) { c.Brokers = []string{""} }, wantErr: "Broker 0"},
		{name: "bad compression", mutate: func(c *Config) { c.ProducerCompression = "brotli" }, wantErr: "ProducerCompression"},
		{name: "bad acks", mutate: func(c *Config) { c.ProducerRequireAcks = 2 }, wantErr: "ProducerRequireAcks"},
		{name: "no group", mutate: func(c *Config) { c.ConsumerGroup = "" }, wantErr: "ConsumerGroup"},
		{name: "explicit offset", mutate: func(c *Config) { c.ConsumerStartOffset = 42 }, wantErr: "ConsumerStartOffset"},
		{name: "max below min", mutate: func(c *Config) { c.ConsumerMaxBytes = 0 }, wantErr: "ConsumerMaxBytes"},
		{
			name:    "session not above heartbeat",
			mutate:  func(c *Config) { c.ConsumerSessionTimeout = c.ConsumerHeartbeatInterval },
			wantErr: "ConsumerSessionTimeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
