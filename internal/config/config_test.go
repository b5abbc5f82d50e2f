package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "cwbot", cfg.Database.Database)
				assert.Equal(t, "postings", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "posting.discovered", cfg.RabbitMQ.Queue.Name)
				assert.Equal(t, 10, cfg.RabbitMQ.Consumer.PrefetchCount)
				assert.Equal(t, 60*time.Second, cfg.Dispatcher.MinBidInterval)
				assert.Equal(t, 24*time.Hour, cfg.Dispatcher.DedupeTTL)
				assert.Equal(t, int64(35), cfg.Dispatcher.DefaultHourCap)
				assert.Equal(t, "https://api.openai.com/v1", cfg.Generation.BaseURL)
				assert.Equal(t, 300*time.Second, cfg.Platform.Timeout)
				assert.Equal(t, "bid-dispatch-service", cfg.App.Name)
			}
		})
	}
}

// validConfig returns a config that passes both service validations.
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "cwbot",
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
			Exchange: ExchangeConfig{
				Name: "postings",
			},
			Queue: QueueConfig{
				Name: "posting.discovered",
			},
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Dispatcher: DispatcherConfig{
			MinBidInterval:  time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Generation: GenerationConfig{
			BaseURL: "https://api.openai.com/v1",
			Timeout: 30 * time.Second,
		},
		Platform: PlatformConfig{
			BaseURL: "https://www.example-work.com",
			Timeout: 300 * time.Second,
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid server port - too low",
			mutate: func(c *Config) {
				c.Server.Port = 0
			},
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name: "invalid server port - too high",
			mutate: func(c *Config) {
				c.Server.Port = 70000
			},
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name: "empty database host",
			mutate: func(c *Config) {
				c.Database.Host = ""
			},
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name: "empty database name",
			mutate: func(c *Config) {
				c.Database.Database = ""
			},
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name: "empty rabbitmq exchange",
			mutate: func(c *Config) {
				c.RabbitMQ.Exchange.Name = ""
			},
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name: "empty generation base url",
			mutate: func(c *Config) {
				c.Generation.BaseURL = ""
			},
			wantErr:   true,
			errString: "generation base_url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateDispatchConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "empty redis host",
			mutate: func(c *Config) {
				c.Redis.Host = ""
			},
			wantErr:   true,
			errString: "redis host is required",
		},
		{
			name: "invalid redis port",
			mutate: func(c *Config) {
				c.Redis.Port = -1
			},
			wantErr:   true,
			errString: "invalid redis port",
		},
		{
			name: "zero min bid interval",
			mutate: func(c *Config) {
				c.Dispatcher.MinBidInterval = 0
			},
			wantErr:   true,
			errString: "min_bid_interval must be greater than 0",
		},
		{
			name: "zero shutdown timeout",
			mutate: func(c *Config) {
				c.Dispatcher.ShutdownTimeout = 0
			},
			wantErr:   true,
			errString: "shutdown_timeout must be greater than 0",
		},
		{
			name: "zero generation timeout",
			mutate: func(c *Config) {
				c.Generation.Timeout = 0
			},
			wantErr:   true,
			errString: "generation timeout must be greater than 0",
		},
		{
			name: "empty platform base url",
			mutate: func(c *Config) {
				c.Platform.BaseURL = ""
			},
			wantErr:   true,
			errString: "platform base_url is required",
		},
		{
			name: "invalid rabbitmq port",
			mutate: func(c *Config) {
				c.RabbitMQ.Port = 0
			},
			wantErr:   true,
			errString: "invalid rabbitmq port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateDispatchConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
