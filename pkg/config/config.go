package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/common"
	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	"github.com/spf13/viper"
)

const (
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Store      StoreConfig      `mapstructure:"store"`
	Activity   ActivityConfig   `mapstructure:"activity"`
	Rapid      RapidConfig      `mapstructure:"rapid"`
	BruteForce BruteForceConfig `mapstructure:"bruteforce"`
	DataAccess DataAccessConfig `mapstructure:"data_access"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
}

type ServerConfig struct {
	AdminPort   int    `mapstructure:"admin_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	SecretKey   string `mapstructure:"secret_key"`
	// ProxyHeader is only honoured when the peer is one of TrustedProxies.
	ProxyHeader    string   `mapstructure:"proxy_header"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type MetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	EnableLatency bool `mapstructure:"enable_latency"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

type StoreConfig struct {
	Driver             string        `mapstructure:"driver"`
	OperationTimeout   time.Duration `mapstructure:"operation_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	JanitorInterval    time.Duration `mapstructure:"janitor_interval"`
}

type ActivityConfig struct {
	LedgerSize int           `mapstructure:"ledger_size"`
	LedgerTTL  time.Duration `mapstructure:"ledger_ttl"`
}

type RapidConfig struct {
	Window    time.Duration `mapstructure:"window"`
	Threshold int           `mapstructure:"threshold"`
}

type BruteForceConfig struct {
	Window     time.Duration `mapstructure:"window"`
	Threshold  int           `mapstructure:"threshold"`
	BlockTTL   time.Duration `mapstructure:"block_ttl"`
	FailClosed bool          `mapstructure:"fail_closed"`
}

type DataAccessConfig struct {
	Period    time.Duration `mapstructure:"period"`
	Threshold int64         `mapstructure:"threshold"`
}

type AlertsConfig struct {
	TTL              time.Duration `mapstructure:"ttl"`
	FeedSize         int           `mapstructure:"feed_size"`
	SinkWorkers      int           `mapstructure:"sink_workers"`
	BroadcastChannel string        `mapstructure:"broadcast_channel"`
}

type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	Topic   string `mapstructure:"topic"`
}

var globalConfig Config

func Load(configPath string) error {
	setDefaultValues()
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load main config file: %w", err)
	}
	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
		}
		// defaults and environment variables still apply
	}

	if err := viper.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

func setDefaultValues() {
	viper.SetDefault("server.admin_port", 8080)
	viper.SetDefault("server.metrics_port", 9090)
	viper.SetDefault("server.proxy_header", "X-Forwarded-For")
	viper.SetDefault("server.trusted_proxies", []string{})
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.enable_latency", true)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)

	viper.SetDefault("store.driver", StoreDriverMemory)
	viper.SetDefault("store.operation_timeout", common.DefaultStoreTimeout)
	viper.SetDefault("store.max_retries", common.DefaultStoreRetries)
	viper.SetDefault("store.breaker_timeout", 30*time.Second)
	viper.SetDefault("store.breaker_max_failures", 5)
	viper.SetDefault("store.janitor_interval", time.Minute)

	viper.SetDefault("activity.ledger_size", common.DefaultLedgerSize)
	viper.SetDefault("activity.ledger_ttl", common.DefaultLedgerTTL)
	viper.SetDefault("rapid.window", common.DefaultRapidWindow)
	viper.SetDefault("rapid.threshold", common.DefaultRapidThreshold)
	viper.SetDefault("bruteforce.window", common.DefaultBruteForceWindow)
	viper.SetDefault("bruteforce.threshold", common.DefaultBruteForceThreshold)
	viper.SetDefault("bruteforce.block_ttl", common.DefaultBlockTTL)
	viper.SetDefault("bruteforce.fail_closed", false)
	viper.SetDefault("data_access.period", common.DefaultDataAccessPeriod)
	viper.SetDefault("data_access.threshold", common.DefaultDataAccessThreshold)

	viper.SetDefault("alerts.ttl", common.DefaultAlertTTL)
	viper.SetDefault("alerts.feed_size", common.DefaultAlertFeedSize)
	viper.SetDefault("alerts.sink_workers", 2)
	viper.SetDefault("kafka.enabled", false)
}

// Validate reports every misconfigured field at once.
func (c *Config) Validate() error {
	var errs []error
	positive := func(field string, ok bool) {
		if !ok {
			errs = append(errs, domain.NewConfigError(field, "must be positive"))
		}
	}

	switch c.Store.Driver {
	case StoreDriverMemory:
		positive("store.janitor_interval", c.Store.JanitorInterval > 0)
	case StoreDriverRedis:
	default:
		errs = append(errs, domain.NewConfigError("store.driver", fmt.Sprintf("unknown driver %q", c.Store.Driver)))
	}
	positive("store.operation_timeout", c.Store.OperationTimeout > 0)
	positive("store.max_retries", c.Store.MaxRetries > 0)

	positive("activity.ledger_size", c.Activity.LedgerSize > 0)
	positive("activity.ledger_ttl", c.Activity.LedgerTTL > 0)
	positive("rapid.window", c.Rapid.Window > 0)
	positive("rapid.threshold", c.Rapid.Threshold > 0)
	positive("bruteforce.window", c.BruteForce.Window > 0)
	positive("bruteforce.threshold", c.BruteForce.Threshold > 0)
	positive("bruteforce.block_ttl", c.BruteForce.BlockTTL > 0)
	positive("data_access.period", c.DataAccess.Period > 0)
	positive("data_access.threshold", c.DataAccess.Threshold > 0)
	positive("alerts.ttl", c.Alerts.TTL > 0)
	positive("alerts.feed_size", c.Alerts.FeedSize > 0)

	if c.Server.SecretKey == "" {
		errs = append(errs, domain.NewConfigError("server.secret_key", "is required"))
	}
	for _, proxy := range c.Server.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			errs = append(errs, domain.NewConfigError("server.trusted_proxies", fmt.Sprintf("%q is not an IP or CIDR", proxy)))
		}
	}
	if c.Kafka.Enabled && (c.Kafka.Host == "" || c.Kafka.Port == "" || c.Kafka.Topic == "") {
		errs = append(errs, domain.NewConfigError("kafka", "host, port and topic are required when enabled"))
	}
	return errors.Join(errs...)
}

func GetConfig() *Config {
	return &globalConfig
}
