package config

import "errors"

var (
	errMissingTwilioCredentials = errors.New("twilio account_sid and auth_token are required when SMS is enabled")
	errMissingTwilioFrom        = errors.New("twilio from_number is required when SMS is enabled")
)

type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Nats          NatsConfig          `mapstructure:"nats"`
	Server        ServerConfig        `mapstructure:"server"`
	SMS           SMSConfig           `mapstructure:"sms"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Reconciler    ReconcilerConfig    `mapstructure:"reconciler"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type NatsConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type DatabaseConfig struct {
	Host     string             `mapstructure:"host"`
	Port     int                `mapstructure:"port"`
	User     string             `mapstructure:"user"`
	Password string             `mapstructure:"password"`
	DBName   string             `mapstructure:"dbname"`
	SSLMode  string             `mapstructure:"sslmode"`
	Pool     DatabasePoolConfig `mapstructure:"pool"`
}

type DatabasePoolConfig struct {
	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_minutes"`
}

type RedisConfig struct {
	Addr                string `mapstructure:"addr"`
	DB                  int    `mapstructure:"db"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	PoolSize            int    `mapstructure:"pool_size"`
	MinIdleConns        int    `mapstructure:"min_idle_conns"`
	DialTimeoutSeconds  int    `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Environment    string `mapstructure:"environment"`
	Domain         string `mapstructure:"domain"`
}

type SMSConfig struct {
	Enabled     bool         `mapstructure:"enabled"`
	MaxDailySMS int          `mapstructure:"max_daily_sms"`
	Twilio      TwilioConfig `mapstructure:"twilio"`
}

type TwilioConfig struct {
	AccountSID     string `mapstructure:"account_sid"`
	AuthToken      string `mapstructure:"auth_token"`
	FromNumber     string `mapstructure:"from_number"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	CallbackURL    string `mapstructure:"callback_url"`
}

type SchedulerConfig struct {
	TickSeconds         int  `mapstructure:"tick_seconds"`
	ClaimTimeoutSeconds int  `mapstructure:"claim_timeout_seconds"`
	WeeklyReports       bool `mapstructure:"weekly_reports"`
}

type ReconcilerConfig struct {
	IntervalMinutes     int `mapstructure:"interval_minutes"`
	UnknownTTLHours     int `mapstructure:"unknown_ttl_hours"`
	SummaryStaleMinutes int `mapstructure:"summary_stale_minutes"`
}

type ObservabilityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string       `mapstructure:"level"`  // debug, info, warn, error
	Format string       `mapstructure:"format"` // text, json
	Output OutputConfig `mapstructure:"output"`
}

type OutputConfig struct {
	Stdout bool          `mapstructure:"stdout"`
	File   FileLogConfig `mapstructure:"file"`
	Loki   LokiConfig    `mapstructure:"loki"`
}

type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type LokiConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

func (c *Config) Validate() error {
	if c.SMS.Enabled {
		if c.SMS.Twilio.AccountSID == "" || c.SMS.Twilio.AuthToken == "" {
			return errMissingTwilioCredentials
		}
		if c.SMS.Twilio.FromNumber == "" {
			return errMissingTwilioFrom
		}
	}
	return nil
}

// TickSecondsOrDefault returns the dispatch tick interval, defaulting to one minute.
func (s SchedulerConfig) TickSecondsOrDefault() int {
	if s.TickSeconds <= 0 {
		return 60
	}
	return s.TickSeconds
}

// MaxDailyOrDefault caps per-patient sends per calendar day.
func (s SMSConfig) MaxDailyOrDefault() int {
	if s.MaxDailySMS <= 0 {
		return 10
	}
	return s.MaxDailySMS
}
