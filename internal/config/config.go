package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`

	Executor   ExecutorConfig   `mapstructure:"executor"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	StatsRefresh string `mapstructure:"stats_refresh"`
	Reconcile    string `mapstructure:"reconcile"`
}

type ExecutorConfig struct {
	// PerPledgeDelay spaces out writes during a batch so the database is not
	// hammered by back-to-back inserts.
	PerPledgeDelay time.Duration `mapstructure:"per_pledge_delay"`
	// BuySideFilter restricts the BUY phase to side=buy pledges. The legacy
	// dashboard filtered by session and status only; keep off to match it.
	BuySideFilter bool `mapstructure:"buy_side_filter"`
	// ApplyCommission deducts the session convenience fee in execution
	// records. Off by default: fee settlement happens downstream.
	ApplyCommission bool `mapstructure:"apply_commission"`
	SettlementDays  int  `mapstructure:"settlement_days"`
}

type ReconcilerConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	StuckAfter time.Duration `mapstructure:"stuck_after"`
	BatchLimit int           `mapstructure:"batch_limit"`
}

type NotifyConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.stats_refresh", "@every 5m")
	v.SetDefault("cron.reconcile", "@every 1m")

	v.SetDefault("executor.per_pledge_delay", "100ms")
	v.SetDefault("executor.buy_side_filter", false)
	v.SetDefault("executor.apply_commission", false)
	v.SetDefault("executor.settlement_days", 2)

	v.SetDefault("reconciler.enabled", true)
	v.SetDefault("reconciler.stuck_after", "15m")
	v.SetDefault("reconciler.batch_limit", 50)

	v.SetDefault("notify.base_url", "")
	v.SetDefault("notify.api_key", "")
	v.SetDefault("notify.timeout", "5s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
