package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"estoque-monitor/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Inputs     InputsConfig     `mapstructure:"inputs"`
	Subject    SubjectConfig    `mapstructure:"subject"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// InputsConfig locates the input artifacts and the snapshot output dir.
type InputsConfig struct {
	Dir         string `mapstructure:"dir"`
	SnapshotDir string `mapstructure:"snapshot_dir"`
}

// SubjectConfig selects whose data one run analyzes.
type SubjectConfig struct {
	ContratanteID  int64 `mapstructure:"contratante_id"`
	PlanejamentoID int64 `mapstructure:"planejamento_id"`
}

// AnalysisConfig tunes the trend estimator and the review cadence.
type AnalysisConfig struct {
	WindowDays        int     `mapstructure:"window_days"`
	Epsilon           float64 `mapstructure:"epsilon"`
	FastFactor        float64 `mapstructure:"fast_factor"`
	ReviewCadenceDays int     `mapstructure:"review_cadence_days"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	ThresholdPct float64        `mapstructure:"threshold_pct"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig parametriza o fan-out de alertas via Telegram.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// SummarizerConfig parametriza o colaborador de resumo narrativo.
type SummarizerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
}

// SchedulerConfig governs the unattended quinzenal cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ESTOQUEMONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "estoque-monitor")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("inputs.dir", "database")
	v.SetDefault("inputs.snapshot_dir", "")

	v.SetDefault("analysis.window_days", 7)
	v.SetDefault("analysis.epsilon", 0.1)
	v.SetDefault("analysis.fast_factor", 2.0)
	v.SetDefault("analysis.review_cadence_days", 15)

	v.SetDefault("alerting.threshold_pct", 15.0)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("summarizer.enabled", false)
	v.SetDefault("summarizer.model", "gpt-4o")
	v.SetDefault("summarizer.timeout", "30s")
	v.SetDefault("summarizer.max_tokens", 120)
	v.SetDefault("summarizer.temperature", 0.2)

	// quinzenal: one cycle every 15 days
	v.SetDefault("scheduler.interval", "360h")
	v.SetDefault("scheduler.align_to_bucket", false)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x71756E7A))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Analysis.WindowDays <= 0 {
		return fmt.Errorf("analysis.window_days must be greater than zero")
	}
	if c.Analysis.Epsilon <= 0 {
		return fmt.Errorf("analysis.epsilon must be greater than zero")
	}
	if c.Analysis.FastFactor < 1 {
		return fmt.Errorf("analysis.fast_factor must be at least 1")
	}
	if c.Analysis.ReviewCadenceDays <= 0 {
		return fmt.Errorf("analysis.review_cadence_days must be greater than zero")
	}
	if c.Alerting.ThresholdPct < 0 {
		return fmt.Errorf("alerting.threshold_pct cannot be negative")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token é obrigatório quando habilitado")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id é obrigatório quando habilitado")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
