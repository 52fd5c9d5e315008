package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/randunun/bom-pricer/internal/scoring"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	FX      FXConfig      `yaml:"fx" mapstructure:"fx"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Crawl   CrawlConfig   `yaml:"crawl" mapstructure:"crawl"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FXConfig holds the currency conversion rate table (USD per one unit of
// the currency). RatesFile, when set, overrides Rates entry by entry.
type FXConfig struct {
	Rates     map[string]float64 `yaml:"rates" mapstructure:"rates"`
	RatesFile string             `yaml:"rates_file" mapstructure:"rates_file"`
}

// ScoringConfig mirrors the scoring knobs for file and env override.
type ScoringConfig struct {
	BaseConfidence    float64 `yaml:"base_confidence" mapstructure:"base_confidence"`
	DecayDays         float64 `yaml:"decay_days" mapstructure:"decay_days"`
	VariantMatchScore float64 `yaml:"variant_match_score" mapstructure:"variant_match_score"`
	TrustStep         float64 `yaml:"trust_step" mapstructure:"trust_step"`
	TrustCap          float64 `yaml:"trust_cap" mapstructure:"trust_cap"`

	Blend    BlendConfig    `yaml:"blend" mapstructure:"blend"`
	Feedback FeedbackConfig `yaml:"feedback" mapstructure:"feedback"`
}

// BlendConfig holds the top-level score blend weights.
type BlendConfig struct {
	Confidence   float64 `yaml:"confidence" mapstructure:"confidence"`
	VariantMatch float64 `yaml:"variant_match" mapstructure:"variant_match"`
	Feedback     float64 `yaml:"feedback" mapstructure:"feedback"`
	Trust        float64 `yaml:"trust" mapstructure:"trust"`
}

// FeedbackConfig holds the seller-feedback sub-score weights.
type FeedbackConfig struct {
	Rating   float64 `yaml:"rating" mapstructure:"rating"`
	Reviews  float64 `yaml:"reviews" mapstructure:"reviews"`
	Sold     float64 `yaml:"sold" mapstructure:"sold"`
	StoreAge float64 `yaml:"store_age" mapstructure:"store_age"`
	Choice   float64 `yaml:"choice" mapstructure:"choice"`
	Photos   float64 `yaml:"photos" mapstructure:"photos"`
}

// ToScoring converts the file representation into the scoring package type.
func (s ScoringConfig) ToScoring() scoring.Config {
	return scoring.Config{
		BaseConfidence:    s.BaseConfidence,
		DecayDays:         s.DecayDays,
		VariantMatchScore: s.VariantMatchScore,
		TrustStep:         s.TrustStep,
		TrustCap:          s.TrustCap,
		Blend: scoring.BlendWeights{
			Confidence:   s.Blend.Confidence,
			VariantMatch: s.Blend.VariantMatch,
			Feedback:     s.Blend.Feedback,
			Trust:        s.Blend.Trust,
		},
		Feedback: scoring.FeedbackWeights{
			Rating:   s.Feedback.Rating,
			Reviews:  s.Feedback.Reviews,
			Sold:     s.Feedback.Sold,
			StoreAge: s.Feedback.StoreAge,
			Choice:   s.Feedback.Choice,
			Photos:   s.Feedback.Photos,
		},
	}
}

// CrawlConfig configures BOM parsing limits and the crawl queue.
type CrawlConfig struct {
	MaxBOMLines      int    `yaml:"max_bom_lines" mapstructure:"max_bom_lines"`
	PollAttempts     int    `yaml:"poll_attempts" mapstructure:"poll_attempts"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	RetryBackoffSecs int    `yaml:"retry_backoff_secs" mapstructure:"retry_backoff_secs"`
	SearchBaseURL    string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// IngestConfig configures crawl result ingestion.
type IngestConfig struct {
	// Secret signs crawler payloads; empty disables signature checks for
	// local file ingestion.
	Secret      string `yaml:"secret" mapstructure:"secret"`
	Source      string `yaml:"source" mapstructure:"source"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BOMPRICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "bom-pricer.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 5.0)
	v.SetDefault("server.rate_limit_burst", 10)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("fx.rates.usd", 1.0)
	v.SetDefault("fx.rates.lkr", 1.0/320.0)
	v.SetDefault("crawl.max_bom_lines", 100)
	v.SetDefault("crawl.poll_attempts", 5)
	v.SetDefault("crawl.poll_interval_secs", 2)
	v.SetDefault("crawl.retry_backoff_secs", 600)
	v.SetDefault("crawl.search_base_url", "https://www.aliexpress.com/wholesale?SearchText=")
	v.SetDefault("ingest.source", "prod")
	v.SetDefault("ingest.concurrency", 4)

	def := scoring.Default()
	v.SetDefault("scoring.base_confidence", def.BaseConfidence)
	v.SetDefault("scoring.decay_days", def.DecayDays)
	v.SetDefault("scoring.variant_match_score", def.VariantMatchScore)
	v.SetDefault("scoring.trust_step", def.TrustStep)
	v.SetDefault("scoring.trust_cap", def.TrustCap)
	v.SetDefault("scoring.blend.confidence", def.Blend.Confidence)
	v.SetDefault("scoring.blend.variant_match", def.Blend.VariantMatch)
	v.SetDefault("scoring.blend.feedback", def.Blend.Feedback)
	v.SetDefault("scoring.blend.trust", def.Blend.Trust)
	v.SetDefault("scoring.feedback.rating", def.Feedback.Rating)
	v.SetDefault("scoring.feedback.reviews", def.Feedback.Reviews)
	v.SetDefault("scoring.feedback.sold", def.Feedback.Sold)
	v.SetDefault("scoring.feedback.store_age", def.Feedback.StoreAge)
	v.SetDefault("scoring.feedback.choice", def.Feedback.Choice)
	v.SetDefault("scoring.feedback.photos", def.Feedback.Photos)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.FX.RatesFile != "" {
		rates, err := LoadRatesFile(cfg.FX.RatesFile)
		if err != nil {
			return nil, err
		}
		if cfg.FX.Rates == nil {
			cfg.FX.Rates = map[string]float64{}
		}
		for code, rate := range rates {
			cfg.FX.Rates[strings.ToLower(code)] = rate
		}
	}

	return &cfg, nil
}

// LoadRatesFile reads a flat YAML map of currency code to USD rate.
func LoadRatesFile(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "config: read rates file")
	}
	rates := map[string]float64{}
	if err := yaml.Unmarshal(data, &rates); err != nil {
		return nil, eris.Wrap(err, "config: parse rates file")
	}
	return rates, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
