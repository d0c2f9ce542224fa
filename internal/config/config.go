package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Matcher    MatcherConfig    `yaml:"matcher" mapstructure:"matcher"`
	Similarity SimilarityConfig `yaml:"similarity" mapstructure:"similarity"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for free-text understanding.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MatcherConfig holds the additive scoring weights for patient matching.
// Trial weights are composite-score points; treatment weights are the
// per-treatment match scores.
type MatcherConfig struct {
	BiomarkerWeight     float64 `yaml:"biomarker_weight" mapstructure:"biomarker_weight"`
	LineOfTherapyWeight float64 `yaml:"line_of_therapy_weight" mapstructure:"line_of_therapy_weight"`
	ECOGWeight          float64 `yaml:"ecog_weight" mapstructure:"ecog_weight"`
	DistanceNearWeight  float64 `yaml:"distance_near_weight" mapstructure:"distance_near_weight"`
	DistanceFarWeight   float64 `yaml:"distance_far_weight" mapstructure:"distance_far_weight"`
	RecruitingWeight    float64 `yaml:"recruiting_weight" mapstructure:"recruiting_weight"`

	// Distance bands in miles.
	NearMiles float64 `yaml:"near_miles" mapstructure:"near_miles"`
	FarMiles  float64 `yaml:"far_miles" mapstructure:"far_miles"`

	// Treatment match scores.
	TreatmentExact           float64 `yaml:"treatment_exact" mapstructure:"treatment_exact"`
	TreatmentGenericPositive float64 `yaml:"treatment_generic_positive" mapstructure:"treatment_generic_positive"`
	TreatmentWildType        float64 `yaml:"treatment_wild_type" mapstructure:"treatment_wild_type"`
	TreatmentPartial         float64 `yaml:"treatment_partial" mapstructure:"treatment_partial"`
	TreatmentBaseline        float64 `yaml:"treatment_baseline" mapstructure:"treatment_baseline"`

	// TopN caps the trials returned per match request.
	TopN int `yaml:"top_n" mapstructure:"top_n"`
}

// SimilarityConfig holds the component weights for competitor similarity.
// Weights must sum to 1.0.
type SimilarityConfig struct {
	BiomarkerWeight  float64 `yaml:"biomarker_weight" mapstructure:"biomarker_weight"`
	StageWeight      float64 `yaml:"stage_weight" mapstructure:"stage_weight"`
	GeographicWeight float64 `yaml:"geographic_weight" mapstructure:"geographic_weight"`
	PhaseWeight      float64 `yaml:"phase_weight" mapstructure:"phase_weight"`

	// MinScore is the floor below which a trial is not reported as a
	// competitor; MaxResults caps the returned list.
	MinScore   float64 `yaml:"min_score" mapstructure:"min_score"`
	MaxResults int     `yaml:"max_results" mapstructure:"max_results"`
}

// ExtractConfig configures the eligibility backfill worker pool.
type ExtractConfig struct {
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRIALSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "trialscout.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.timeout_secs", 60)
	v.SetDefault("matcher.biomarker_weight", 50)
	v.SetDefault("matcher.line_of_therapy_weight", 30)
	v.SetDefault("matcher.ecog_weight", 20)
	v.SetDefault("matcher.distance_near_weight", 15)
	v.SetDefault("matcher.distance_far_weight", 10)
	v.SetDefault("matcher.recruiting_weight", 10)
	v.SetDefault("matcher.near_miles", 25)
	v.SetDefault("matcher.far_miles", 50)
	v.SetDefault("matcher.treatment_exact", 50)
	v.SetDefault("matcher.treatment_generic_positive", 40)
	v.SetDefault("matcher.treatment_wild_type", 30)
	v.SetDefault("matcher.treatment_partial", 25)
	v.SetDefault("matcher.treatment_baseline", 10)
	v.SetDefault("matcher.top_n", 5)
	v.SetDefault("similarity.biomarker_weight", 0.4)
	v.SetDefault("similarity.stage_weight", 0.2)
	v.SetDefault("similarity.geographic_weight", 0.2)
	v.SetDefault("similarity.phase_weight", 0.2)
	v.SetDefault("similarity.min_score", 0.1)
	v.SetDefault("similarity.max_results", 50)
	v.SetDefault("extract.concurrency", 4)
	v.SetDefault("extract.rate_per_sec", 2)

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

	return &cfg, nil
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
