package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/ecolearn-go-api/internal/impact"
	"github.com/noah-isme/ecolearn-go-api/internal/models"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	DatabaseURL          string
	RedisURL             string
	NATSURL              string
	AwardSubject         string
	AwardStream          string
	JWTSecret            string
	LeaderboardCacheTTL  time.Duration
	StorageTimeout       time.Duration
	AutoApproveThreshold float64
	MaxAutoPoints        int
	OpenAIAPIKey         string
	OpenAIModel          string
	ImpactRatios         map[models.ActivityKind]impact.Ratios
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ECOLEARN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "EcoLearn API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("leaderboard.cache_ttl", "1m")
	v.SetDefault("storage.timeout", "5s")
	v.SetDefault("review.auto_approve_threshold", 0.85)
	v.SetDefault("review.max_auto_points", 100)
	v.SetDefault("awards.subject", "ecolearn.awards")
	v.SetDefault("awards.stream", "ecolearn:awards")
	v.SetDefault("openai.model", "gpt-4o-mini")

	cacheTTL, err := time.ParseDuration(v.GetString("leaderboard.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid leaderboard cache ttl: %w", err)
	}

	storageTimeout, err := time.ParseDuration(v.GetString("storage.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid storage timeout: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		AwardSubject:         v.GetString("awards.subject"),
		AwardStream:          v.GetString("awards.stream"),
		JWTSecret:            v.GetString("jwt.secret"),
		LeaderboardCacheTTL:  cacheTTL,
		StorageTimeout:       storageTimeout,
		AutoApproveThreshold: v.GetFloat64("review.auto_approve_threshold"),
		MaxAutoPoints:        v.GetInt("review.max_auto_points"),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		OpenAIModel:          v.GetString("openai.model"),
		ImpactRatios:         loadImpactRatios(v),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.AutoApproveThreshold <= 0 || cfg.AutoApproveThreshold > 1 {
		return Config{}, fmt.Errorf("auto approve threshold must be in (0, 1]")
	}

	if cfg.MaxAutoPoints <= 0 {
		cfg.MaxAutoPoints = 100
	}

	return cfg, nil
}

// impactRatioKinds lists the kinds whose conversion ratios can be overridden
// from the environment, e.g. ECOLEARN_IMPACT_RATIOS_MODULE_CO2_KG_PER_POINT.
var impactRatioKinds = []models.ActivityKind{
	models.ActivityKindModule,
	models.ActivityKindQuiz,
	models.ActivityKindTask,
	models.ActivityKindAction,
	models.ActivityKindBonus,
}

// loadImpactRatios collects per-kind conversion overrides. Unset fields keep
// the built-in defaults, so a partial override never zeroes the remaining
// dimensions for that kind.
func loadImpactRatios(v *viper.Viper) map[models.ActivityKind]impact.Ratios {
	overrides := make(map[models.ActivityKind]impact.Ratios)
	for _, kind := range impactRatioKinds {
		prefix := fmt.Sprintf("impact.ratios.%s.", kind)
		r := impact.Ratios{
			CO2KgPerPoint:     v.GetFloat64(prefix + "co2_kg_per_point"),
			PlasticKgPerPoint: v.GetFloat64(prefix + "plastic_kg_per_point"),
			WaterLPerPoint:    v.GetFloat64(prefix + "water_l_per_point"),
			EnergyKwhPerPoint: v.GetFloat64(prefix + "energy_kwh_per_point"),
		}
		if r == (impact.Ratios{}) {
			continue
		}

		defaults := impact.DefaultRatios(kind)
		if r.CO2KgPerPoint == 0 {
			r.CO2KgPerPoint = defaults.CO2KgPerPoint
		}
		if r.PlasticKgPerPoint == 0 {
			r.PlasticKgPerPoint = defaults.PlasticKgPerPoint
		}
		if r.WaterLPerPoint == 0 {
			r.WaterLPerPoint = defaults.WaterLPerPoint
		}
		if r.EnergyKwhPerPoint == 0 {
			r.EnergyKwhPerPoint = defaults.EnergyKwhPerPoint
		}

		overrides[kind] = r
	}
	return overrides
}
