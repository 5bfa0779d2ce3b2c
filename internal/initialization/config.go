package initialization

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all cubby configuration.
type Config struct {
	// Server settings
	HTTPAddress string

	// Metadata store
	MongoURI      string
	MongoDatabase string

	// Upload session store
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// Blob store
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3ForcePathStyle  bool

	// Auth
	JWTSecret string

	// PresignTTLSeconds bounds presigned upload/download URLs and pending
	// upload sessions. Capped at one hour.
	PresignTTLSeconds int
}

func (c *Config) PresignTTL() time.Duration {
	return time.Duration(c.PresignTTLSeconds) * time.Second
}

// LoadConfig loads configuration from an optional yaml file and environment
// variables. Environment variables win over file values.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Configure environment variables - do this BEFORE reading config
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set up explicit mappings between struct fields and environment variables
	envMappings := map[string]string{
		"HTTPAddress":       "CUBBY_HTTP_ADDRESS",
		"MongoURI":          "CUBBY_MONGO_URI",
		"MongoDatabase":     "CUBBY_MONGO_DATABASE",
		"RedisAddress":      "CUBBY_REDIS_ADDRESS",
		"RedisPassword":     "CUBBY_REDIS_PASSWORD",
		"RedisDB":           "CUBBY_REDIS_DB",
		"S3Region":          "CUBBY_S3_REGION",
		"S3Endpoint":        "CUBBY_S3_ENDPOINT",
		"S3AccessKeyID":     "CUBBY_S3_ACCESS_KEY_ID",
		"S3SecretAccessKey": "CUBBY_S3_SECRET_ACCESS_KEY",
		"S3Bucket":          "CUBBY_S3_BUCKET",
		"S3ForcePathStyle":  "CUBBY_S3_FORCE_PATH_STYLE",
		"JWTSecret":         "CUBBY_JWT_SECRET",
		"PresignTTLSeconds": "CUBBY_PRESIGN_TTL_SECONDS",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("cubby_config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.cubby")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTPAddress", ":8080")
	v.SetDefault("MongoDatabase", "cubby")
	v.SetDefault("RedisAddress", "localhost:6379")
	v.SetDefault("RedisDB", 0)
	v.SetDefault("S3Region", "us-east-1")
	v.SetDefault("S3ForcePathStyle", false)
	v.SetDefault("PresignTTLSeconds", 3600)
}

// validateConfig collects every missing required variable so a bare
// deployment fails with one complete message instead of one variable at a
// time.
func validateConfig(config *Config) error {
	var missingVars []string

	if config.MongoURI == "" {
		missingVars = append(missingVars, "CUBBY_MONGO_URI")
	}

	if config.S3AccessKeyID == "" {
		missingVars = append(missingVars, "CUBBY_S3_ACCESS_KEY_ID")
	}

	if config.S3SecretAccessKey == "" {
		missingVars = append(missingVars, "CUBBY_S3_SECRET_ACCESS_KEY")
	}

	if config.S3Bucket == "" {
		missingVars = append(missingVars, "CUBBY_S3_BUCKET")
	}

	if config.JWTSecret == "" {
		missingVars = append(missingVars, "CUBBY_JWT_SECRET")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	return nil
}
