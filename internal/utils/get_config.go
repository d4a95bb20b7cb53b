package utils

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Server configuration
	Port    string `yaml:"PORT"`
	IsProd  bool   `yaml:"IS_PROD"`
	LogMode string `yaml:"LOG_MODE"`

	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`
	DBSSLMode  string `yaml:"DB_SSLMODE"`

	// JWT
	JWTSecret string `yaml:"JWT_SECRET"`

	// AWS S3 configuration
	AWSS3Bucket  string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region  string `yaml:"AWS_S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY"`

	// Bedrock configuration
	BedrockRegion  string `yaml:"BEDROCK_REGION"`
	BedrockModelID string `yaml:"BEDROCK_MODEL_ID"`

	// PlantNet configuration
	PlantNetAPIKey string `yaml:"PLANTNET_API_KEY"`
	PlantNetAPIURL string `yaml:"PLANTNET_API_URL"`

	// Redis correction cache
	RedisAddr               string `yaml:"REDIS_ADDR"`
	RedisPassword           string `yaml:"REDIS_PASSWORD"`
	CorrectionCacheTTLHours string `yaml:"CORRECTION_CACHE_TTL_HOURS"`

	// Identification pipeline
	GuardrailConfirmThreshold string `yaml:"GUARDRAIL_CONFIRM_THRESHOLD"`
	SpeciesUpsertThreshold    string `yaml:"SPECIES_UPSERT_THRESHOLD"`
	EnrichmentConfidenceFloor string `yaml:"ENRICHMENT_CONFIDENCE_FLOOR"`
	RemoteTimeoutSeconds      string `yaml:"REMOTE_TIMEOUT_SECONDS"`
	ImageFetchTimeoutSeconds  string `yaml:"IMAGE_FETCH_TIMEOUT_SECONDS"`
	PrimaryMaxAttempts        string `yaml:"PRIMARY_MAX_ATTEMPTS"`
}

var config Config

// LoadConfig reads config.yaml (or CONFIG_PATH) and then applies environment
// overrides, so a container can run without a file.
func LoadConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	file, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Error reading YAML file: %s\n", err)
	} else if err := yaml.Unmarshal(file, &config); err != nil {
		log.Printf("Error parsing YAML file: %s\n", err)
	}

	applyEnvOverrides(&config)

	os.Setenv("JWT_SECRET", config.JWTSecret)
	os.Setenv("IS_PROD", getBoolString(config.IsProd))
}

// SetConfig replaces the loaded configuration. Used by tests and tooling.
func SetConfig(c Config) {
	config = c
}

func applyEnvOverrides(c *Config) {
	for key, field := range c.stringFields() {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*field = strings.TrimSpace(v)
		}
	}
	if v, ok := os.LookupEnv("IS_PROD"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.IsProd = b
		}
	}
}

func (c *Config) stringFields() map[string]*string {
	return map[string]*string{
		"PORT":                        &c.Port,
		"LOG_MODE":                    &c.LogMode,
		"DB_USER":                     &c.DBUser,
		"DB_NAME":                     &c.DBName,
		"DB_PASSWORD":                 &c.DBPassword,
		"DB_PORT":                     &c.DBPort,
		"DB_HOST":                     &c.DBHost,
		"DB_SSLMODE":                  &c.DBSSLMode,
		"JWT_SECRET":                  &c.JWTSecret,
		"AWS_S3_BUCKET":               &c.AWSS3Bucket,
		"AWS_S3_REGION":               &c.AWSS3Region,
		"AWS_ACCESS_KEY":              &c.AWSAccessKey,
		"AWS_SECRET_KEY":              &c.AWSSecretKey,
		"BEDROCK_REGION":              &c.BedrockRegion,
		"BEDROCK_MODEL_ID":            &c.BedrockModelID,
		"PLANTNET_API_KEY":            &c.PlantNetAPIKey,
		"PLANTNET_API_URL":            &c.PlantNetAPIURL,
		"REDIS_ADDR":                  &c.RedisAddr,
		"REDIS_PASSWORD":              &c.RedisPassword,
		"CORRECTION_CACHE_TTL_HOURS":  &c.CorrectionCacheTTLHours,
		"GUARDRAIL_CONFIRM_THRESHOLD": &c.GuardrailConfirmThreshold,
		"SPECIES_UPSERT_THRESHOLD":    &c.SpeciesUpsertThreshold,
		"ENRICHMENT_CONFIDENCE_FLOOR": &c.EnrichmentConfidenceFloor,
		"REMOTE_TIMEOUT_SECONDS":      &c.RemoteTimeoutSeconds,
		"IMAGE_FETCH_TIMEOUT_SECONDS": &c.ImageFetchTimeoutSeconds,
		"PRIMARY_MAX_ATTEMPTS":        &c.PrimaryMaxAttempts,
	}
}

func getBoolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func GetConfig(key string) string {
	if key == "IS_PROD" || key == "IsProd" {
		return getBoolString(config.IsProd)
	}
	if field, ok := config.stringFields()[key]; ok {
		return *field
	}
	return ""
}

func GetConfigOr(key, fallback string) string {
	if v := GetConfig(key); v != "" {
		return v
	}
	return fallback
}

func GetFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(GetConfig(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func GetInt(key string, fallback int) int {
	v, err := strconv.Atoi(GetConfig(key))
	if err != nil {
		return fallback
	}
	return v
}

func GetSeconds(key string, fallback time.Duration) time.Duration {
	v := GetInt(key, 0)
	if v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Second
}

func IsProd() bool {
	return config.IsProd
}

func GetBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(GetConfig(key))
	if err != nil {
		return fallback
	}
	return v
}

// PipelineSettings holds the identification thresholds and remote call budgets.
type PipelineSettings struct {
	ConfirmThreshold       float64
	SpeciesUpsertThreshold float64
	EnrichmentFloor        float64
	RemoteTimeout          time.Duration
	ImageFetchTimeout      time.Duration
	PrimaryMaxAttempts     int
}

func PipelineConfig() PipelineSettings {
	return PipelineSettings{
		ConfirmThreshold:       GetFloat("GUARDRAIL_CONFIRM_THRESHOLD", 0.75),
		SpeciesUpsertThreshold: GetFloat("SPECIES_UPSERT_THRESHOLD", 0.4),
		EnrichmentFloor:        GetFloat("ENRICHMENT_CONFIDENCE_FLOOR", 0.1),
		RemoteTimeout:          GetSeconds("REMOTE_TIMEOUT_SECONDS", 15*time.Second),
		ImageFetchTimeout:      GetSeconds("IMAGE_FETCH_TIMEOUT_SECONDS", 10*time.Second),
		PrimaryMaxAttempts:     GetInt("PRIMARY_MAX_ATTEMPTS", 2),
	}
}
