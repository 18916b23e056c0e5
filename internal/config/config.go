package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const devHMACSecret = "dev-only-change-me"

type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string

	DBDriver       string // sqlite|postgres
	DBDSN          string
	PersistEnabled bool
	PersistMigrate bool
	PersistTimeout time.Duration

	CatalogPath string // empty uses the built-in catalog
	SessionTTL  time.Duration

	BlobDriver   string // none|fs|minio
	BlobBasePath string // for fs

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	NarrativeTemperature float32
	NarrativeMaxTokens   int
	NarrativeTimeout     time.Duration

	AuthHMACSecret string
	AdminUser      string
	AdminPassHash  string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// FromEnv reads configuration from the environment. A .env file in the working
// directory is loaded first when present, and CONFIG_FILE may name a YAML file
// whose keys (same names, any case) act as defaults under the environment.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("INFO: [Config] loaded .env")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", file, err)
		}
		log.Printf("INFO: [Config] loaded %s", v.ConfigFileUsed())
	}

	mode := Mode(strings.ToLower(v.GetString("MODE")))
	if mode != ModeOnline {
		mode = ModeOffline
	}
	c := Config{
		Mode:      mode,
		HTTPAddr:  v.GetString("HTTP_ADDR"),
		PublicURL: strings.TrimSuffix(v.GetString("PUBLIC_URL"), "/"),

		DBDriver:       v.GetString("DB_DRIVER"),
		DBDSN:          v.GetString("DB_DSN"),
		PersistEnabled: v.GetBool("PERSIST_ENABLED"),
		PersistMigrate: v.GetBool("PERSIST_MIGRATE"),
		PersistTimeout: v.GetDuration("PERSIST_TIMEOUT"),

		CatalogPath: v.GetString("CATALOG_PATH"),
		SessionTTL:  v.GetDuration("SESSION_TTL"),

		BlobDriver:   v.GetString("BLOB_DRIVER"),
		BlobBasePath: v.GetString("BLOB_BASE_PATH"),

		MinioEndpoint:  v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey: v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey: v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:    v.GetString("MINIO_BUCKET"),
		MinioUseSSL:    v.GetBool("MINIO_USE_SSL"),
		MinioRegion:    v.GetString("MINIO_REGION"),

		OpenAIAPIKey:         v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:        v.GetString("OPENAI_BASE_URL"),
		OpenAIModel:          v.GetString("OPENAI_MODEL"),
		NarrativeTemperature: float32(v.GetFloat64("NARRATIVE_TEMPERATURE")),
		NarrativeMaxTokens:   v.GetInt("NARRATIVE_MAX_TOKENS"),
		NarrativeTimeout:     v.GetDuration("NARRATIVE_TIMEOUT"),

		AuthHMACSecret: v.GetString("AUTH_HMAC_SECRET"),
		AdminUser:      v.GetString("ADMIN_USER"),
		AdminPassHash:  v.GetString("ADMIN_PASS_HASH"),

		CORSOriginsOnline:  csv(v.GetString("CORS_ORIGINS_ONLINE")),
		CORSOriginsOffline: csv(v.GetString("CORS_ORIGINS_OFFLINE")),
	}
	return c, c.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MODE", string(ModeOffline))
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("PUBLIC_URL", "")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("PERSIST_ENABLED", true)
	v.SetDefault("PERSIST_MIGRATE", true)
	v.SetDefault("PERSIST_TIMEOUT", "10s")
	v.SetDefault("CATALOG_PATH", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("BLOB_DRIVER", "fs")
	v.SetDefault("BLOB_BASE_PATH", "./data")
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "readiness-reports")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("NARRATIVE_TEMPERATURE", 0.7)
	v.SetDefault("NARRATIVE_MAX_TOKENS", 1000)
	v.SetDefault("NARRATIVE_TIMEOUT", "45s")
	v.SetDefault("AUTH_HMAC_SECRET", devHMACSecret)
	v.SetDefault("ADMIN_USER", "admin")
	v.SetDefault("ADMIN_PASS_HASH", "") // empty disables admin login
	v.SetDefault("CORS_ORIGINS_ONLINE", "https://readiness.mindengage.ai")
	v.SetDefault("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010")
	v.SetDefault("CONFIG_FILE", "")
}

// Validate rejects combinations the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported %q", c.DBDriver))
	}
	switch c.BlobDriver {
	case "none", "fs", "minio":
	default:
		errs = append(errs, fmt.Errorf("BLOB_DRIVER: unsupported %q", c.BlobDriver))
	}
	if c.BlobDriver == "minio" && (c.MinioAccessKey == "" || c.MinioSecretKey == "") {
		errs = append(errs, errors.New("BLOB_DRIVER=minio needs MINIO_ACCESS_KEY and MINIO_SECRET_KEY"))
	}
	if c.NarrativeTemperature < 0 || c.NarrativeTemperature > 2 {
		errs = append(errs, fmt.Errorf("NARRATIVE_TEMPERATURE: %v outside [0,2]", c.NarrativeTemperature))
	}
	if c.NarrativeMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("NARRATIVE_MAX_TOKENS: must be positive"))
	}
	if c.Mode == ModeOnline && c.AuthHMACSecret == devHMACSecret {
		errs = append(errs, errors.New("AUTH_HMAC_SECRET must be set in online mode"))
	}
	return errors.Join(errs...)
}

// AllowedOrigins returns the CORS origins of the current mode.
func (c Config) AllowedOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
