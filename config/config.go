package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Env         string `env:"ENV" envDefault:"development"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"`

	HTTP       HTTP       `envPrefix:"HTTP_"`
	Log        Log        `envPrefix:"LOG_"`
	Mongo      Mongo      `envPrefix:"MONGO_"`
	Auth       Auth       `envPrefix:"AUTH_"`
	Cloudinary Cloudinary `envPrefix:"CLOUDINARY_"`
	Mail       Mail
}

type HTTP struct {
	Port        uint16   `env:"PORT" envDefault:"4000"`
	GinMode     string   `env:"GIN_MODE" envDefault:"release"`
	APIPrefix   string   `env:"API_PREFIX" envDefault:"/api"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"` // json or console
}

type Mongo struct {
	URI      string        `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database string        `env:"DATABASE" envDefault:"donate"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

type Auth struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`
	// EnforceModerator guards approve/reject behind an administrator token.
	EnforceModerator bool `env:"ENFORCE_MODERATOR" envDefault:"false"`
}

type Cloudinary struct {
	CloudName string `env:"CLOUD_NAME"`
	APIKey    string `env:"API_KEY"`
	APISecret string `env:"API_SECRET"`
	Folder    string `env:"FOLDER" envDefault:"campaigns"`
}

// Enabled reports whether image uploads can be served.
func (c Cloudinary) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Mail keeps the variable names used by the ZeptoMail integration.
type Mail struct {
	APIURL string `env:"ZEPTO_API_URL"`
	APIKey string `env:"ZEPTO_API_KEY"`
	From   string `env:"EMAIL_FROM"`
	ToName string `env:"EMAIL_TO_NAME" envDefault:"Campaigner"`
}

func (m Mail) Enabled() bool {
	return m.APIURL != "" && m.APIKey != "" && m.From != ""
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be positive")
	}
	switch c.StoreDriver {
	case StoreMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DATABASE are required for the mongo store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
