package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	// DBDriver is one of sqlite|postgres|mongo|memory.
	DBDriver   string
	DBDSN      string
	MongoURL   string
	DBName     string
	CORSOrigin string

	JWTSecret string

	AIKey     string
	AIBaseURL string
	AIModel   string

	RedisAddr    string
	HintCacheTTL time.Duration

	AutoRegister      bool
	StrictParse       bool
	RetakeHideAnswers bool
	// FoldLetters accepts "c" or "C) 3" as answer C.
	FoldLetters bool
}

// Load reads optional .env files and then the process environment. A
// missing file is skipped; one that exists but does not parse is an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	mode := Mode(strings.ToLower(os.Getenv("MODE")))
	if mode == "" {
		mode = ModeDev
	}
	return Config{
		Mode:              mode,
		HTTPAddr:          envOr("HTTP_ADDR", ":8080"),
		DBDriver:          envOr("DB_DRIVER", "sqlite"),
		DBDSN:             os.Getenv("DB_DSN"),
		MongoURL:          os.Getenv("MONGODB_URL"),
		DBName:            envOr("DB_NAME", "quizgen"),
		CORSOrigin:        os.Getenv("CORS_ORIGIN"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AIKey:             os.Getenv("GROQAPI_KEY"),
		AIBaseURL:         envOr("AI_BASE_URL", "https://api.groq.com/openai/v1"),
		AIModel:           envOr("AI_MODEL", "llama3-8b-8192"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		HintCacheTTL:      envDuration("HINT_CACHE_TTL", 24*time.Hour),
		AutoRegister:      envBool("AUTH_AUTO_REGISTER", true),
		StrictParse:       envBool("QUIZ_STRICT_PARSE", false),
		RetakeHideAnswers: envBool("QUIZ_RETAKE_HIDE_ANSWERS", false),
		FoldLetters:       envBool("QUIZ_FOLD_LETTERS", false),
	}
}

// Validate reports every missing setting the server cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.AIKey == "" {
		errs = append(errs, errors.New("GROQAPI_KEY is required"))
	}
	if c.CORSOrigin == "" {
		errs = append(errs, errors.New("CORS_ORIGIN is required"))
	}
	switch c.DBDriver {
	case "mongo":
		if c.MongoURL == "" {
			errs = append(errs, errors.New("MONGODB_URL is required for DB_DRIVER=mongo"))
		}
	case "postgres":
		if c.DBDSN == "" {
			errs = append(errs, errors.New("DB_DSN is required for DB_DRIVER=postgres"))
		}
	case "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	return errors.Join(errs...)
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}
