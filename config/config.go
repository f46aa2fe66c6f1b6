package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Host         string        `yaml:"host"          env:"SURVEY_HOST"          env-default:"0.0.0.0"`
	Port         uint          `yaml:"port"          env:"SURVEY_PORT"          env-default:"80"`
	DBUrl        string        `yaml:"db_url"        env:"SURVEY_DB_URL"        env-default:"survey.sqlite"`
	TokenSecret  string        `yaml:"token_secret"  env:"SURVEY_TOKEN_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl"     env:"SURVEY_TOKEN_TTL"     env-default:"120s"`
	Debug        bool          `yaml:"debug"         env:"SURVEY_DEBUG"`
	PageSize     int           `yaml:"page_size"     env:"SURVEY_PAGE_SIZE"     env-default:"10"`
	CookieSecure bool          `yaml:"cookie_secure" env:"SURVEY_COOKIE_SECURE"`
	Seed         bool          `yaml:"seed"          env:"SURVEY_SEED"`
	SeedEmail    string        `yaml:"seed_email"    env:"SURVEY_SEED_EMAIL"`
	SeedPassword string        `yaml:"seed_password" env:"SURVEY_SEED_PASSWORD"`
	Google       GoogleConfig  `yaml:"google"`

	// Addr is derived from Host and Port once flags are parsed.
	Addr string `yaml:"-" env:"-"`
}

type GoogleConfig struct {
	ClientID        string `yaml:"client_id"         env:"GOOGLE_CLIENT_ID"`
	ClientSecret    string `yaml:"client_secret"     env:"GOOGLE_CLIENT_SECRET"`
	RedirectBaseURL string `yaml:"redirect_base_url" env:"REDIRECT_BASE_URL" env-default:"http://localhost:3000"`
}

func ParseFlags() (Config, error) {
	return Parse(os.Args[1:])
}

// Parse loads defaults, an optional YAML file named by SURVEY_CONFIG and the
// environment, then lets command-line flags override the result.
func Parse(args []string) (cfg Config, err error) {
	if path := os.Getenv("SURVEY_CONFIG"); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	fs := flag.NewFlagSet("survey-dashboard", flag.ContinueOnError)
	fs.StringVar(&cfg.Host, "host", cfg.Host, "listen host name")
	fs.UintVar(&cfg.Port, "port", cfg.Port, "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", cfg.DBUrl, "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "secret key for token encryption and decryption")
	ttl := uint(cfg.TokenTTL / time.Second)
	fs.UintVar(&ttl, "token-ttl", ttl, "token TTL in seconds")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log at DEBUG level")
	fs.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "surveys per dashboard page")
	fs.BoolVar(&cfg.CookieSecure, "cookie-secure", cfg.CookieSecure, "mark session cookies as Secure")
	fs.BoolVar(&cfg.Seed, "seed", cfg.Seed, "seed question types and the local user on startup")
	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	err = cfg.Validate()
	return
}

// Validate reports every problem at once.
func (cfg Config) Validate() error {
	var result *multierror.Error

	if cfg.TokenSecret == "" {
		result = multierror.Append(result, errors.New("missing parameter -token-secret"))
	}
	if cfg.TokenTTL <= 0 {
		result = multierror.Append(result, errors.New("-token-ttl must be positive"))
	}
	if cfg.PageSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("-page-size must be positive, got %d", cfg.PageSize))
	}
	if (cfg.Google.ClientID == "") != (cfg.Google.ClientSecret == "") {
		result = multierror.Append(result, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together"))
	}
	if (cfg.SeedEmail == "") != (cfg.SeedPassword == "") {
		result = multierror.Append(result, errors.New("SURVEY_SEED_EMAIL and SURVEY_SEED_PASSWORD must be set together"))
	}

	return result.ErrorOrNil()
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func (cfg Config) GoogleEnabled() bool {
	return cfg.Google.ClientID != "" && cfg.Google.ClientSecret != ""
}

func (cfg Config) GoogleCallbackURL() string {
	return cfg.Google.RedirectBaseURL + "/auth/google/callback"
}
