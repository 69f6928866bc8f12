package app

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/auth"
	"github.com/aussiebroadwan/tradelink/internal/trader/channel"
	"github.com/aussiebroadwan/tradelink/internal/trader/session"
	"github.com/aussiebroadwan/tradelink/internal/trader/wire"
	"github.com/aussiebroadwan/tradelink/pkg/authsdk"
	"github.com/aussiebroadwan/tradelink/pkg/cryptox"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env                 string        `yaml:"env"`                 // dev, staging, prod (default: dev)
	LogLevel            string        `yaml:"logLevel"`            // debug, info, warn, error (default: info)
	LogFormat           string        `yaml:"logFormat"`           // json, text (default: json)
	ShutdownGracePeriod time.Duration `yaml:"shutdownGracePeriod"` // default: 10s

	Venue   VenueConfig   `yaml:"venue"`
	Auth    AuthConfig    `yaml:"auth"`
	Channel ChannelConfig `yaml:"channel"`
	Orders  OrdersConfig  `yaml:"orders"`
	Status  StatusConfig  `yaml:"status"`
	Journal JournalConfig `yaml:"journal"`
}

type VenueConfig struct {
	WSURL         string   `yaml:"wsURL"`         // Required
	TokenURL      string   `yaml:"tokenURL"`      // Required
	JWKSURL       string   `yaml:"jwksURL"`       // Required
	Issuer        string   `yaml:"issuer"`        // Required: expected iss claim
	Audience      []string `yaml:"audience"`      // Required: accepted aud values
	Account       string   `yaml:"account"`       // Sent in the login message
	ExDestination string   `yaml:"exDestination"` // Default routing destination for orders

	APIKey    string `yaml:"apiKey"`    // Required
	APISecret string `yaml:"apiSecret"` // Plaintext; prefer APISecretSealed
	// APISecretSealed is cryptox.SealSecret output, opened with the
	// master key from TRADER_MASTER_KEY.
	APISecretSealed string `yaml:"apiSecretSealed"`
}

type AuthConfig struct {
	GrantType       string        `yaml:"grantType"` // client_credentials (default) or password
	ClientID        string        `yaml:"clientID"`
	ClientSecret    string        `yaml:"clientSecret"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	TOTPSecret      string        `yaml:"totpSecret"` // Optional: completes MFA challenges
	Scopes          []string      `yaml:"scopes"`
	KeySetFreshness time.Duration `yaml:"keySetFreshness"` // default: 1h
	Leeway          time.Duration `yaml:"leeway"`
}

type ChannelConfig struct {
	HeartbeatInterval    time.Duration `yaml:"heartbeatInterval"`
	ReconnectDelay       time.Duration `yaml:"reconnectDelay"`
	MaxReconnectDelay    time.Duration `yaml:"maxReconnectDelay"`
	MaxReconnectAttempts int           `yaml:"maxReconnectAttempts"`
	WriteTimeout         time.Duration `yaml:"writeTimeout"`
	DialTimeout          time.Duration `yaml:"dialTimeout"`
}

type OrdersConfig struct {
	PerSecond          float64 `yaml:"perSecond"`
	Burst              int     `yaml:"burst"`
	DefaultTimeInForce string  `yaml:"defaultTimeInForce"` // day (default), gtc, ioc, fok
}

type StatusConfig struct {
	Addr        string   `yaml:"addr"`        // empty disables the status API (default: :8081)
	RequireAuth bool     `yaml:"requireAuth"` // verify venue bearer tokens on /v1 routes
	Scopes      []string `yaml:"scopes"`      // with RequireAuth, tokens need one of these (default: read)
}

type JournalConfig struct {
	File string `yaml:"file"` // SQLite file; empty disables journaling
}

func defaultConfig() Config {
	return Config{
		Env:                 "dev",
		LogLevel:            "info",
		LogFormat:           "json",
		ShutdownGracePeriod: 10 * time.Second,
		Auth: AuthConfig{
			GrantType:       authsdk.GrantClientCredentials,
			KeySetFreshness: auth.DefaultKeySetFreshness,
		},
		Channel: ChannelConfig{
			HeartbeatInterval:    channel.DefaultHeartbeatInterval,
			ReconnectDelay:       channel.DefaultReconnectDelay,
			MaxReconnectDelay:    channel.DefaultMaxReconnectDelay,
			MaxReconnectAttempts: channel.DefaultMaxReconnectAttempts,
			WriteTimeout:         channel.DefaultWriteTimeout,
			DialTimeout:          channel.DefaultDialTimeout,
		},
		Orders: OrdersConfig{
			PerSecond:          session.DefaultOrdersPerSecond,
			Burst:              session.DefaultOrderBurst,
			DefaultTimeInForce: string(wire.TIFDay),
		},
		Status: StatusConfig{Addr: ":8081", Scopes: []string{"read"}},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by TRADER_CONFIG_FILE, then the environment. Later sources win.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("TRADER_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.openSealedSecret(os.Getenv("TRADER_MASTER_KEY")); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)

	v := &cfg.Venue
	v.WSURL = getEnvOrDefault("TRADER_WS_URL", v.WSURL)
	v.TokenURL = getEnvOrDefault("TRADER_TOKEN_URL", v.TokenURL)
	v.JWKSURL = getEnvOrDefault("TRADER_JWKS_URL", v.JWKSURL)
	v.Issuer = getEnvOrDefault("TRADER_ISSUER", v.Issuer)
	v.Audience = getEnvListOrDefault("TRADER_AUDIENCE", v.Audience)
	v.Account = getEnvOrDefault("TRADER_ACCOUNT", v.Account)
	v.ExDestination = getEnvOrDefault("TRADER_EX_DESTINATION", v.ExDestination)
	v.APIKey = getEnvOrDefault("TRADER_API_KEY", v.APIKey)
	v.APISecret = getEnvOrDefault("TRADER_API_SECRET", v.APISecret)
	v.APISecretSealed = getEnvOrDefault("TRADER_API_SECRET_SEALED", v.APISecretSealed)

	a := &cfg.Auth
	a.GrantType = getEnvOrDefault("TRADER_GRANT_TYPE", a.GrantType)
	a.ClientID = getEnvOrDefault("TRADER_CLIENT_ID", a.ClientID)
	a.ClientSecret = getEnvOrDefault("TRADER_CLIENT_SECRET", a.ClientSecret)
	a.Username = getEnvOrDefault("TRADER_USERNAME", a.Username)
	a.Password = getEnvOrDefault("TRADER_PASSWORD", a.Password)
	a.TOTPSecret = getEnvOrDefault("TRADER_TOTP_SECRET", a.TOTPSecret)
	a.Scopes = getEnvListOrDefault("TRADER_SCOPES", a.Scopes)
	a.KeySetFreshness = getEnvDurationOrDefault("TRADER_KEYSET_FRESHNESS", a.KeySetFreshness)
	a.Leeway = getEnvDurationOrDefault("TRADER_TOKEN_LEEWAY", a.Leeway)

	c := &cfg.Channel
	c.HeartbeatInterval = getEnvDurationOrDefault("TRADER_HEARTBEAT_INTERVAL", c.HeartbeatInterval)
	c.ReconnectDelay = getEnvDurationOrDefault("TRADER_RECONNECT_DELAY", c.ReconnectDelay)
	c.MaxReconnectDelay = getEnvDurationOrDefault("TRADER_MAX_RECONNECT_DELAY", c.MaxReconnectDelay)
	c.MaxReconnectAttempts = getEnvIntOrDefault("TRADER_MAX_RECONNECT_ATTEMPTS", c.MaxReconnectAttempts)
	c.WriteTimeout = getEnvDurationOrDefault("TRADER_WRITE_TIMEOUT", c.WriteTimeout)
	c.DialTimeout = getEnvDurationOrDefault("TRADER_DIAL_TIMEOUT", c.DialTimeout)

	o := &cfg.Orders
	o.PerSecond = getEnvFloatOrDefault("TRADER_ORDERS_PER_SECOND", o.PerSecond)
	o.Burst = getEnvIntOrDefault("TRADER_ORDER_BURST", o.Burst)
	o.DefaultTimeInForce = getEnvOrDefault("TRADER_DEFAULT_TIME_IN_FORCE", o.DefaultTimeInForce)

	if addr, ok := os.LookupEnv("TRADER_STATUS_ADDR"); ok {
		cfg.Status.Addr = addr // may be set empty to disable
	}
	cfg.Status.RequireAuth = getEnvBoolOrDefault("TRADER_STATUS_REQUIRE_AUTH", cfg.Status.RequireAuth)
	cfg.Status.Scopes = getEnvListOrDefault("TRADER_STATUS_SCOPES", cfg.Status.Scopes)

	cfg.Journal.File = getEnvOrDefault("TRADER_JOURNAL_FILE", cfg.Journal.File)
}

// openSealedSecret replaces APISecret with the opened sealed value, if any.
func (c *Config) openSealedSecret(masterKey string) error {
	if c.Venue.APISecretSealed == "" {
		return nil
	}
	if masterKey == "" {
		return errors.New("TRADER_API_SECRET_SEALED is set but TRADER_MASTER_KEY is not")
	}
	secret, err := cryptox.OpenSecret([]byte(masterKey), c.Venue.APISecretSealed)
	if err != nil {
		return fmt.Errorf("open sealed api secret: %w", err)
	}
	c.Venue.APISecret = string(secret)
	return nil
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var problems []error
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, fmt.Errorf("%s is required", name))
		}
	}

	require("venue websocket url", c.Venue.WSURL)
	require("token url", c.Venue.TokenURL)
	require("jwks url", c.Venue.JWKSURL)
	require("issuer", c.Venue.Issuer)
	if !slices.ContainsFunc(c.Venue.Audience, func(aud string) bool { return strings.TrimSpace(aud) != "" }) {
		problems = append(problems, errors.New("audience is required"))
	}
	require("api key", c.Venue.APIKey)

	switch c.Auth.GrantType {
	case authsdk.GrantClientCredentials:
		require("client id", c.Auth.ClientID)
	case authsdk.GrantPassword:
		require("username", c.Auth.Username)
		require("password", c.Auth.Password)
	default:
		problems = append(problems, fmt.Errorf("unsupported grant type %q", c.Auth.GrantType))
	}

	if tif := wire.TimeInForce(c.Orders.DefaultTimeInForce); !tif.Valid() {
		problems = append(problems, fmt.Errorf("unknown time in force %q", tif))
	}
	if c.Channel.MaxReconnectAttempts < 0 {
		problems = append(problems, errors.New("max reconnect attempts cannot be negative"))
	}

	return errors.Join(problems...)
}

func (c Config) authConfig() auth.Config {
	return auth.Config{
		TokenURL:        c.Venue.TokenURL,
		JWKSURL:         c.Venue.JWKSURL,
		Issuer:          c.Venue.Issuer,
		Audience:        c.Venue.Audience,
		KeySetFreshness: c.Auth.KeySetFreshness,
		Leeway:          c.Auth.Leeway,
		Grant: auth.GrantConfig{
			Type:         c.Auth.GrantType,
			ClientID:     c.Auth.ClientID,
			ClientSecret: c.Auth.ClientSecret,
			Username:     c.Auth.Username,
			Password:     c.Auth.Password,
			Scopes:       c.Auth.Scopes,
			TOTPSecret:   c.Auth.TOTPSecret,
		},
	}
}

func (c Config) sessionConfig() session.Config {
	return session.Config{
		APIKey:             c.Venue.APIKey,
		APISecret:          c.Venue.APISecret,
		Account:            c.Venue.Account,
		ExDestination:      c.Venue.ExDestination,
		DefaultTimeInForce: wire.TimeInForce(c.Orders.DefaultTimeInForce),
		OrdersPerSecond:    c.Orders.PerSecond,
		OrderBurst:         c.Orders.Burst,
		Channel: channel.Options{
			URL:                  c.Venue.WSURL,
			HeartbeatInterval:    c.Channel.HeartbeatInterval,
			ReconnectDelay:       c.Channel.ReconnectDelay,
			MaxReconnectDelay:    c.Channel.MaxReconnectDelay,
			MaxReconnectAttempts: c.Channel.MaxReconnectAttempts,
			WriteTimeout:         c.Channel.WriteTimeout,
			DialTimeout:          c.Channel.DialTimeout,
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvListOrDefault splits on commas and whitespace.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Fields(strings.ReplaceAll(value, ",", " "))
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// "1h", "30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
