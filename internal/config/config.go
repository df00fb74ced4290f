package config // package config loads application configuration from environment variables

import (
	"os"
	"strconv"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime configuration values.  It is loaded once at
// startup and passed explicitly to every component that needs it; nothing
// reads the environment after Load returns.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	JWTSecret    string // secret used to sign admin JWTs
	AccessTTLMin int    // admin token time-to-live in minutes
	BcryptCost   int    // bcrypt cost used to hash the admin password at startup

	AdminUser     string // administrator login name
	AdminPassword string // administrator password (plain; hashed in memory on startup)
	OperatorEmail string // fixed address that receives a copy of every confirmation

	SessionHashKey  string // securecookie hash key for the pending-booking cookie
	SessionBlockKey string // securecookie block key (optional; enables encryption)
	PublicBaseURL   string // externally reachable base URL used for payment return links

	Booking BookingConfig
	Payment PaymentConfig
	Mail    MailConfig
	Log     LogConfig
}

// PaymentConfig holds the payment gateway credentials.  Keys are read with
// the OMISE_ prefix, e.g. OMISE_PUBLIC_KEY.
type PaymentConfig struct {
	PublicKey  string `envconfig:"PUBLIC_KEY"`
	SecretKey  string `envconfig:"SECRET_KEY"`
	SourceType string `envconfig:"SOURCE_TYPE" default:"promptpay"`
	TimeoutSec int    `envconfig:"TIMEOUT_SEC" default:"15"`
}

// Enabled reports whether gateway credentials are present.
func (p PaymentConfig) Enabled() bool { return p.PublicKey != "" && p.SecretKey != "" }

// MailConfig holds SMTP settings, read with the SMTP_ prefix.  When the
// username or password is missing, outbound mail is disabled and
// notifications are only logged.
type MailConfig struct {
	Host     string `envconfig:"HOST" default:"smtp.gmail.com"`
	Port     int    `envconfig:"PORT" default:"465"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	From     string `envconfig:"FROM"`
	SSL      bool   `envconfig:"SSL" default:"true"`
}

// Enabled reports whether SMTP credentials are configured.
func (m MailConfig) Enabled() bool { return m.Username != "" && m.Password != "" }

// Sender returns the From address, falling back to the SMTP username.
func (m MailConfig) Sender() string {
	if m.From != "" {
		return m.From
	}
	return m.Username
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   envInt("BCRYPT_COST", 10),

		AdminUser:     must("ADMIN_USER"),
		AdminPassword: must("ADMIN_PASSWORD"),
		OperatorEmail: os.Getenv("OPERATOR_EMAIL"),

		SessionHashKey:  must("SESSION_HASH_KEY"),
		SessionBlockKey: os.Getenv("SESSION_BLOCK_KEY"),
		PublicBaseURL:   getenv("PUBLIC_BASE_URL", "http://localhost:8080"),

		Booking: LoadBookingConfig(),
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}
	if err := envconfig.Process("OMISE", &cfg.Payment); err != nil {
		log.Fatal().Err(err).Msg("invalid payment configuration")
	}
	if err := envconfig.Process("SMTP", &cfg.Mail); err != nil {
		log.Fatal().Err(err).Msg("invalid mail configuration")
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal().Str("key", key).Msg("missing required env var")
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatal().Str("key", key).Str("value", s).Msg("invalid int env var")
	}
	return n
}
