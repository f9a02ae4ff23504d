package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types

	"golang.org/x/crypto/bcrypt" // bcrypt supplies the default hashing cost
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced by must(); optional
// values fall back to the documented defaults.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	JWTSecret    string // secret used to sign JWTs
	JWTTTLHours  int    // session token time-to-live in hours
	BcryptCost   int    // bcrypt cost for password hashing
	UploadDir    string // root directory for stored repair images
	MaxUploadMB  int    // maximum accepted upload size in megabytes
	QRCodeBase   string // external QR rendering endpoint
	TrackingBase string // public customer tracking page
	WebhookURL   string // outbound notification webhook (empty disables)
	WebhookOn    bool   // master switch for outbound notifications
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		JWTTTLHours:  intOr("JWT_TTL_HOURS", 24),
		BcryptCost:   intOr("BCRYPT_COST", bcrypt.DefaultCost),
		UploadDir:    strOr("UPLOAD_DIR", "./uploads"),
		MaxUploadMB:  intOr("MAX_UPLOAD_MB", 5),
		QRCodeBase:   strOr("QR_CODE_BASE_URL", "https://quickchart.io/qr"),
		TrackingBase: strOr("PUBLIC_TRACKING_URL", "https://fix.nixflow.xyz/track"),
		WebhookURL:   os.Getenv("WEBHOOK_URL"),
		WebhookOn:    os.Getenv("WEBHOOK_ENABLED") == "true",
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// strOr returns the variable's value or def when unset/empty.
func strOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// intOr returns the variable parsed as an int or def when unset or invalid.
func intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
