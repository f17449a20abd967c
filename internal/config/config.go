package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types

	"github.com/joho/godotenv" // godotenv loads a local .env file in development

	"github.com/iliyamo/hotel-billing/internal/objectstore"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The object-store block is passed through
// to the blob client untouched.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret shared with the external token issuer

	ObjectStore objectstore.Config // S3-compatible store for invoice documents
}

// Load reads configuration values from environment variables and
// returns a Config. A .env file is honored when present so local runs
// need no exported shell state. Required variables are enforced by
// must() and missing values cause the program to exit with a fatal log
// message.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:       must("APP_ENV"),      // environment (dev/test/prod)
		Port:      must("APP_PORT"),     // port to bind the HTTP server
		DBUser:    must("DB_USER"),      // database user
		DBPass:    os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:    must("DB_HOST"),      // database host
		DBPort:    must("DB_PORT"),      // database port
		DBName:    must("DB_NAME"),      // database name
		JWTSecret: must("JWT_SECRET"),   // secret used to verify access tokens
		ObjectStore: objectstore.Config{
			Endpoint:  must("OBJECT_STORE_ENDPOINT"),
			AccessKey: must("OBJECT_STORE_ACCESS_KEY"),
			SecretKey: must("OBJECT_STORE_SECRET_KEY"),
			Bucket:    envStr("OBJECT_STORE_BUCKET", "invoices"),
			UseSSL:    envBool("OBJECT_STORE_SSL", false),
		},
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
