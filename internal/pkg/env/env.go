package env

import (
	"os"

	"github.com/joho/godotenv"
)

// fileEnv holds the key/value pairs read from the .env file at startup.
// Values there win over process environment variables.
var fileEnv map[string]string

// GetEnv returns the configured value for key, falling back to def.
func GetEnv(key, def string) string {
	if val, ok := fileEnv[key]; ok {
		return val
	}
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
}

// SetupEnvFile loads the .env file. Binaries run both from the repo root and
// from under cmd/, so a few relative locations are probed.
func SetupEnvFile() {
	for _, envFile := range []string{".env", "../../.env", "../../../.env"} {
		parsed, err := godotenv.Read(envFile)
		if err == nil {
			fileEnv = parsed
			return
		}
	}

	panic("No .env file found in any of the expected locations")
}
