package config

import "os"

// RedisConfig returns host, port, password
func RedisConfig() (string, string, string) {
	host := GetEnv("R_HOST", "redis")
	port := GetEnv("R_PORT", "6379")
	password := GetEnv("R_PASS", "")
	return host, port, password
}

// DatabaseConfig returns host, port, user, password, database name
func DatabaseConfig() (string, string, string, string, string) {
	host := GetEnv("DB_HOST", "postgres")
	port := GetEnv("DB_PORT", "5432")
	user := GetEnv("DB_USER", "explorer")
	password := GetEnv("DB_PASS", "")
	databaseName := GetEnv("DB_NAME", "explorer")
	return host, port, user, password, databaseName
}

// CatalogConfig returns the upstream catalog base URL, the bearer access
// token, and the approval page the browser is sent to during login.
func CatalogConfig() (string, string, string) {
	baseURL := GetEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	accessToken := GetEnv("TMDB_ACCESS_TOKEN", "")
	approveURL := GetEnv("TMDB_APPROVE_URL", "https://www.themoviedb.org/authenticate")
	return baseURL, accessToken, approveURL
}

// ServerPort returns the port the HTTP server listens on
func ServerPort() string {
	return GetEnv("PORT", "8080")
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
