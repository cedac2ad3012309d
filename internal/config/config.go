package config

import "os"

type Config struct {
	Addr     string
	RedisURL string
	// Admin delete authorization. Either the plaintext secret or a bcrypt
	// hash of it; the hash wins when both are set.
	AdminPassword       string
	AdminPasswordBcrypt string
	// Gemini text generation
	GeminiAPIKey string
	GeminiModel  string
	// Meilisearch - empty by default, search disabled if not configured
	MeiliURL       string
	MeiliMasterKey string
	CORSOrigin     string
	// Settings for programs embedding the client package
	ClientAPIURL  string
	ClientStateDB string
}

// Load reads configuration from the environment. Store credentials and the
// admin secret have no defaults on purpose: their absence must surface as a
// configuration error on the operations that need them, not be papered over
// by a dev fallback.
func Load() Config {
	return Config{
		Addr:                getenv("API_ADDR", ":8787"),
		RedisURL:            getenv("REDIS_URL", ""),
		AdminPassword:       getenv("ADMIN_PASSWORD", ""),
		AdminPasswordBcrypt: getenv("ADMIN_PASSWORD_BCRYPT", ""),
		GeminiAPIKey:        getenv("GEMINI_API_KEY", ""),
		GeminiModel:         getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		MeiliURL:            getenv("MEILI_URL", ""),
		MeiliMasterKey:      getenv("MEILI_MASTER_KEY", ""),
		CORSOrigin:          getenv("LAVORO_CORS_ORIGIN", "*"),
		ClientAPIURL:        getenv("LAVORO_API_URL", "http://localhost:8787"),
		ClientStateDB:       getenv("LAVORO_STATE_DB", "lavoro-state.db"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
