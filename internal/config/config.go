package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress string
	JWTSecret     string
	JWTExpiration time.Duration

	// Backend selects the document store: "memory", "firestore" or "mongo".
	Backend string

	FirestoreProjectID      string
	FirebaseCredentialsJSON string

	MongoURI      string
	MongoDatabase string

	StorageBucket   string
	SafeSearch      bool
	MaxUploadSizeMB int64

	GeminiAPIKey string

	PresenceTTL time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddress:           getEnv("SERVER_ADDRESS", ":8080"),
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:           24 * time.Hour,
		Backend:                 getEnv("BACKEND", "memory"),
		FirestoreProjectID:      getEnv("FIRESTORE_PROJECT_ID", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "huddle"),
		StorageBucket:           getEnv("STORAGE_BUCKET", ""),
		SafeSearch:              getEnvBool("SAFESEARCH_ENABLED", true),
		MaxUploadSizeMB:         10,
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		PresenceTTL:             getEnvDuration("PRESENCE_TTL", 5*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
