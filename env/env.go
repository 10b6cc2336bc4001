package env

import (
	"os"
	"strconv"
	"time"
)

var (
	Port          = getEnv("HTTP_PORT", "8080")
	APIKey        = getEnv("API_KEY", "")
	MongoURI      = getEnv("MONGO_URI", "mongodb://localhost:27017")
	MongoDatabase = getEnv("MONGO_DATABASE", "analytics")
	DruidURL      = getEnv("DRUID_URL", "")
	DruidUsername = getEnv("DRUID_USERNAME", "")
	DruidPassword = getEnv("DRUID_PASSWORD", "")
	DruidTimeout  = getEnvDuration("DRUID_TIMEOUT", 30*time.Second)
	DatasetsFile  = getEnv("DATASETS_FILE", "datasets.yaml")
	BatchSize     = getEnvInt("BATCH_SIZE", 1000)
	FlushInterval = getEnvDuration("FLUSH_INTERVAL", 5*time.Second)
	QueueSize     = getEnvInt("QUEUE_SIZE", 100000)
)

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
