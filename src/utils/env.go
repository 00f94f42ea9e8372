package utils

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const DEV_ENV_FILENAME = ".env.development"

// InitEnvironmentVariables loads the development .env file when present.
// Production deployments inject environment variables directly.
func InitEnvironmentVariables() error {
	if os.Getenv("ENV") == "production" {
		log.Info("Running in production environment")
		return nil
	}

	if err := godotenv.Load(DEV_ENV_FILENAME); err != nil {
		log.Infof("no %s file found, using process environment", DEV_ENV_FILENAME)
	}

	return nil
}
