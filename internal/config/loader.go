package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadFromEnv reads an optional .env file, then the process environment.
// Variables already set in the environment win over the file.
func LoadFromEnv() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return Load(FromEnviron())
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}
