package utils

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads an optional .env file from path and primes viper to
// resolve settings from the process environment.
func LoadConfig(path string) {
	if err := godotenv.Load(path + "/.env"); err != nil {
		logrus.Debugf("[CONFIG] No .env file loaded: %v", err)
	}

	viper.AutomaticEnv()
}
