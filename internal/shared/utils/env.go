package utils

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of key or fallback when it is unset or empty
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvInt parses key as an int, returning fallback on absence or error
func GetEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

// GetEnvBool reports whether key is set to "true"
func GetEnvBool(key string, fallback bool) bool {
	value := GetEnv(key, "")
	if value == "" {
		return fallback
	}
	return value == "true"
}

// GetEnvSeconds parses key as a whole number of seconds
func GetEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(GetEnvInt(key, fallback)) * time.Second
}
