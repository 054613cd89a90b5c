package config

import "strings"

// Store drivers
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

type StorageConfig interface {
	GetStoreDriver() string
	GetStorePath() string
	GetStorePassphrase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStoreDriver() string {
	return strings.ToLower(GetEnv("STORE_DRIVER", StoreFile))
}

func (Storage) GetStorePath() string {
	return GetEnv("STORE_PATH", "./data/credentials.json")
}

// GetStorePassphrase enables encryption of the credentials file when set.
func (Storage) GetStorePassphrase() string {
	return GetEnv("STORE_PASSPHRASE", "")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	return GetInt("REDIS_DB", 0)
}

func (Storage) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "authsession:")
}
