package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Uploads Uploads `yaml:"uploads"`
}

type Server struct {
	Addr           string `yaml:"addr"`
	PostgresDsn    string `yaml:"postgresDsn"`
	RedisAddr      string `yaml:"redisAddr"`
	RedisDB        int    `yaml:"redisDB"`
	MemcachedAddr  string `yaml:"memcachedAddr"`
	BlobEndpoint   string `yaml:"blobEndpoint"`
	BlobToken      string `yaml:"blobToken"`
	AdminTokenHash string `yaml:"adminTokenHash"`
	EnableTrace    bool   `yaml:"enableTrace"`
	TraceEndpoint  string `yaml:"traceEndpoint"`
}

type Uploads struct {
	UploadTimeoutMs  int `yaml:"uploadTimeoutMs"`
	PersistTimeoutMs int `yaml:"persistTimeoutMs"`
	DebounceMs       int `yaml:"debounceMs"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}
	if config.Uploads.UploadTimeoutMs == 0 {
		config.Uploads.UploadTimeoutMs = 30000
	}
	if config.Uploads.PersistTimeoutMs == 0 {
		config.Uploads.PersistTimeoutMs = 5000
	}
	if config.Uploads.DebounceMs == 0 {
		config.Uploads.DebounceMs = 500
	}

	return config, nil
}

// UploadTimeout returns the per-file blob transfer bound.
func (u Uploads) UploadTimeout() time.Duration {
	return time.Duration(u.UploadTimeoutMs) * time.Millisecond
}

// PersistTimeout returns the metadata-persist bound. Kept shorter than
// the transfer bound: persisting is a single row write.
func (u Uploads) PersistTimeout() time.Duration {
	return time.Duration(u.PersistTimeoutMs) * time.Millisecond
}

// DebounceWindow returns the trailing-edge reorder debounce window.
func (u Uploads) DebounceWindow() time.Duration {
	return time.Duration(u.DebounceMs) * time.Millisecond
}
