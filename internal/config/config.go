package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
)

// EnvPrefix is the prefix of environment variables overriding the config file.
// Nested keys are separated by a double underscore, e.g. UPDATELOG_CACHE__DRIVER.
const EnvPrefix = "UPDATELOG_"

// Elasticsearch is the config of Elasticsearch
type Elasticsearch struct {
	Addresses []string `koanf:"addresses"` // A list of Elasticsearch nodes to use.
	Username  string   `koanf:"username"`  // Username for HTTP Basic Authentication.
	Password  string   `koanf:"password"`  // Password for HTTP Basic Authentication.
	Index     string   `koanf:"index"`     // Index holding one document per cache key.

	CloudID                string `koanf:"cloud_id"`                // Endpoint for the Elastic Service (https://elastic.co/cloud).
	APIKey                 string `koanf:"api_key"`                 // Base64-encoded token for authorization; if set, overrides username/password and service token.
	ServiceToken           string `koanf:"service_token"`           // Service token for authorization; if set, overrides username/password.
	CertificateFingerprint string `koanf:"certificate_fingerprint"` // SHA256 hex fingerprint given by Elasticsearch on first launch.
}

type metric struct {
	Enabled bool   `koanf:"enabled"` // Enablement of the metric exposure
	Bind    string `koanf:"bind"`    // Address of the http server
}

// Remote is the config of the contents API holding the log file.
type Remote struct {
	APIURL string `koanf:"api_url"` // Base URL of the API, without trailing slash.
	Path   string `koanf:"path"`    // Path of the log file inside the repository.
}

// Cache is the config of the local cache store.
type Cache struct {
	Driver        string        `koanf:"driver"` // memory, file, sqlite or elasticsearch
	Path          string        `koanf:"path"`   // Directory (file) or database file (sqlite).
	Elasticsearch Elasticsearch `koanf:"elasticsearch"`
}

type logging struct {
	Level string `koanf:"level"`
}

// Config represent config of updatelog.
type Config struct {
	GitHub  Remote  `koanf:"github"`
	Cache   Cache   `koanf:"cache"`
	Metrics metric  `koanf:"metrics"`
	Logging logging `koanf:"logging"`
}

var defaultConfig = Config{
	GitHub: Remote{
		APIURL: "https://api.github.com",
		Path:   "data/updateLogs.json",
	},
	Cache: Cache{
		Driver: "memory",
		Path:   ".updatelog",
		Elasticsearch: Elasticsearch{
			Addresses: []string{"http://127.0.0.1:9200"},
			Index:     "updatelog-cache",
		},
	},
	Metrics: metric{
		Enabled: false,
		Bind:    "0.0.0.0:9001",
	},
	Logging: logging{
		Level: "info",
	},
}

// Default returns a copy of the built-in configuration.
func Default() Config {
	c := defaultConfig
	c.Cache.Elasticsearch.Addresses = append([]string(nil), defaultConfig.Cache.Elasticsearch.Addresses...)
	return c
}

// Load builds the configuration from the defaults, the YAML file located in path
// (skipped when path is empty) and the UPDATELOG_ environment variables, in that order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load default config in the beginning
	err := k.Load(structs.Provider(Default(), "koanf"), nil)
	if err != nil {
		return nil, fmt.Errorf("error in loading the default config: %w", err)
	}

	// Load YAML config and merge into the previously loaded config.
	if path != "" {
		err = k.Load(file.Provider(path), yaml.Parser())
		if err != nil {
			return nil, fmt.Errorf("error in loading the config file: %w", err)
		}
	}

	err = k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("error in loading the environment variables: %w", err)
	}

	var c Config
	err = k.Unmarshal("", &c)
	if err != nil {
		return nil, fmt.Errorf("error in unmarshalling the config: %w", err)
	}

	return &c, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
