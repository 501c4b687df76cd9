package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Search.MaxQueryLength != 500 {
		t.Errorf("MaxQueryLength = %d, want 500", cfg.Search.MaxQueryLength)
	}
	if cfg.Search.OnlineTimeout.Duration != 3*time.Second {
		t.Errorf("OnlineTimeout = %v, want 3s", cfg.Search.OnlineTimeout)
	}
	if cfg.Resolver.Threshold != 0.6 {
		t.Errorf("Threshold = %v, want 0.6", cfg.Resolver.Threshold)
	}
	if cfg.Cache.Backend != CacheMemory {
		t.Errorf("Cache.Backend = %q, want %q", cfg.Cache.Backend, CacheMemory)
	}
	if cfg.Online.Provider != "ifixit" {
		t.Errorf("Online.Provider = %q, want ifixit", cfg.Online.Provider)
	}
	if cfg.Data.DBPath != DefaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.Data.DBPath, DefaultDBPath)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_IFIXIT_KEY", "expanded-key")

	path := writeConfig(t, `
debug = true

[search]
max_query_length = 200
default_language = "ja"
online_timeout = "1500ms"

[resolver]
threshold = 0.7
max_ngram = 3

[cache]
backend = "sqlite"
ttl = "30m"
size = 50

[online]
provider = "fake"
api_key = "${TEST_IFIXIT_KEY}"
rate_per_hour = 10

[ranker]
device_weight = 0.6
quality_weight = 0.1
keyword_weight = 0.3

[data]
db_path = "/tmp/repairsearch.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.Search.MaxQueryLength != 200 {
		t.Errorf("MaxQueryLength = %d, want 200", cfg.Search.MaxQueryLength)
	}
	if cfg.Search.DefaultLanguage != "ja" {
		t.Errorf("DefaultLanguage = %q, want ja", cfg.Search.DefaultLanguage)
	}
	if cfg.Search.OnlineTimeout.Duration != 1500*time.Millisecond {
		t.Errorf("OnlineTimeout = %v, want 1.5s", cfg.Search.OnlineTimeout)
	}
	if cfg.Resolver.MaxNgram != 3 {
		t.Errorf("MaxNgram = %d, want 3", cfg.Resolver.MaxNgram)
	}
	if cfg.Cache.Backend != CacheSQLite || cfg.Cache.TTL.Duration != 30*time.Minute {
		t.Errorf("Cache = %+v, want sqlite/30m", cfg.Cache)
	}
	if cfg.Online.APIKey != "expanded-key" {
		t.Errorf("APIKey = %q, want expanded-key", cfg.Online.APIKey)
	}
	if cfg.Online.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", cfg.Online.MaxRetries)
	}
	if cfg.Ranker.DeviceWeight != 0.6 {
		t.Errorf("DeviceWeight = %v, want 0.6", cfg.Ranker.DeviceWeight)
	}
	if cfg.Data.DBPath != "/tmp/repairsearch.db" {
		t.Errorf("DBPath = %q", cfg.Data.DBPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[online]
provider = "ifixit"
api_key = "from-file"
`)
	t.Setenv(EnvOnlineProvider, "NONE")
	t.Setenv(EnvIFixitAPIKey, "from-env")
	t.Setenv(EnvIFixitBaseURL, "http://localhost:9999")
	t.Setenv(EnvCacheBackend, "sqlite")
	t.Setenv(EnvDBPath, ":memory:")
	t.Setenv(EnvDebug, "1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Online.Provider != "none" {
		t.Errorf("Provider = %q, want none", cfg.Online.Provider)
	}
	if cfg.Online.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", cfg.Online.APIKey)
	}
	if cfg.Online.BaseURL != "http://localhost:9999" {
		t.Errorf("BaseURL = %q", cfg.Online.BaseURL)
	}
	if cfg.Cache.Backend != CacheSQLite {
		t.Errorf("Backend = %q, want sqlite", cfg.Cache.Backend)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}

	path, err = cfg.ResolveDBPath()
	if err != nil || path != ":memory:" {
		t.Errorf("ResolveDBPath() = %q, %v", path, err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, `
[cache]
size = 7
`)
	t.Setenv(EnvConfigPath, path)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Cache.Size != 7 {
		t.Errorf("Cache.Size = %d, want 7", cfg.Cache.Size)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		invalid bool
	}{
		{"bad toml", "[search\nmax_query_length = ", false},
		{"bad duration", "[cache]\nttl = \"forever\"", false},
		{"threshold above one", "[resolver]\nthreshold = 1.5", true},
		{"unknown backend", "[cache]\nbackend = \"redis\"", true},
		{"unknown provider", "[online]\nprovider = \"google\"", true},
		{"negative weight", "[ranker]\ndevice_weight = -1.0", true},
		{"zero weights", "[ranker]\ndevice_weight = 0.0\nquality_weight = 0.0\nkeyword_weight = 0.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if got := errors.Is(err, ErrInvalid); got != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalid) = %v, want %v (err: %v)", got, tt.invalid, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load(missing) error = nil, want error")
	}

	t.Setenv(EnvDebug, "maybe")
	if _, err := Load(""); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load with bad %s = %v, want ErrInvalid", EnvDebug, err)
	}
}

func TestResolveDBPath(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Data.DBPath = filepath.Join(dir, "nested", "repairsearch.db")

	path, err := cfg.ResolveDBPath()
	if err != nil {
		t.Fatalf("ResolveDBPath: %v", err)
	}
	if path != cfg.Data.DBPath {
		t.Errorf("path = %q, want %q", path, cfg.Data.DBPath)
	}
	if _, err := os.Stat(filepath.Join(dir, "nested")); err != nil {
		t.Errorf("parent directory not created: %v", err)
	}
}
