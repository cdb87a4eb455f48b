package env

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	mu sync.RWMutex
	v  = newViper()
)

func newViper() *viper.Viper {
	nv := viper.New()
	nv.AutomaticEnv()
	return nv
}

// Load reads an optional config file (yaml, json, toml or env). Keys in the
// file use the same names as the environment variables; the environment
// always wins over the file.
func Load(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	nv := newViper()
	nv.SetConfigFile(path)
	if err := nv.ReadInConfig(); err != nil {
		return err
	}
	mu.Lock()
	v = nv
	mu.Unlock()
	return nil
}

func lookup(key string) string {
	mu.RLock()
	defer mu.RUnlock()
	return strings.TrimSpace(v.GetString(key))
}

func String(key, fallback string) string {
	s := lookup(key)
	if s == "" {
		return fallback
	}
	return s
}

func Int(key string, fallback int) int {
	s := lookup(key)
	if s == "" {
		return fallback
	}
	mu.RLock()
	n := v.GetInt(key)
	mu.RUnlock()
	if n <= 0 {
		return fallback
	}
	return n
}

func Bool(key string, fallback bool) bool {
	s := strings.ToLower(lookup(key))
	switch s {
	case "1", "t", "true", "yes", "y", "on":
		return true
	case "0", "f", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

// Duration accepts Go duration strings ("1500ms", "2s").
func Duration(key string, fallback time.Duration) time.Duration {
	s := lookup(key)
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func CSV(key string, fallback []string) []string {
	raw := lookup(key)
	if raw == "" {
		return append([]string(nil), fallback...)
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	if len(result) == 0 {
		return append([]string(nil), fallback...)
	}
	return result
}
