package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// redacted replaces secrets in Marshal output.
const redacted = "********"

// Defaults returns every setting with its default value, keyed by dotted path.
// Durations are strings so they round-trip through TOML unchanged.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":                 ":8080",
		"server.public_url":           "",
		"server.callback_path":        "/drive/notifications",
		"server.route_prefix":         "/drive",
		"drive.watch_folder_id":       "",
		"drive.parent_folder_id":      "",
		"drive.client_secret_file":    "client_secret.json",
		"drive.token_file":            "token.json",
		"drive.page_size":             100,
		"drive.requests_per_second":   8.0,
		"drive.burst":                 10,
		"catalog.path":                "folders.csv",
		"catalog.watch":               false,
		"router.confidence_threshold": 0.55,
		"router.catch_all_label":      "Misc",
		"classifier.api_key":          "",
		"classifier.base_url":         "",
		"classifier.model":            "gpt-4o-mini",
		"classifier.temperature":      0.15,
		"classifier.max_chars":        20000,
		"classifier.timeout":          "60s",
		"state.driver":                DriverSQLite,
		"state.dsn":                   "",
		"worker.queue_size":           1,
		"log.verbose":                 false,
	}
}

// WriteDefault writes a config file holding every default.
// It refuses to replace an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if path == "" {
		path = DefaultPath
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	data, err := toml.Marshal(nest(Defaults()))
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0600)
}

// Marshal renders the effective settings as TOML with secrets redacted.
func (c *Config) Marshal() ([]byte, error) {
	flat := flatten(c.settings, "")
	for key, value := range flat {
		if isSecret(key) && value != "" {
			flat[key] = redacted
		}
	}
	return toml.Marshal(nest(flat))
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, "api_key") || key == "state.dsn"
}

// flatten converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flatten(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)
	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for k, v := range flatten(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}
	return result
}

// nest is the inverse of flatten.
func nest(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		node := out
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return out
}
