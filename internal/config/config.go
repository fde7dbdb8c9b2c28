package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/opencode-ai/hostbridge/pkg/types"
)

// Defaults applied by Load before any source is merged.
const (
	DefaultHostURL           = "ws://127.0.0.1:7777/bridge"
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultServerPort        = 7777
)

// configNames are the file names looked up in every config directory, in
// load order.
var configNames = []string{"hostbridge.json", "hostbridge.jsonc", "hostbridge.yaml", "hostbridge.yml"}

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// Default returns the built-in configuration.
func Default() *types.Config {
	pretty := false
	cors := true
	return &types.Config{
		Log: &types.LogConfig{Level: "INFO", Pretty: &pretty},
		Host: &types.HostConfig{
			URL:               DefaultHostURL,
			ReconnectAttempts: DefaultReconnectAttempts,
			ReconnectDelay:    types.Duration(DefaultReconnectDelay),
		},
		Request: &types.RequestConfig{Timeout: types.Duration(DefaultRequestTimeout)},
		Server:  &types.ServerConfig{Port: DefaultServerPort, CORS: &cors},
		Storage: &types.StorageConfig{Path: GetPaths().StoragePath()},
	}
}

// Load loads configuration from multiple sources (priority order):
// 1. Built-in defaults
// 2. Global config (~/.config/hostbridge/)
// 3. Project config (directory and directory/.hostbridge/)
// 4. HOSTBRIDGE_CONFIG file
// 5. HOSTBRIDGE_CONFIG_CONTENT inline JSON
// 6. Environment variables
//
// Missing files are skipped. A file that exists but cannot be parsed is an
// error.
func Load(directory string) (*types.Config, error) {
	config := Default()

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string) error {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		if loaded[absPath] {
			return nil
		}
		if err := loadConfigFile(path, config); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		loaded[absPath] = true
		return nil
	}

	dirs := []string{GetPaths().Config}
	if directory != "" {
		dirs = append(dirs, directory, filepath.Join(directory, ".hostbridge"))
	}
	for _, dir := range dirs {
		for _, name := range configNames {
			if err := loadOnce(filepath.Join(dir, name)); err != nil {
				return nil, err
			}
		}
	}

	if configPath := os.Getenv("HOSTBRIDGE_CONFIG"); configPath != "" {
		if err := loadConfigFile(configPath, config); err != nil {
			return nil, fmt.Errorf("HOSTBRIDGE_CONFIG: %w", err)
		}
	}

	if configContent := os.Getenv("HOSTBRIDGE_CONFIG_CONTENT"); configContent != "" {
		var inline types.Config
		data := interpolate(jsonc.ToJSON([]byte(configContent)), ".")
		if err := json.Unmarshal(data, &inline); err != nil {
			return nil, fmt.Errorf("HOSTBRIDGE_CONFIG_CONTENT: %w", err)
		}
		mergeConfig(config, &inline)
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFile loads a single file on top of the built-in defaults.
func LoadFile(path string) (*types.Config, error) {
	config := Default()
	if err := loadConfigFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
// The format follows the extension: .yaml/.yml are YAML, everything else is
// JSON with comments allowed.
func loadConfigFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = interpolate(data, filepath.Dir(path))

	var fileConfig types.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &fileConfig); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		// Escape for a JSON string; secrets files usually end with a newline.
		escaped := strings.TrimRight(string(content), "\r\n")
		escaped = strings.ReplaceAll(escaped, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")
		return escaped
	})

	return []byte(str)
}

// mergeConfig merges source config into target. Zero values in source leave
// target untouched.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}

	if s := source.Log; s != nil {
		if target.Log == nil {
			target.Log = &types.LogConfig{}
		}
		if s.Level != "" {
			target.Log.Level = s.Level
		}
		if s.Pretty != nil {
			target.Log.Pretty = s.Pretty
		}
		if s.Dir != "" {
			target.Log.Dir = s.Dir
		}
	}

	if s := source.Host; s != nil {
		if target.Host == nil {
			target.Host = &types.HostConfig{}
		}
		if s.URL != "" {
			target.Host.URL = s.URL
		}
		if s.ReconnectAttempts != 0 {
			target.Host.ReconnectAttempts = s.ReconnectAttempts
		}
		if s.ReconnectDelay != 0 {
			target.Host.ReconnectDelay = s.ReconnectDelay
		}
	}

	if s := source.Request; s != nil {
		if target.Request == nil {
			target.Request = &types.RequestConfig{}
		}
		if s.Timeout != 0 {
			target.Request.Timeout = s.Timeout
		}
	}

	if s := source.Server; s != nil {
		if target.Server == nil {
			target.Server = &types.ServerConfig{}
		}
		if s.Port != 0 {
			target.Server.Port = s.Port
		}
		if s.CORS != nil {
			target.Server.CORS = s.CORS
		}
	}

	if s := source.Storage; s != nil {
		if target.Storage == nil {
			target.Storage = &types.StorageConfig{}
		}
		if s.Path != "" {
			target.Storage.Path = s.Path
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) error {
	if level := os.Getenv("HOSTBRIDGE_LOG_LEVEL"); level != "" {
		mergeConfig(config, &types.Config{Log: &types.LogConfig{Level: level}})
	}

	if url := os.Getenv("HOSTBRIDGE_HOST_URL"); url != "" {
		mergeConfig(config, &types.Config{Host: &types.HostConfig{URL: url}})
	}

	if raw := os.Getenv("HOSTBRIDGE_REQUEST_TIMEOUT"); raw != "" {
		var d types.Duration
		if err := json.Unmarshal([]byte(strconv.Quote(raw)), &d); err != nil {
			return fmt.Errorf("HOSTBRIDGE_REQUEST_TIMEOUT: %w", err)
		}
		mergeConfig(config, &types.Config{Request: &types.RequestConfig{Timeout: d}})
	}

	if raw := os.Getenv("HOSTBRIDGE_SERVER_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("HOSTBRIDGE_SERVER_PORT: %w", err)
		}
		mergeConfig(config, &types.Config{Server: &types.ServerConfig{Port: port}})
	}

	return nil
}

// Save saves the configuration to a file, as YAML when the extension asks
// for it and as indented JSON otherwise.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
