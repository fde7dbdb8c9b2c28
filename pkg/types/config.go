package types

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the hostbridge configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	Log     *LogConfig     `json:"log,omitempty" yaml:"log,omitempty"`
	Host    *HostConfig    `json:"host,omitempty" yaml:"host,omitempty"`
	Request *RequestConfig `json:"request,omitempty" yaml:"request,omitempty"`
	Server  *ServerConfig  `json:"server,omitempty" yaml:"server,omitempty"`
	Storage *StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"` // DEBUG|INFO|WARN|ERROR
	Pretty *bool  `json:"pretty,omitempty" yaml:"pretty,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"` // enables file logging
}

// HostConfig configures the websocket connection to the host.
type HostConfig struct {
	URL               string   `json:"url,omitempty" yaml:"url,omitempty"`
	ReconnectAttempts int      `json:"reconnectAttempts,omitempty" yaml:"reconnectAttempts,omitempty"`
	ReconnectDelay    Duration `json:"reconnectDelay,omitempty" yaml:"reconnectDelay,omitempty"`
}

// RequestConfig configures the request engine.
type RequestConfig struct {
	// Timeout is applied to requests that do not set their own.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ServerConfig configures the host emulator server.
type ServerConfig struct {
	Port int   `json:"port,omitempty" yaml:"port,omitempty"`
	CORS *bool `json:"cors,omitempty" yaml:"cors,omitempty"`
}

// StorageConfig configures where the host emulator persists values.
type StorageConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Duration is a time.Duration encoded as a Go duration string ("1s", "250ms").
// Plain numbers are read as milliseconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) set(raw any) error {
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v) * time.Millisecond)
	case int:
		*d = Duration(time.Duration(v) * time.Millisecond)
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration %v", raw)
	}
	return nil
}
