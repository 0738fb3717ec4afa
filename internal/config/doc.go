// Package config handles configuration loading, saving, and schema definition.
package config

import (
	"encoding/json"
	"time"
)

// Config is the top-level bridge configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	Serial        SerialConfig        `json:"serial"`
	Collaborators CollaboratorsConfig `json:"collaborators"`
	HTTP          HTTPConfig          `json:"http"`
	Redis         RedisConfig         `json:"redis"`
	Bus           BusConfig           `json:"bus"`
	ProfilesFile  string              `json:"profilesFile,omitempty"`
}

// SerialConfig holds settings for both serial connections.
type SerialConfig struct {
	Trigger           PortConfig `json:"trigger"`
	Display           PortConfig `json:"display"`
	ReconnectInterval Duration   `json:"reconnectInterval,omitempty"`
}

// PortConfig holds settings for one serial connection.
// An empty Port enables autodetection via device profiles.
type PortConfig struct {
	Port string `json:"port,omitempty"`
	Baud int    `json:"baud,omitempty"`
}

// CollaboratorsConfig holds the external service endpoints.
type CollaboratorsConfig struct {
	ApprovalURL    string   `json:"approvalUrl,omitempty"`
	PaymentURL     string   `json:"paymentUrl,omitempty"`
	ResolveTimeout Duration `json:"resolveTimeout,omitempty"` // full Evaluating+Submitting budget
	RetryAttempts  int      `json:"retryAttempts,omitempty"`
}

// HTTPConfig holds the operator HTTP API settings.
type HTTPConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// RedisConfig holds optional transaction history cache settings.
type RedisConfig struct {
	URL      string `json:"url,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Buffer int `json:"buffer,omitempty"` // per-subscriber buffer size
}

// Duration is a time.Duration that marshals as a string like "10s".
type Duration time.Duration

// MarshalJSON renders the duration in time.Duration string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON accepts either a duration string ("3s") or nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		v, err := time.ParseDuration(s[1 : len(s)-1])
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var ns int64
	if err := json.Unmarshal(data, &ns); err != nil {
		return err
	}
	*d = Duration(ns)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Serial: SerialConfig{
			Trigger:           PortConfig{Baud: 115200},
			Display:           PortConfig{Baud: 115200},
			ReconnectInterval: Duration(3 * time.Second),
		},
		Collaborators: CollaboratorsConfig{
			ApprovalURL:    "http://localhost:8002",
			PaymentURL:     "http://localhost:8000",
			ResolveTimeout: Duration(10 * time.Second),
			RetryAttempts:  3,
		},
		HTTP: HTTPConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Bus: BusConfig{
			Buffer: 64,
		},
	}
}
