package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/cropauth/internal/flagx"
	"github.com/dmitrijs2005/cropauth/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of a config file. Durations use
// timex.Duration, so "15m" and integer nanoseconds are both accepted.
// Only non-zero fields override the current Config.
type FileConfig struct {
	HTTPAddr           string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr           string         `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDSN        string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey          string         `json:"secret_key" yaml:"secret_key"`
	TokenValidity      timex.Duration `json:"token_validity" yaml:"token_validity"`
	SessionValidity    timex.Duration `json:"session_validity" yaml:"session_validity"`
	ResetTokenValidity timex.Duration `json:"reset_token_validity" yaml:"reset_token_validity"`
	LockoutThreshold   int            `json:"lockout_threshold" yaml:"lockout_threshold"`
	LockoutDuration    timex.Duration `json:"lockout_duration" yaml:"lockout_duration"`
	BcryptCost         int            `json:"bcrypt_cost" yaml:"bcrypt_cost"`
	StoreTimeout       timex.Duration `json:"store_timeout" yaml:"store_timeout"`
	UserCacheTTL       timex.Duration `json:"user_cache_ttl" yaml:"user_cache_ttl"`
	SharedCacheTTL     timex.Duration `json:"shared_cache_ttl" yaml:"shared_cache_ttl"`
	LogLevel           string         `json:"log_level" yaml:"log_level"`
	LogFormat          string         `json:"log_format" yaml:"log_format"`
}

// parseFile loads the file named by -c/-config, if any, and overlays it on
// config. The format follows the extension: .yaml/.yml use YAML, anything
// else JSON. Unreadable or malformed files panic.
func parseFile(config *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc, err := decodeFile(path, data)
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}

func decodeFile(path string, data []byte) (*FileConfig, error) {
	fc := &FileConfig{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, fc); err != nil {
			return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, fc); err != nil {
			return nil, fmt.Errorf("parse json config %s: %w", path, err)
		}
	}

	return fc, nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.GRPCAddr, fc.GRPCAddr)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)

	if fc.TokenValidity.Duration > 0 {
		c.TokenValidity = fc.TokenValidity.Duration
	}
	if fc.SessionValidity.Duration > 0 {
		c.SessionValidity = fc.SessionValidity.Duration
	}
	if fc.ResetTokenValidity.Duration > 0 {
		c.ResetTokenValidity = fc.ResetTokenValidity.Duration
	}
	if fc.LockoutThreshold > 0 {
		c.LockoutThreshold = fc.LockoutThreshold
	}
	if fc.LockoutDuration.Duration > 0 {
		c.LockoutDuration = fc.LockoutDuration.Duration
	}
	if fc.BcryptCost > 0 {
		c.BcryptCost = fc.BcryptCost
	}
	if fc.StoreTimeout.Duration > 0 {
		c.StoreTimeout = fc.StoreTimeout.Duration
	}
	if fc.UserCacheTTL.Duration > 0 {
		c.UserCacheTTL = fc.UserCacheTTL.Duration
	}
	if fc.SharedCacheTTL.Duration > 0 {
		c.SharedCacheTTL = fc.SharedCacheTTL.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
