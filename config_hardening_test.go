package authgate

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.Secret = nil }, wantErr: "JWT_SECRET"},
		{name: "unknown method", mutate: func(c *Config) { c.JWT.SigningMethod = "rs256" }, wantErr: "unsupported"},
		{name: "ed25519 without keys", mutate: func(c *Config) { c.JWT.SigningMethod = "ed25519" }, wantErr: "JWT_PRIVATE_KEY"},
		{name: "zero access ttl", mutate: func(c *Config) { c.JWT.AccessTTL = 0 }, wantErr: "access TTL"},
		{name: "access not shorter", mutate: func(c *Config) { c.JWT.AccessTTL = c.JWT.RefreshTTL }, wantErr: "shorter"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "Invalid port"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: "store driver"},
		{name: "audit buffer", mutate: func(c *Config) { c.Audit.BufferSize = 0 }, wantErr: "audit buffer"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log level"},
		{name: "refresh ttl negative", mutate: func(c *Config) { c.JWT.RefreshTTL = -time.Second }, wantErr: "refresh TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigValidateProduction(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = EnvProduction
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "persistent store") {
		t.Fatalf("expected memory store rejection, got %v", err)
	}

	cfg.Store.Driver = StoreSQLite
	cfg.JWT.Secret = []byte("short")
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("expected weak secret rejection, got %v", err)
	}

	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
