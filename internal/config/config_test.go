package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Push:  PushConfig{Endpoint: "https://fcm.example/send", ServerKey: "key"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_AcceptsMinimalLocalConfig(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.HistoryEnabled() {
		t.Fatalf("history must be disabled without DB_HOST")
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected access ttl default, got %v", c.Auth.AccessTokenTTL)
	}
	if c.Push.SendTimeout != 5*time.Second {
		t.Fatalf("expected push timeout default, got %v", c.Push.SendTimeout)
	}
}

func TestValidate_RequiresPushSettings(t *testing.T) {
	c := validConfig()
	c.Push.Endpoint = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing PUSH_ENDPOINT")
	}

	c = validConfig()
	c.Push.ServerKey = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing PUSH_SERVER_KEY")
	}
}

func TestValidate_HistoryDBRequiresFields(t *testing.T) {
	c := validConfig()
	c.DB.Host = "localhost"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error: DB_HOST set without port/user/name")
	}

	c = validConfig()
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "callrelay"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default outside production, got %q", c.DB.SSLMode)
	}
	if !c.HistoryEnabled() {
		t.Fatalf("expected history enabled")
	}
}

func TestValidate_ProductionRequiresExplicitSSLModeAndIssuer(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.DB = DBConfig{Host: "db", Port: 5432, User: "postgres", Password: "x", Name: "callrelay"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE/JWT_ISSUER/JWT_AUDIENCE")
	}

	c.DB.SSLMode = "verify-full"
	c.Auth.JWTIssuer = "call-relay"
	c.Auth.JWTAudience = "call-relay-clients"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
