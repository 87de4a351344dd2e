package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.HTTPAddr != ":8081" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8081")
	}
	if cfg.JWTSecret != DevJWTSecret {
		t.Errorf("JWTSecret = %q, want the development default", cfg.JWTSecret)
	}
	if cfg.JWTAlgorithm != "HS256" {
		t.Errorf("JWTAlgorithm = %q, want HS256", cfg.JWTAlgorithm)
	}
	if cfg.TokenTTL() != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.TokenTTL())
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.SessionStore != StoreMemory || cfg.UserStore != StoreMemory {
		t.Errorf("stores = %q/%q, want memory/memory", cfg.SessionStore, cfg.UserStore)
	}
	if cfg.ReapInterval() != 5*time.Minute {
		t.Errorf("ReapInterval = %v, want 5m", cfg.ReapInterval())
	}
	if cfg.Version != "dev" || cfg.ExportInterval() != 10*time.Second {
		t.Errorf("Version = %q, ExportInterval = %v, want dev and 10s", cfg.Version, cfg.ExportInterval())
	}
	if cfg.TelemetryKafkaTopic != "authledger-events" {
		t.Errorf("TelemetryKafkaTopic = %q", cfg.TelemetryKafkaTopic)
	}
	if cfg.UsesKeyPair() || cfg.NeedsDatabase() || cfg.IsProduction() {
		t.Error("defaults should use HMAC, no database and non-production")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":9090")
	os.Setenv("JWT_SECRET", "another-secret")
	os.Setenv("JWT_ALGORITHM", "HS512")
	os.Setenv("JWT_EXPIRATION_HOURS", "2")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("SESSION_STORE", "Redis")
	os.Setenv("REDIS_ADDR", "localhost:6379")
	os.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.JWTSecret != "another-secret" || cfg.JWTAlgorithm != "HS512" {
		t.Errorf("JWT = %q/%q", cfg.JWTSecret, cfg.JWTAlgorithm)
	}
	if cfg.TokenTTL() != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h", cfg.TokenTTL())
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.SessionStore != StoreRedis || cfg.RedisDB != 3 {
		t.Errorf("SessionStore = %q, RedisDB = %d", cfg.SessionStore, cfg.RedisDB)
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // Should default to 12
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"dev secret in production", map[string]string{"APP_ENV": "production"}, "JWT_SECRET must be changed"},
		{"empty secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET must be set"},
		{"unsupported algorithm", map[string]string{"JWT_ALGORITHM": "none"}, "JWT_ALGORITHM"},
		{"negative expiration", map[string]string{"JWT_EXPIRATION_HOURS": "-1"}, "JWT_EXPIRATION_HOURS"},
		{"half key pair", map[string]string{"JWT_PRIVATE_KEY": "key.pem"}, "must be set together"},
		{"unknown session store", map[string]string{"SESSION_STORE": "etcd"}, "SESSION_STORE"},
		{"redis user store", map[string]string{"USER_STORE": "redis"}, "USER_STORE"},
		{"postgres without dsn", map[string]string{"SESSION_STORE": "postgres"}, "DATABASE_URL"},
		{"redis without addr", map[string]string{"SESSION_STORE": "redis"}, "REDIS_ADDR"},
		{"empty grpc addr", map[string]string{"GRPC_ADDR": ""}, "GRPC_ADDR"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tc.env {
				os.Setenv(k, v)
			}
			cfg, err := Load()
			if err == nil {
				t.Fatal("Load should return error")
			}
			if cfg != nil {
				t.Error("Load should return nil config on error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestLoad_ProductionWithRealSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")
	os.Setenv("JWT_SECRET", "a-long-random-production-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction should be true")
	}
}

func TestLoad_KeyPairSkipsSecretCheck(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")
	os.Setenv("JWT_PRIVATE_KEY", "private.pem")
	os.Setenv("JWT_PUBLIC_KEY", "public.pem")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.UsesKeyPair() {
		t.Error("UsesKeyPair should be true")
	}
}

func TestReapInterval(t *testing.T) {
	testCases := []struct {
		value string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"0", 0},
		{"invalid", 5 * time.Minute},
		{"-1m", 5 * time.Minute},
	}
	for _, tc := range testCases {
		cfg := &Config{SessionReapInterval: tc.value}
		if got := cfg.ReapInterval(); got != tc.want {
			t.Errorf("ReapInterval(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestExportInterval(t *testing.T) {
	testCases := []struct {
		value string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"", 10 * time.Second},
		{"0", 10 * time.Second},
		{"soon", 10 * time.Second},
	}
	for _, tc := range testCases {
		cfg := &Config{OTLPExportInterval: tc.value}
		if got := cfg.ExportInterval(); got != tc.want {
			t.Errorf("ExportInterval(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestTelemetryKafkaBrokersList(t *testing.T) {
	var nilCfg *Config
	if nilCfg.TelemetryKafkaBrokersList() != nil {
		t.Error("nil config should return nil brokers")
	}
	cfg := &Config{TelemetryKafkaBrokers: " kafka-1:9092, ,kafka-2:9092 "}
	got := cfg.TelemetryKafkaBrokersList()
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Errorf("brokers = %v", got)
	}
}
