package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_DatabaseURL(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.Name = "testdb"
	cfg.Database.Username = "testuser"
	cfg.Database.Password = "testpassword"

	url := cfg.DatabaseURL()
	expected := "host=localhost port=5432 dbname=testdb user=testuser password=testpassword sslmode="
	if url != expected {
		t.Errorf("DatabaseURL() want = %s, got = %s", expected, url)
	}
}

func TestConfig_Address(t *testing.T) {
	cfg := &Config{Hostname: "127.0.0.1", Port: 5001}
	if got := cfg.Address(); got != "127.0.0.1:5001" {
		t.Errorf("Address() want = 127.0.0.1:5001, got = %s", got)
	}
}

func TestConfig_QualifiedPath(t *testing.T) {
	cfg := &Config{configDir: "/etc/kisumi"}
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "kisumi.db", want: filepath.Join("/etc/kisumi", "kisumi.db")},
		{in: "/var/lib/kisumi.db", want: "/var/lib/kisumi.db"},
	}
	for _, tt := range tests {
		if got := cfg.QualifiedPath(tt.in); got != tt.want {
			t.Errorf("QualifiedPath(%q) want = %s, got = %s", tt.in, tt.want, got)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	contents := []byte("port: 6000\nbancho:\n  session_timeout: 30s\ndatabase:\n  host: db.internal\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0644); err != nil {
		t.Fatalf("error writing config: %v", err)
	}
	t.Setenv("KISUMI_DATABASE_NAME", "fromenv")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Port != 6000 {
		t.Errorf("Port want = 6000, got = %d", cfg.Port)
	}
	if cfg.Bancho.SessionTimeout != 30*time.Second {
		t.Errorf("SessionTimeout want = 30s, got = %v", cfg.Bancho.SessionTimeout)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host want = db.internal, got = %s", cfg.Database.Host)
	}
	if cfg.Database.Name != "fromenv" {
		t.Errorf("Database.Name want = fromenv, got = %s", cfg.Database.Name)
	}
	if cfg.Bancho.ProtocolVersion != 19 {
		t.Errorf("ProtocolVersion default want = 19, got = %d", cfg.Bancho.ProtocolVersion)
	}
	if cfg.Auth.JWTExpiry != 24*time.Hour {
		t.Errorf("JWTExpiry default want = 24h, got = %v", cfg.Auth.JWTExpiry)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Address() != "0.0.0.0:5001" {
		t.Errorf("Address() want = 0.0.0.0:5001, got = %s", cfg.Address())
	}
}
