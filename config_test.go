package webproxy

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yaml")
	content := "provider: sqlite\ndefaultMaxAge: 120\ndialTimeout: 3\nresponseTimeout: 30\n"
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	fileConfig, err := GetConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if fileConfig.Provider != "sqlite" {
		t.Fatalf("provider is %q", fileConfig.Provider)
	}

	var config Config
	fileConfig.Apply(&config)
	if config.DefaultMaxAge != 2*time.Minute {
		t.Fatalf("default max age is %s", config.DefaultMaxAge)
	}
	if config.DialTimeout != 3*time.Second {
		t.Fatalf("dial timeout is %s", config.DialTimeout)
	}
	if config.ResponseTimeout != 30*time.Second {
		t.Fatalf("response timeout is %s", config.ResponseTimeout)
	}
}

func TestGetConfigMissingFile(t *testing.T) {
	if _, err := GetConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestApplyKeepsExistingValues(t *testing.T) {
	config := Config{DefaultMaxAge: time.Minute}
	FileConfig{}.Apply(&config)
	if config.DefaultMaxAge != time.Minute {
		t.Fatalf("default max age is %s", config.DefaultMaxAge)
	}
}
