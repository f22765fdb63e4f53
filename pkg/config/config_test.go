package config_test

import (
	"testing"

	"github.com/freenet-go/nodelog/pkg/config"
)

func TestNormalizeAppliesFloors(t *testing.T) {
	cfg := &config.Config{}
	cfg.Normalize()

	if cfg.LogDir == "" {
		t.Error("Normalize should fill in a default LogDir")
	}
	if cfg.MaxListCount <= 0 {
		t.Error("Normalize should fill in a positive MaxListCount")
	}
	if cfg.MaxListBytes <= 0 {
		t.Error("Normalize should fill in a positive MaxListBytes")
	}
	if cfg.FlushDelayMS <= 0 {
		t.Error("Normalize should fill in a positive FlushDelayMS")
	}
	if cfg.MaxArchiveBytes <= 0 {
		t.Error("Normalize should fill in a positive MaxArchiveBytes")
	}
	if cfg.ExporterPort <= 0 {
		t.Error("Normalize should fill in a positive ExporterPort")
	}
	if cfg.Interval == "" {
		t.Error("Normalize should fill in a default Interval")
	}
}

func TestNormalizePreservesExplicitValues(t *testing.T) {
	cfg := &config.Config{
		LogDir:          "/custom/logs",
		MaxListCount:    42,
		MaxListBytes:    4096,
		FlushDelayMS:    250,
		MaxArchiveBytes: 8192,
		ExporterPort:    9999,
		Interval:        "5MINUTE",
	}
	cfg.Normalize()

	if cfg.LogDir != "/custom/logs" {
		t.Errorf("LogDir = %q, want it untouched by Normalize", cfg.LogDir)
	}
	if cfg.MaxListCount != 42 {
		t.Errorf("MaxListCount = %d, want 42", cfg.MaxListCount)
	}
	if cfg.Interval != "5MINUTE" {
		t.Errorf("Interval = %q, want %q", cfg.Interval, "5MINUTE")
	}
}

func TestValidateDelegatesToIntervalGrammar(t *testing.T) {
	if err := config.Validate("HOUR"); err != nil {
		t.Errorf("Validate(%q) returned an error: %v", "HOUR", err)
	}
	if err := config.Validate("5MINUTE"); err != nil {
		t.Errorf("Validate(%q) returned an error: %v", "5MINUTE", err)
	}
	if err := config.Validate("NOT-AN-INTERVAL"); err == nil {
		t.Error("Validate with a malformed interval should return an error")
	}
}

func TestFlushDelay(t *testing.T) {
	cfg := &config.Config{FlushDelayMS: 1500}
	if got, want := cfg.FlushDelay().Milliseconds(), int64(1500); got != want {
		t.Errorf("FlushDelay() = %dms, want %dms", got, want)
	}
}
