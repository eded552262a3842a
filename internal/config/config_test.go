package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"MAX_UPLOAD_MB", "SIGNAL_TIMEOUT_SECONDS", "ELA_WEIGHT", "API_PORT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.MaxUploadMB != 16 {
		t.Fatalf("MaxUploadMB = %d, want 16", cfg.MaxUploadMB)
	}
	if cfg.SignalTimeoutSeconds != 15 {
		t.Fatalf("SignalTimeoutSeconds = %d, want 15", cfg.SignalTimeoutSeconds)
	}
	if cfg.ELAWeight != 0.4 {
		t.Fatalf("ELAWeight = %v, want 0.4", cfg.ELAWeight)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("APIPort = %q, want 8080", cfg.APIPort)
	}
}

func TestLoadOverridesAndBadValuesFallBack(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "64")
	t.Setenv("SIGNAL_TIMEOUT_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.MaxUploadMB != 64 {
		t.Fatalf("MaxUploadMB = %d, want 64", cfg.MaxUploadMB)
	}
	if cfg.SignalTimeoutSeconds != 15 {
		t.Fatalf("SignalTimeoutSeconds = %d, want the fallback 15", cfg.SignalTimeoutSeconds)
	}
}

func TestAnalysisAppliesOverrides(t *testing.T) {
	t.Setenv("SIGNAL_TIMEOUT_SECONDS", "5")
	t.Setenv("ELA_QUALITY", "90")

	analysis := Load().Analysis()
	if analysis.SignalTimeout != 5*time.Second {
		t.Fatalf("SignalTimeout = %v, want 5s", analysis.SignalTimeout)
	}
	if analysis.ELAQuality != 90 {
		t.Fatalf("ELAQuality = %d, want 90", analysis.ELAQuality)
	}
}
