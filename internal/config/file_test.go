package config

import (
	"path/filepath"
	"testing"
)

func TestLoadFileOverlayMissingPathIsNotAnError(t *testing.T) {
	overlay, err := loadFileOverlay(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error for missing file: %v", err)
	}
	if overlay != nil {
		t.Fatalf("expected nil overlay, got %+v", overlay)
	}
}

func TestLoadFileOverlayEmptyPathIsNotAnError(t *testing.T) {
	overlay, err := loadFileOverlay("")
	if err != nil || overlay != nil {
		t.Fatalf("expected (nil, nil) for empty path, got (%+v, %v)", overlay, err)
	}
}

func TestLoadFileOverlayRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := writeFile(path, "max_land: [this is not an int\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadFileOverlay(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestFileOverlayApplyOnlyOverridesPositiveFields(t *testing.T) {
	cfg := &Config{MaxLand: 10, FetchConcurrency: 2, APIPort: "8080", RateLimitRPS: 5}
	overlay := &fileOverlay{MaxLand: 20}
	overlay.apply(cfg)

	if cfg.MaxLand != 20 {
		t.Errorf("MaxLand=%d, want 20", cfg.MaxLand)
	}
	if cfg.FetchConcurrency != 2 {
		t.Errorf("FetchConcurrency=%d, want unchanged 2", cfg.FetchConcurrency)
	}
}
