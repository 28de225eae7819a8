package api

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadObjectDataFallsBackToDefaultWhenSeedFileUnset(t *testing.T) {
	reg := loadObjectData("")
	if _, err := reg.Get("tank"); err != nil {
		t.Fatalf("expected the default registry's tank type, got error: %v", err)
	}
}

func TestLoadObjectDataFallsBackOnMissingFile(t *testing.T) {
	reg := loadObjectData(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if _, err := reg.Get("tank"); err != nil {
		t.Fatalf("expected a fallback to the default registry, got error: %v", err)
	}
}

func TestLoadObjectDataReadsSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.yaml")
	yaml := `
units:
  - type: scout
    width: 20
    height: 20
    max_speed: 400
    max_acceleration: 400
    max_deceleration: 600
    rotate_speed: 3.14
    turret_range: 300
    turret_rotate_speed: 3.14
    projectile_speed: 500
    projectile_damage: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing seed file: %v", err)
	}

	reg := loadObjectData(path)
	d, err := reg.Get("scout")
	if err != nil {
		t.Fatalf("expected the seed file's scout type to be registered: %v", err)
	}
	if d.MaxSpeed != 400 {
		t.Errorf("expected MaxSpeed 400, got %v", d.MaxSpeed)
	}
}
