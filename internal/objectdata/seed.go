package objectdata

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// seedEntry is the on-disk YAML shape for one unit type, grounded on
// niceyeti-tabular's viper/yaml config-file idiom: plain structs with yaml
// tags, loaded once at startup and never touched again.
type seedEntry struct {
	TypeName          string  `yaml:"type"`
	Width             float64 `yaml:"width"`
	Height            float64 `yaml:"height"`
	MaxSpeed          float64 `yaml:"max_speed"`
	MaxAcceleration   float64 `yaml:"max_acceleration"`
	MaxDeceleration   float64 `yaml:"max_deceleration"`
	RotateSpeed       float64 `yaml:"rotate_speed"`
	TurretRange       float64 `yaml:"turret_range"`
	TurretRotateSpeed float64 `yaml:"turret_rotate_speed"`
	ProjectileSpeed   float64 `yaml:"projectile_speed"`
	ProjectileDamage  int     `yaml:"projectile_damage"`
}

type seedFile struct {
	Units []seedEntry `yaml:"units"`
}

// LoadFromFile parses a YAML unit-type table and registers each entry as a
// rectangular platform (full and obstacle polygons both equal to the unit's
// bounding box — sufficient for the default unit roster; callers needing
// more detailed polygons should call Register directly instead).
func LoadFromFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("objectdata: reading seed file: %w", err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("objectdata: parsing seed file: %w", err)
	}

	reg := NewRegistry()
	for _, e := range sf.Units {
		poly := RectPolygon(e.Width, e.Height)
		reg.Register(Data{
			TypeName:          e.TypeName,
			Width:             e.Width,
			Height:            e.Height,
			Origin:            Point{X: 0, Y: 0},
			FullPolygon:       poly,
			ObstaclePolygon:   poly,
			MaxSpeed:          e.MaxSpeed,
			MaxAcceleration:   e.MaxAcceleration,
			MaxDeceleration:   e.MaxDeceleration,
			RotateSpeed:       e.RotateSpeed,
			TurretRange:       e.TurretRange,
			TurretRotateSpeed: e.TurretRotateSpeed,
			ProjectileSpeed:   e.ProjectileSpeed,
			ProjectileDamage:  e.ProjectileDamage,
		})
	}
	return reg, nil
}

// DefaultRegistry returns a small built-in unit roster used when no seed
// file is configured, so the server has something to spawn out of the box.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(Data{
		TypeName:          "tank",
		Width:             40,
		Height:            40,
		Origin:            Point{X: 0, Y: 0},
		FullPolygon:       RectPolygon(40, 40),
		ObstaclePolygon:   RectPolygon(48, 48),
		MaxSpeed:          250,
		MaxAcceleration:   250,
		MaxDeceleration:   500,
		RotateSpeed:       math.Pi / 2,
		TurretRange:       600,
		TurretRotateSpeed: math.Pi,
		ProjectileSpeed:   600,
		ProjectileDamage:  10,
	})
	return reg
}
