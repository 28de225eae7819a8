package objectdata

import "testing"

func TestRegistryGetUnknownTypeErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nonexistent"); err == nil {
		t.Fatal("expected an error for an unregistered type")
	}
}

func TestRegistryRegisterAndGetRoundTrips(t *testing.T) {
	r := NewRegistry()
	r.Register(Data{TypeName: "tank", MaxSpeed: 120})

	d, err := r.Get("tank")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.MaxSpeed != 120 {
		t.Errorf("expected MaxSpeed 120, got %v", d.MaxSpeed)
	}
}

func TestRegistryRegisterCopiesRatherThanAliases(t *testing.T) {
	r := NewRegistry()
	original := Data{TypeName: "tank", MaxSpeed: 120}
	r.Register(original)

	original.MaxSpeed = 999
	d, _ := r.Get("tank")
	if d.MaxSpeed != 120 {
		t.Errorf("expected the registry to hold a copy unaffected by later mutation of the source, got %v", d.MaxSpeed)
	}
}

func TestDefaultRegistryHasAtLeastOneType(t *testing.T) {
	r := DefaultRegistry()
	types := r.Types()
	if len(types) == 0 {
		t.Fatal("expected DefaultRegistry to seed at least one unit type")
	}
	for _, name := range types {
		d, err := r.Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		if len(d.FullPolygon) < 3 {
			t.Errorf("type %q: expected a valid polygon (>=3 points), got %d", name, len(d.FullPolygon))
		}
		if d.MaxSpeed <= 0 {
			t.Errorf("type %q: expected a positive MaxSpeed", name)
		}
	}
}

func TestRectPolygonReturnsFourCorners(t *testing.T) {
	pts := RectPolygon(10, 20)
	if len(pts) != 4 {
		t.Fatalf("expected 4 corners, got %d", len(pts))
	}
	if pts[0].X != -5 || pts[0].Y != -10 {
		t.Errorf("expected first corner (-5,-10), got (%v,%v)", pts[0].X, pts[0].Y)
	}
}
