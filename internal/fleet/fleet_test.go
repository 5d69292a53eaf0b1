package fleet

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFleet(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFleet(t, `
distance_scale_km: 5.0
assets:
  - name: ISS (ZARYA)
    norad_id: 25544
  - name: STARLINK-1007
    norad_id: 44713
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.DistanceScaleKM != 5.0 {
		t.Errorf("DistanceScaleKM = %v, want 5.0", c.DistanceScaleKM)
	}
	if len(c.Assets) != 2 {
		t.Fatalf("got %d assets, want 2", len(c.Assets))
	}
	if c.Assets[0].Name != "ISS (ZARYA)" || c.Assets[0].NoradID != 25544 {
		t.Errorf("unexpected first asset: %+v", c.Assets[0])
	}
	if ids := c.NoradIDs(); len(ids) != 2 || ids[0] != 25544 || ids[1] != 44713 {
		t.Errorf("NoradIDs = %v", ids)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty assets", "assets: []\n"},
		{"missing name", "assets:\n  - norad_id: 25544\n"},
		{"bad norad", "assets:\n  - name: X\n    norad_id: 0\n"},
		{"duplicate norad", "assets:\n  - name: A\n    norad_id: 25544\n  - name: B\n    norad_id: 25544\n"},
		{"negative scale", "distance_scale_km: -1\nassets:\n  - name: X\n    norad_id: 25544\n"},
		{"not yaml", "{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeFleet(t, tc.body)); err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}
}
