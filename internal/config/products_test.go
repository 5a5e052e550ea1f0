package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeProduct(t *testing.T, dir, name string, p ProductConfig) {
	t.Helper()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal product: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("failed to write product: %v", err)
	}
}

func testProduct(id string) ProductConfig {
	return ProductConfig{
		ID:            id,
		Title:         "Test Product",
		ShortName:     "TEST_L2",
		Version:       "V01",
		ValueVariable: "product/value",
		ValueLabel:    "VALUE_TEST",
		Plot:          PlotRange{YMin: -1, YMax: 1},
		Extent: Extent{
			Spatial:  SpatialExtent{BBox: [][]float64{{-180, -90, 180, 90}}},
			Temporal: TemporalExtent{Interval: [][]*string{{strptr("2020-01-01T00:00:00Z"), nil}}},
		},
	}
}

func TestLoadProducts(t *testing.T) {
	dir := t.TempDir()
	writeProduct(t, dir, "b.json", testProduct("product-b"))
	writeProduct(t, dir, "a.JSON", testProduct("product-a"))
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	registry, err := LoadProducts(dir)
	if err != nil {
		t.Fatalf("LoadProducts() failed: %v", err)
	}

	if registry.Count() != 2 {
		t.Errorf("expected 2 products, got %d", registry.Count())
	}

	if got := registry.IDs(); !reflect.DeepEqual(got, []string{"product-a", "product-b"}) {
		t.Errorf("IDs() = %v", got)
	}

	p := registry.Get("product-a")
	if p == nil {
		t.Fatal("product not found")
	}
	if p.Extent.Temporal.Interval[0][1] != nil {
		t.Error("expected open-ended interval")
	}
}

func TestLoadProductsErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		if _, err := LoadProducts("/nonexistent/directory"); err == nil {
			t.Error("expected error for nonexistent directory")
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		if _, err := LoadProducts(t.TempDir()); err == nil {
			t.Error("expected error for empty directory")
		}
	})

	t.Run("duplicate IDs", func(t *testing.T) {
		dir := t.TempDir()
		writeProduct(t, dir, "one.json", testProduct("dup"))
		writeProduct(t, dir, "two.json", testProduct("dup"))
		if _, err := LoadProducts(dir); err == nil {
			t.Error("expected error for duplicate product IDs")
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadProducts(dir); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}

func TestValidateProduct(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *ProductConfig)
		wantError bool
	}{
		{name: "valid", mutate: func(p *ProductConfig) {}},
		{name: "missing ID", mutate: func(p *ProductConfig) { p.ID = "" }, wantError: true},
		{name: "missing short name", mutate: func(p *ProductConfig) { p.ShortName = "" }, wantError: true},
		{name: "missing value variable", mutate: func(p *ProductConfig) { p.ValueVariable = "" }, wantError: true},
		{name: "missing label", mutate: func(p *ProductConfig) { p.ValueLabel = "" }, wantError: true},
		{name: "inverted plot range", mutate: func(p *ProductConfig) { p.Plot = PlotRange{YMin: 3, YMax: -3} }, wantError: true},
		{name: "short bbox", mutate: func(p *ProductConfig) { p.Extent.Spatial.BBox = [][]float64{{1, 2}} }, wantError: true},
		{name: "bad interval", mutate: func(p *ProductConfig) { p.Extent.Temporal.Interval = [][]*string{{nil}} }, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProduct("x")
			tt.mutate(&p)
			err := validateProduct(&p)
			if (err != nil) != tt.wantError {
				t.Errorf("validateProduct() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestDefaultProducts(t *testing.T) {
	registry := DefaultProducts()

	if registry.Count() != 2 {
		t.Fatalf("expected 2 built-in products, got %d", registry.Count())
	}

	uvai := registry.Get("tempo-uvai")
	if uvai == nil {
		t.Fatal("tempo-uvai not registered")
	}
	if uvai.ShortName != "TEMPO_O3TOT_L2" || uvai.ValueLabel != "UVAI_TEMPO" || !uvai.GeoFillOverride {
		t.Errorf("unexpected tempo-uvai definition: %+v", uvai)
	}
	if uvai.Plot.YMin != -3 || uvai.Plot.YMax != 3 {
		t.Errorf("unexpected plot range: %+v", uvai.Plot)
	}

	if got := registry.FindByShortName("TEMPO_NO2_L2"); len(got) != 1 || got[0].ID != "tempo-no2" {
		t.Errorf("FindByShortName() = %v", got)
	}

	if registry.Has("missing") {
		t.Error("Has() reported a missing product")
	}
}

func TestResolveProducts(t *testing.T) {
	registry, err := ResolveProducts("")
	if err != nil {
		t.Fatalf("ResolveProducts() failed: %v", err)
	}
	if !registry.Has("tempo-uvai") {
		t.Error("expected built-in products")
	}

	dir := t.TempDir()
	writeProduct(t, dir, "custom.json", testProduct("custom"))
	registry, err = ResolveProducts(dir)
	if err != nil {
		t.Fatalf("ResolveProducts(dir) failed: %v", err)
	}
	if !reflect.DeepEqual(registry.IDs(), []string{"custom"}) {
		t.Errorf("IDs() = %v", registry.IDs())
	}
}

func TestProductRegistryAdd(t *testing.T) {
	r := NewProductRegistry()
	if err := r.Add(nil); err == nil {
		t.Error("expected error adding nil product")
	}
	p := testProduct("p")
	if err := r.Add(&p); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := r.Add(&p); err == nil {
		t.Error("expected error adding duplicate")
	}
	if len(r.All()) != 1 {
		t.Errorf("expected 1 product, got %d", len(r.All()))
	}
}
