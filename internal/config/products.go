package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ProductConfig describes a swath product that point time series can be
// extracted from. Product definitions are built in or loaded from JSON files.
type ProductConfig struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// ShortName and Version identify the CMR collection.
	ShortName string `json:"short_name"`
	Version   string `json:"version"`
	Provider  string `json:"provider,omitempty"`

	// ValueVariable and QualityVariable name the arrays picked out of a granule
	// document's variables, by their path in the source netCDF file.
	ValueVariable   string `json:"value_variable"`
	QualityVariable string `json:"quality_variable,omitempty"`

	// ValueLabel names the quantity in reports, e.g. UVAI_TEMPO.
	ValueLabel string `json:"value_label"`

	// GeoFillOverride substitutes the known out-of-swath geolocation sentinel
	// for the declared fill value.
	GeoFillOverride bool `json:"geo_fill_override"`

	// MaxQuality, when set, drops pixels whose quality flag exceeds it.
	MaxQuality *float64 `json:"max_quality,omitempty"`

	Plot   PlotRange `json:"plot"`
	Extent Extent    `json:"extent"`
}

// PlotRange is the fixed value axis of charts.
type PlotRange struct {
	Label string  `json:"label,omitempty"`
	YMin  float64 `json:"y_min"`
	YMax  float64 `json:"y_max"`
}

// Extent defines the spatial and temporal extent of a product.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

// SpatialExtent defines the bounding boxes of a product.
type SpatialExtent struct {
	BBox [][]float64 `json:"bbox"`
}

// TemporalExtent defines the time intervals of a product. A nil end is open.
type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
}

// ProductRegistry holds product configurations indexed by ID.
type ProductRegistry struct {
	products map[string]*ProductConfig
}

// NewProductRegistry creates a new empty product registry.
func NewProductRegistry() *ProductRegistry {
	return &ProductRegistry{
		products: make(map[string]*ProductConfig),
	}
}

func strptr(s string) *string { return &s }

// DefaultProducts returns the built-in TEMPO level 2 products.
func DefaultProducts() *ProductRegistry {
	tempoExtent := Extent{
		Spatial:  SpatialExtent{BBox: [][]float64{{-170, 10, -10, 80}}},
		Temporal: TemporalExtent{Interval: [][]*string{{strptr("2023-08-01T00:00:00Z"), nil}}},
	}

	r := NewProductRegistry()
	for _, p := range []*ProductConfig{
		{
			ID:              "tempo-uvai",
			Title:           "TEMPO UV Aerosol Index",
			Description:     "UV aerosol index from the TEMPO total ozone level 2 product",
			ShortName:       "TEMPO_O3TOT_L2",
			Version:         "V03",
			Provider:        "LARC_CLOUD",
			ValueVariable:   "product/uv_aerosol_index",
			QualityVariable: "product/quality_flag",
			ValueLabel:      "UVAI_TEMPO",
			GeoFillOverride: true,
			Plot:            PlotRange{Label: "UV Aerosol Index", YMin: -3, YMax: 3},
			Extent:          tempoExtent,
		},
		{
			ID:              "tempo-no2",
			Title:           "TEMPO Tropospheric NO2",
			Description:     "Tropospheric NO2 vertical column from the TEMPO NO2 level 2 product",
			ShortName:       "TEMPO_NO2_L2",
			Version:         "V03",
			Provider:        "LARC_CLOUD",
			ValueVariable:   "product/vertical_column_troposphere",
			QualityVariable: "product/main_data_quality_flag",
			ValueLabel:      "NO2_TROP_TEMPO",
			GeoFillOverride: true,
			Plot:            PlotRange{Label: "Tropospheric NO2 column (molecules/cm2)", YMin: 0, YMax: 3e16},
			Extent:          tempoExtent,
		},
	} {
		// built-in definitions are valid and unique
		_ = r.Add(p)
	}
	return r
}

// LoadProducts loads product definitions from JSON files in the specified directory.
// Only files with a .json extension are processed.
func LoadProducts(dir string) (*ProductRegistry, error) {
	registry := NewProductRegistry()

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access products directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("products path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read products directory %q: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		product, err := loadProductFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load product from %q: %w", path, err)
		}

		if err := registry.Add(product); err != nil {
			return nil, fmt.Errorf("failed to add product from %q: %w", path, err)
		}
		loaded++
	}

	if loaded == 0 {
		return nil, fmt.Errorf("no product files found in %q", dir)
	}

	return registry, nil
}

func loadProductFile(path string) (*ProductConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var product ProductConfig
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if err := validateProduct(&product); err != nil {
		return nil, fmt.Errorf("invalid product configuration: %w", err)
	}

	return &product, nil
}

func validateProduct(p *ProductConfig) error {
	if p.ID == "" {
		return fmt.Errorf("product ID is required")
	}

	if p.ShortName == "" {
		return fmt.Errorf("product short name is required")
	}

	if p.ValueVariable == "" {
		return fmt.Errorf("product value variable is required")
	}

	if p.ValueLabel == "" {
		return fmt.Errorf("product value label is required")
	}

	if p.Plot.YMin >= p.Plot.YMax {
		return fmt.Errorf("plot range is empty: [%g, %g]", p.Plot.YMin, p.Plot.YMax)
	}

	for i, bbox := range p.Extent.Spatial.BBox {
		if len(bbox) != 4 {
			return fmt.Errorf("bbox[%d] must have 4 values, got %d", i, len(bbox))
		}
	}

	for i, interval := range p.Extent.Temporal.Interval {
		if len(interval) != 2 {
			return fmt.Errorf("temporal interval[%d] must have exactly 2 values, got %d", i, len(interval))
		}
	}

	return nil
}

// Add registers a product in the registry.
// Returns an error if a product with the same ID already exists.
func (r *ProductRegistry) Add(product *ProductConfig) error {
	if product == nil {
		return fmt.Errorf("cannot add nil product")
	}

	if err := validateProduct(product); err != nil {
		return err
	}

	if _, exists := r.products[product.ID]; exists {
		return fmt.Errorf("product with ID %q already exists", product.ID)
	}

	r.products[product.ID] = product
	return nil
}

// Get retrieves a product by ID. Returns nil if the product does not exist.
func (r *ProductRegistry) Get(id string) *ProductConfig {
	return r.products[id]
}

// Has checks if a product with the given ID exists in the registry.
func (r *ProductRegistry) Has(id string) bool {
	_, exists := r.products[id]
	return exists
}

// All returns all products sorted by ID.
func (r *ProductRegistry) All() []*ProductConfig {
	products := make([]*ProductConfig, 0, len(r.products))
	for _, p := range r.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

// IDs returns all product IDs, sorted.
func (r *ProductRegistry) IDs() []string {
	ids := make([]string, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of products in the registry.
func (r *ProductRegistry) Count() int {
	return len(r.products)
}

// FindByShortName returns all products backed by the given CMR short name.
func (r *ProductRegistry) FindByShortName(shortName string) []*ProductConfig {
	var matches []*ProductConfig
	for _, p := range r.All() {
		if p.ShortName == shortName {
			matches = append(matches, p)
		}
	}
	return matches
}

// ResolveProducts returns the products from dir, or the built-in products
// when dir is empty.
func ResolveProducts(dir string) (*ProductRegistry, error) {
	if dir == "" {
		return DefaultProducts(), nil
	}
	return LoadProducts(dir)
}
