package config_test

import (
	"fmt"
	"log"

	"github.com/rkm/swathpoint/internal/config"
)

func ExampleLoad() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Server: %s\n", cfg.Server.Address())
	fmt.Printf("Product: %s\n", cfg.Query.Product)
	fmt.Printf("No data: %g\n", cfg.Query.NoData)

	// Output:
	// Server: 0.0.0.0:8000
	// Product: tempo-uvai
	// No data: -99
}

func ExampleDefaultProducts() {
	registry := config.DefaultProducts()

	for _, p := range registry.All() {
		fmt.Printf("%s: %s %s (%s)\n", p.ID, p.ShortName, p.Version, p.ValueLabel)
	}

	// Output:
	// tempo-no2: TEMPO_NO2_L2 V03 (NO2_TROP_TEMPO)
	// tempo-uvai: TEMPO_O3TOT_L2 V03 (UVAI_TEMPO)
}
