package cmr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rkm/swathpoint/internal/observability"
)

func TestSearchParams_ToURLValues(t *testing.T) {
	tests := []struct {
		name     string
		params   SearchParams
		expected map[string][]string
	}{
		{
			name: "product and point",
			params: SearchParams{
				ShortName: []string{"TEMPO_O3TOT_L2"},
				Version:   "V03",
				Point:     "-77.03,38.9",
			},
			expected: map[string][]string{
				"short_name": {"TEMPO_O3TOT_L2"},
				"version":    {"V03"},
				"point":      {"-77.03,38.9"},
				"page_size":  {"200"},
				"sort_key":   {"start_date"},
			},
		},
		{
			name: "bbox and temporal",
			params: SearchParams{
				BoundingBox: "-78,38,-77,39",
				Temporal:    "2024-08-01T00:00:00Z,2024-08-02T00:00:00Z",
				PageSize:    50,
			},
			expected: map[string][]string{
				"bounding_box": {"-78,38,-77,39"},
				"temporal":     {"2024-08-01T00:00:00Z,2024-08-02T00:00:00Z"},
				"page_size":    {"50"},
				"sort_key":     {"start_date"},
			},
		},
		{
			name: "page size is capped and sort key kept",
			params: SearchParams{
				PageSize: 5000,
				SortKey:  "-start_date",
			},
			expected: map[string][]string{
				"page_size": {"2000"},
				"sort_key":  {"-start_date"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := tt.params.ToURLValues()
			if len(values) != len(tt.expected) {
				t.Errorf("ToURLValues() returned %d keys, want %d: %v", len(values), len(tt.expected), values)
			}
			for key, want := range tt.expected {
				got := values[key]
				if strings.Join(got, "|") != strings.Join(want, "|") {
					t.Errorf("ToURLValues()[%q] = %v, want %v", key, got, want)
				}
			}
		})
	}
}

func tempoGranule(name string) UMMGranule {
	return UMMGranule{
		GranuleUR: name,
		CollectionReference: CollectionReference{
			ShortName: "TEMPO_O3TOT_L2",
			Version:   "V03",
		},
		RelatedUrls: []RelatedURL{
			{URL: "https://data.example.com/" + name, Type: "GET DATA"},
		},
	}
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/granules.umm_json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("provider"); got != "LARC_CLOUD" {
			t.Errorf("expected provider LARC_CLOUD, got %s", got)
		}

		resp := UMMSearchResponse{
			Hits: 1,
			Took: 100,
			Items: []UMMResultItem{
				{
					Meta: UMMMeta{ConceptID: "G123456-LARC_CLOUD", ProviderID: "LARC_CLOUD"},
					UMM:  tempoGranule("TEMPO_O3TOT_L2_V03_20240801T130000Z_S004G05.nc"),
				},
			},
		}

		w.Header().Set(CMRSearchAfterHeader, "next-cursor-value")
		w.Header().Set("Content-Type", "application/vnd.nasa.cmr.umm_results+json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	metrics := observability.NewMetricsForTesting()
	client := NewClient(server.URL, "", 30*time.Second).WithMetrics(metrics)

	result, err := client.Search(context.Background(), &SearchParams{
		ShortName: []string{"TEMPO_O3TOT_L2"},
		PageSize:  10,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if result.Hits != 1 {
		t.Errorf("Search() hits = %d, want 1", result.Hits)
	}
	if len(result.Granules) != 1 {
		t.Fatalf("Search() granules = %d, want 1", len(result.Granules))
	}
	if result.SearchAfter != "next-cursor-value" {
		t.Errorf("Search() SearchAfter = %s, want next-cursor-value", result.SearchAfter)
	}
	if got := testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("cmr", "success")); got != 1 {
		t.Errorf("upstream success count = %v, want 1", got)
	}
}

func TestClient_SearchProviderOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("provider"); got != "OTHER" {
			t.Errorf("expected provider OTHER, got %s", got)
		}
		json.NewEncoder(w).Encode(UMMSearchResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, "LARC_CLOUD", 30*time.Second)
	if _, err := client.Search(context.Background(), &SearchParams{Provider: "OTHER"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
}

func TestClient_SearchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))
	defer server.Close()

	metrics := observability.NewMetricsForTesting()
	client := NewClient(server.URL, "", 30*time.Second).WithMetrics(metrics)

	_, err := client.Search(context.Background(), &SearchParams{})
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("Search() error = %v, want status 400", err)
	}
	if got := testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("cmr", "error")); got != 1 {
		t.Errorf("upstream error count = %v, want 1", got)
	}
}

// pagedServer serves total granules in pages of size, keyed by CMR-Search-After.
func pagedServer(t *testing.T, total, size int) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		offset := 0
		if after := r.Header.Get(CMRSearchAfterHeader); after != "" {
			fmt.Sscanf(after, "cursor-%d", &offset)
		}

		resp := UMMSearchResponse{Hits: total}
		for i := offset; i < total && i < offset+size; i++ {
			name := fmt.Sprintf("TEMPO_O3TOT_L2_V03_20240801T%02d0000Z_S001G01.nc", i)
			resp.Items = append(resp.Items, UMMResultItem{UMM: tempoGranule(name)})
		}
		if offset+size < total {
			w.Header().Set(CMRSearchAfterHeader, fmt.Sprintf("cursor-%d", offset+size))
		}
		json.NewEncoder(w).Encode(resp)
	}))
	return server, &calls
}

func TestClient_SearchAll(t *testing.T) {
	server, calls := pagedServer(t, 5, 2)
	defer server.Close()

	client := NewClient(server.URL, "", 30*time.Second)
	granules, hits, err := client.SearchAll(context.Background(), &SearchParams{PageSize: 2}, 0)
	if err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}
	if hits != 5 || len(granules) != 5 {
		t.Errorf("SearchAll() = %d granules of %d hits, want 5 of 5", len(granules), hits)
	}
	if *calls != 3 {
		t.Errorf("SearchAll() made %d requests, want 3", *calls)
	}
}

func TestClient_SearchAllLimit(t *testing.T) {
	server, calls := pagedServer(t, 10, 2)
	defer server.Close()

	client := NewClient(server.URL, "", 30*time.Second)
	granules, hits, err := client.SearchAll(context.Background(), &SearchParams{PageSize: 2}, 3)
	if err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}
	if hits != 10 || len(granules) != 3 {
		t.Errorf("SearchAll() = %d granules of %d hits, want 3 of 10", len(granules), hits)
	}
	if *calls != 2 {
		t.Errorf("SearchAll() made %d requests, want 2", *calls)
	}
}

func TestClient_GetGranule(t *testing.T) {
	const name = "TEMPO_O3TOT_L2_V03_20240801T130000Z_S004G05.nc"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("granule_ur"); got != name {
			t.Errorf("expected granule_ur %s, got %s", name, got)
		}
		json.NewEncoder(w).Encode(UMMSearchResponse{
			Hits:  1,
			Items: []UMMResultItem{{UMM: tempoGranule(name)}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 30*time.Second)

	granule, err := client.GetGranule(context.Background(), name)
	if err != nil {
		t.Fatalf("GetGranule() error = %v", err)
	}
	if granule.GranuleUR != name {
		t.Errorf("GetGranule() GranuleUR = %s, want %s", granule.GranuleUR, name)
	}
}

func TestClient_GetGranule_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(UMMSearchResponse{Items: []UMMResultItem{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 30*time.Second)

	_, err := client.GetGranule(context.Background(), "NONEXISTENT")
	if !errors.Is(err, ErrGranuleNotFound) {
		t.Errorf("GetGranule() error = %v, want ErrGranuleNotFound", err)
	}
}

func TestFormatPointAndBBox(t *testing.T) {
	if got := FormatPoint(-77.0369, 38.9072); got != "-77.0369,38.9072" {
		t.Errorf("FormatPoint() = %s", got)
	}
	if got := FormatBBox([]float64{-78, 38.5, -77, 39}); got != "-78,38.5,-77,39" {
		t.Errorf("FormatBBox() = %s", got)
	}
}
