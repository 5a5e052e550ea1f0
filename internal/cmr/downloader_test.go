package cmr

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rkm/swathpoint/internal/config"
	"github.com/rkm/swathpoint/internal/observability"
)

func testDownloader(token string) *Downloader {
	return NewDownloader(config.EarthdataConfig{Token: token, Timeout: 5 * time.Second, MaxRetries: 0})
}

func TestDownloader_FetchSendsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte("granule-bytes"))
	}))
	defer server.Close()

	metrics := observability.NewMetricsForTesting()
	d := testDownloader("secret").WithMetrics(metrics)

	var buf bytes.Buffer
	n, err := d.Fetch(context.Background(), server.URL+"/a.nc", &buf)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n != int64(len("granule-bytes")) || buf.String() != "granule-bytes" {
		t.Errorf("Fetch() = %d %q", n, buf.String())
	}
	if got := testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("earthdata", "success")); got != 1 {
		t.Errorf("upstream success count = %v, want 1", got)
	}
}

func TestDownloader_FetchUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var buf bytes.Buffer
	if _, err := testDownloader("").Fetch(context.Background(), server.URL+"/a.nc", &buf); err == nil {
		t.Fatal("Fetch() expected error for 401")
	}
}

func TestDownloader_Download(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "granules")
	d := testDownloader("")
	link := server.URL + "/data/TEMPO_O3TOT_L2_V03_20240801T130000Z_S004G05.nc"

	path, err := d.Download(context.Background(), link, dir)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if filepath.Base(path) != "TEMPO_O3TOT_L2_V03_20240801T130000Z_S004G05.nc" {
		t.Errorf("Download() path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "payload" {
		t.Fatalf("downloaded file = %q, %v", data, err)
	}

	if _, err := d.Download(context.Background(), link, dir); err != nil {
		t.Fatalf("second Download() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want existing file reused", calls)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("download dir has %d entries, want no leftover temp files", len(entries))
	}
}

func TestFileName(t *testing.T) {
	if _, err := fileName("https://example.com/"); err == nil {
		t.Error("fileName() expected error for link without a file")
	}
	name, err := fileName("https://example.com/a/b.nc?x=1")
	if err != nil || name != "b.nc" {
		t.Errorf("fileName() = %q, %v", name, err)
	}
}
