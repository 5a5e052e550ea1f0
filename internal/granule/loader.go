package granule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rkm/swathpoint/internal/swath"
)

var (
	// ErrNoFetcher is returned for a remote link when the Loader cannot download.
	ErrNoFetcher = errors.New("remote granule link but no fetcher configured")

	// ErrUnsupportedFormat is returned for a link whose file format the
	// Loader's reader cannot parse. It is raised before any download.
	ErrUnsupportedFormat = errors.New("unsupported granule format")
)

// Fetcher downloads a granule link into dir and returns the local path.
type Fetcher interface {
	Download(ctx context.Context, link, dir string) (string, error)
}

// Loader implements swath.Loader over local files, downloading remote links
// into Dir first when a Fetcher is set.
type Loader struct {
	Reader  Reader
	Fetcher Fetcher
	Dir     string

	// Formats lists the file extensions Reader parses. Empty accepts any link.
	Formats []string
}

// JSONFormat is the extension of granule documents read by JSONReader.
const JSONFormat = ".json"

// NewLoader creates a Loader reading JSON granule documents from dir.
func NewLoader(dir string, fetcher Fetcher, geoFillOverride bool) *Loader {
	return &Loader{
		Reader:  JSONReader{GeoFillOverride: geoFillOverride},
		Fetcher: fetcher,
		Dir:     dir,
		Formats: []string{JSONFormat},
	}
}

// Supports reports whether the Loader's reader parses the file behind link.
func (l *Loader) Supports(link string) bool {
	return len(l.Formats) == 0 || slices.Contains(l.Formats, Format(link))
}

// Load implements swath.Loader.
func (l *Loader) Load(ctx context.Context, ref swath.GranuleRef) (*swath.Granule, error) {
	if !l.Supports(ref.Link) {
		return nil, fmt.Errorf("%w %q: %s", ErrUnsupportedFormat, Format(ref.Link), ref.Link)
	}

	path, err := l.localPath(ctx, ref.Link)
	if err != nil {
		return nil, err
	}

	g, err := l.Reader.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if ref.ID != "" {
		g.ID = ref.ID
	}
	return g, nil
}

func (l *Loader) localPath(ctx context.Context, link string) (string, error) {
	if isRemote(link) {
		if l.Fetcher == nil {
			return "", fmt.Errorf("%w: %s", ErrNoFetcher, link)
		}
		return l.Fetcher.Download(ctx, link, l.Dir)
	}
	if filepath.IsAbs(link) || l.Dir == "" {
		return link, nil
	}
	if _, err := os.Stat(link); err == nil {
		return link, nil
	}
	return filepath.Join(l.Dir, link), nil
}

// DirRefs lists the JSON granule documents in dir, sorted by file name.
func DirRefs(dir string) ([]swath.GranuleRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read granule dir: %w", err)
	}

	refs := make([]swath.GranuleRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), JSONFormat) {
			continue
		}
		refs = append(refs, swath.GranuleRef{
			ID:   strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Link: filepath.Join(dir, e.Name()),
		})
	}
	swath.SortRefs(refs)
	return refs, nil
}

// PathRefs turns explicit file paths into references sorted by link.
func PathRefs(paths []string) []swath.GranuleRef {
	refs := make([]swath.GranuleRef, len(paths))
	for i, p := range paths {
		refs[i] = swath.GranuleRef{ID: NameFromLink(p), Link: p}
	}
	swath.SortRefs(refs)
	return refs
}

// InWindow keeps the references whose name timestamp falls in [start, end].
// References without a parsable timestamp are kept so that the accumulator
// reports them instead of dropping them silently.
func InWindow(refs []swath.GranuleRef, start, end time.Time) []swath.GranuleRef {
	kept := refs[:0:0]
	for _, ref := range refs {
		ts, err := ParseTimestamp(NameFromLink(ref.Link))
		if err == nil && (ts.Before(start) || ts.After(end)) {
			continue
		}
		kept = append(kept, ref)
	}
	return kept
}
