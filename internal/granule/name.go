// Package granule turns granule files into swath.Granule values.
package granule

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// ErrGranuleTimestamp is returned when a granule name carries no start timestamp.
var ErrGranuleTimestamp = errors.New("granule name has no YYYYMMDDTHHMMSS timestamp")

const timestampLayout = "20060102T150405"

// ParseTimestamp extracts the UTC start time embedded in a granule name,
// e.g. TEMPO_O3TOT_L2_V03_20240801T130000Z_S004G05.nc. The timestamp is
// the 15 characters around the last 'T' of the name.
func ParseTimestamp(name string) (time.Time, error) {
	name = path.Base(name)
	i := strings.LastIndexByte(name, 'T')
	if i < 8 || i+7 > len(name) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrGranuleTimestamp, name)
	}
	ts, err := time.Parse(timestampLayout, name[i-8:i+7])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrGranuleTimestamp, name)
	}
	return ts.UTC(), nil
}

// NameFromLink returns the file name at the end of a download link or path.
func NameFromLink(link string) string {
	if u, err := url.Parse(link); err == nil && u.Scheme != "" {
		link = u.Path
	}
	if i := strings.LastIndexByte(link, '/'); i >= 0 {
		return link[i+1:]
	}
	return link
}

// Format returns the lower-case file extension of a link, e.g. ".nc".
func Format(link string) string {
	return strings.ToLower(path.Ext(NameFromLink(link)))
}

func isRemote(link string) bool {
	return strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://")
}
