package cmr

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	gostac "github.com/planetlabs/go-stac"

	"github.com/rkm/swathpoint/internal/stac"
	"github.com/rkm/swathpoint/pkg/geojson"
)

// TranslateGranuleToItem converts a CMR UMM-G granule to a STAC Item that
// belongs to the product collectionID and links back to baseURL.
func TranslateGranuleToItem(granule *UMMGranule, collectionID, baseURL string) (*stac.Item, error) {
	itemID := granule.GranuleUR
	if itemID == "" {
		return nil, fmt.Errorf("granule has no GranuleUR")
	}

	item := stac.NewItem(itemID, collectionID)

	if ring := granule.Ring(); len(ring) >= 3 {
		geom, err := geojson.NewPolygon(ring)
		if err != nil {
			return nil, fmt.Errorf("failed to build footprint: %w", err)
		}
		item.Geometry = geom
		if bbox, err := geojson.ComputeBBox(geom); err == nil {
			item.Bbox = bbox
		}
	}

	setTemporalProperties(granule, item)

	if len(granule.Platforms) > 0 {
		platform := granule.Platforms[0]
		item.Properties["platform"] = strings.ToLower(platform.ShortName)
		if len(platform.Instruments) > 0 {
			instruments := make([]string, len(platform.Instruments))
			for i, inst := range platform.Instruments {
				instruments[i] = strings.ToLower(inst.ShortName)
			}
			item.Properties["instruments"] = instruments
		}
	}

	ref := granule.CollectionReference
	if ref.ShortName != "" {
		item.Properties["cmr:short_name"] = ref.ShortName
	}
	if ref.Version != "" {
		item.Properties["cmr:version"] = ref.Version
	}
	if granule.DataGranule != nil && granule.DataGranule.ProductionDateTime != "" {
		if t, err := parseTime(granule.DataGranule.ProductionDateTime); err == nil {
			item.Properties["processing:datetime"] = t.Format(time.RFC3339)
		}
	}

	addAssets(granule, item)

	baseURL = strings.TrimSuffix(baseURL, "/")
	item.Links = append(item.Links,
		&gostac.Link{
			Rel:  "self",
			Href: baseURL + "/granules/" + url.PathEscape(itemID),
			Type: "application/geo+json",
		},
		&gostac.Link{
			Rel:  "collection",
			Href: baseURL + "/granules?product=" + url.QueryEscape(collectionID),
			Type: "application/geo+json",
		},
		&gostac.Link{
			Rel:  "root",
			Href: baseURL + "/",
			Type: "application/json",
		},
	)

	return item, nil
}

func setTemporalProperties(granule *UMMGranule, item *stac.Item) {
	startTime, _ := granule.GetStartTime()
	endTime, _ := granule.GetEndTime()

	switch {
	case !startTime.IsZero():
		item.Properties["datetime"] = nil
		item.Properties["start_datetime"] = startTime.Format(time.RFC3339)
		if endTime.IsZero() {
			endTime = startTime
		}
		item.Properties["end_datetime"] = endTime.Format(time.RFC3339)
	case !endTime.IsZero():
		item.Properties["datetime"] = endTime.Format(time.RFC3339)
	default:
		item.Properties["datetime"] = nil
	}
}

// addAssets adds the data file and any browse image as item assets.
func addAssets(granule *UMMGranule, item *stac.Item) {
	if dataURL := granule.GetDataURL(); dataURL != "" {
		item.Assets["data"] = &gostac.Asset{
			Href:  dataURL,
			Title: path.Base(dataURL),
			Type:  mediaType(dataURL),
			Roles: []string{"data"},
		}
	}

	if browseURL := granule.GetBrowseURL(); browseURL != "" {
		item.Assets["thumbnail"] = &gostac.Asset{
			Href:  browseURL,
			Title: "Thumbnail",
			Type:  mediaType(browseURL),
			Roles: []string{"thumbnail"},
		}
	}
}

func mediaType(href string) string {
	switch strings.ToLower(path.Ext(href)) {
	case ".nc", ".nc4":
		return "application/x-netcdf"
	case ".h5", ".he5":
		return "application/x-hdf5"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
