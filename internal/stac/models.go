// Package stac provides the STAC types used to publish granule search
// results, wrapping planetlabs/go-stac for the core types.
package stac

import (
	gostac "github.com/planetlabs/go-stac"
)

// Version is the STAC specification version of published items.
const Version = "1.0.0"

type (
	Item  = gostac.Item
	Asset = gostac.Asset
	Link  = gostac.Link
)

// ItemCollection represents a STAC ItemCollection (GeoJSON FeatureCollection).
type ItemCollection struct {
	Type           string         `json:"type"` // "FeatureCollection"
	Features       []*gostac.Item `json:"features"`
	Links          []*gostac.Link `json:"links"`
	NumberMatched  *int           `json:"numberMatched,omitempty"`
	NumberReturned int            `json:"numberReturned"`
}

// NewItemCollection creates a new ItemCollection with the given items.
func NewItemCollection(items []*gostac.Item) *ItemCollection {
	if items == nil {
		items = []*gostac.Item{}
	}
	return &ItemCollection{
		Type:           "FeatureCollection",
		Features:       items,
		Links:          make([]*gostac.Link, 0),
		NumberReturned: len(items),
	}
}

// AddLink adds a link to the ItemCollection.
func (ic *ItemCollection) AddLink(rel, href, mediaType string) {
	ic.Links = append(ic.Links, &gostac.Link{
		Rel:  rel,
		Href: href,
		Type: mediaType,
	})
}

// NewItem creates a new STAC Item with the given ID and collection.
func NewItem(id, collection string) *gostac.Item {
	return &gostac.Item{
		Version:    Version,
		Id:         id,
		Collection: collection,
		Properties: make(map[string]any),
		Assets:     make(map[string]*gostac.Asset),
		Links:      make([]*gostac.Link, 0),
	}
}
