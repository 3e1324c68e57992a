package arcgis

import (
	"context"
	"net/url"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
)

// FeatureCount issues a count-only query under the filter. A nil
// filter counts the whole layer; this is allowed here because the
// safety gate, not the client, decides whether unbounded requests may
// proceed to a bulk download.
func (c *client) FeatureCount(ctx context.Context, serviceURL string, layerID int, filter Filter) (int, error) {
	params := url.Values{}
	params.Set("where", "1=1")
	params.Set("returnCountOnly", "true")
	if filter != nil {
		filter.Apply(params)
	}

	var resp countResponse
	if err := c.fetchJSON(ctx, queryURL(serviceURL, layerID), params, &resp); err != nil {
		return 0, eris.Wrapf(err, "arcgis: count layer %d", layerID)
	}
	if resp.Count == nil {
		return 0, eris.Errorf("arcgis: count layer %d: response has no count", layerID)
	}
	return *resp.Count, nil
}

// ObjectIDs issues an identifiers-only query under the filter and
// returns the server's identifier field name with the IDs sorted
// ascending and deduplicated.
func (c *client) ObjectIDs(ctx context.Context, serviceURL string, layerID int, filter Filter) (string, []int64, error) {
	params := url.Values{}
	params.Set("where", "1=1")
	params.Set("returnIdsOnly", "true")
	if filter != nil {
		filter.Apply(params)
	}

	var resp objectIDsResponse
	if err := c.fetchJSON(ctx, queryURL(serviceURL, layerID), params, &resp); err != nil {
		return "", nil, eris.Wrapf(err, "arcgis: object ids layer %d", layerID)
	}

	field := resp.ObjectIDFieldName
	if field == "" {
		field = "OBJECTID"
	}

	ids := resp.ObjectIDs
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ids = dedupSorted(ids)

	return field, ids, nil
}

// FetchBatch requests all fields and geometry for one range predicate,
// with the spatial filter re-attached and an optional output spatial
// reference override.
func (c *client) FetchBatch(ctx context.Context, serviceURL string, layerID int, where string, filter Filter, outWKID int) (*BatchResult, error) {
	params := url.Values{}
	params.Set("where", where)
	params.Set("outFields", "*")
	params.Set("returnGeometry", "true")
	if filter != nil {
		filter.Apply(params)
	}
	if outWKID != 0 {
		params.Set("outSR", strconv.Itoa(outWKID))
	}

	var resp BatchResult
	if err := c.fetchJSON(ctx, queryURL(serviceURL, layerID), params, &resp); err != nil {
		return nil, eris.Wrapf(err, "arcgis: fetch batch layer %d", layerID)
	}
	return &resp, nil
}

func dedupSorted(ids []int64) []int64 {
	if len(ids) < 2 {
		return ids
	}
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
