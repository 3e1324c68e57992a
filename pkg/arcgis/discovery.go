package arcgis

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// browsableTypes are the service types that expose queryable layers.
var browsableTypes = map[string]bool{
	"MapServer":     true,
	"FeatureServer": true,
}

// DirectoryServices lists the child map/feature services of a
// directory endpoint. Other service types (GeocodeServer, GPServer,
// ImageServer, ...) are skipped.
func (c *client) DirectoryServices(ctx context.Context, directoryURL string) ([]ServiceEntry, error) {
	var resp directoryResponse
	if err := c.fetchJSON(ctx, directoryURL, nil, &resp); err != nil {
		return nil, eris.Wrap(err, "arcgis: list directory services")
	}

	base := strings.TrimRight(directoryURL, "/")
	entries := make([]ServiceEntry, 0, len(resp.Services))
	for _, svc := range resp.Services {
		if !browsableTypes[svc.Type] {
			continue
		}

		display := svc.Name
		if idx := strings.LastIndex(svc.Name, "/"); idx >= 0 {
			display = svc.Name[idx+1:]
		}

		entries = append(entries, ServiceEntry{
			Name:        svc.Name,
			DisplayName: display,
			URL:         base + "/" + svc.Name + "/" + svc.Type,
			Type:        svc.Type,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].DisplayName) < strings.ToLower(entries[j].DisplayName)
	})

	return entries, nil
}

// ServiceLayers lists the layers declared on a service root.
func (c *client) ServiceLayers(ctx context.Context, serviceURL string) ([]LayerRef, error) {
	var resp serviceResponse
	if err := c.fetchJSON(ctx, serviceURL, nil, &resp); err != nil {
		return nil, eris.Wrap(err, "arcgis: list service layers")
	}

	layers := make([]LayerRef, 0, len(resp.Layers))
	for _, lyr := range resp.Layers {
		ref := LayerRef{
			ID:                lyr.ID,
			Name:              lyr.Name,
			Type:              lyr.Type,
			ParentID:          -1,
			SubLayerIDs:       lyr.SubLayerIDs,
			MinScale:          lyr.MinScale,
			MaxScale:          lyr.MaxScale,
			DefaultVisibility: true,
		}
		if ref.Name == "" {
			ref.Name = "Layer " + strconv.Itoa(lyr.ID)
		}
		if ref.Type == "" {
			ref.Type = "Unknown"
		}
		if lyr.ParentLayerID != nil {
			ref.ParentID = *lyr.ParentLayerID
		}
		if lyr.DefaultVisibility != nil {
			ref.DefaultVisibility = *lyr.DefaultVisibility
		}
		layers = append(layers, ref)
	}

	return layers, nil
}

// LayerSchema fetches the detailed metadata of one layer.
func (c *client) LayerSchema(ctx context.Context, serviceURL string, layerID int) (*LayerSchema, error) {
	var schema LayerSchema
	if err := c.fetchJSON(ctx, layerURL(serviceURL, layerID), nil, &schema); err != nil {
		return nil, eris.Wrapf(err, "arcgis: layer %d schema", layerID)
	}
	return &schema, nil
}
