package arcgis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// fetchJSON performs one GET against an ArcGIS endpoint and decodes
// the body into out. Every call requests f=json; extra parameters come
// from params.
func (c *client) fetchJSON(ctx context.Context, baseURL string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "arcgis: rate limit")
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("f", "json")
	reqURL := strings.TrimRight(baseURL, "/") + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "arcgis: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{URL: reqURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{URL: reqURL, Err: eris.Errorf("status %d", resp.StatusCode)}
	}

	if msg, ok := inBandError(body); ok {
		return &TransportError{URL: reqURL, Err: eris.Errorf("server error: %s", msg)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{URL: reqURL, Err: err}
	}

	return nil
}

// queryURL composes the query endpoint of one layer.
func queryURL(serviceURL string, layerID int) string {
	return strings.TrimRight(serviceURL, "/") + "/" + strconv.Itoa(layerID) + "/query"
}

func layerURL(serviceURL string, layerID int) string {
	return strings.TrimRight(serviceURL, "/") + "/" + strconv.Itoa(layerID)
}
