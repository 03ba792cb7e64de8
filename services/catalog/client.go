// Package catalog queries the external show catalog. Discovery is
// best-effort by contract: search degrades to an empty result on any
// failure, and only the episode fetch surfaces an error so the caller can
// abort an add without touching the library.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"showlog/models"
)

const defaultBaseURL = "https://api.tvmaze.com"

// ErrUnavailable marks a failed catalog request. Callers of FetchEpisodes
// treat it as "abort the add"; Search swallows it entirely.
var ErrUnavailable = errors.New("catalog unavailable")

// Client is a stateless client for the show catalog API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a catalog client. An empty baseURL selects the public
// catalog endpoint.
func NewClient(baseURL string, httpc *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, httpc: httpc}
}

// searchWrapper mirrors the catalog's search response: each hit wraps the
// show summary together with a relevance score.
type searchWrapper struct {
	Score float64     `json:"score"`
	Show  catalogShow `json:"show"`
}

type catalogShow struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Premiered string   `json:"premiered"`
	Genres    []string `json:"genres"`
	Image     *struct {
		Medium   string `json:"medium"`
		Original string `json:"original"`
	} `json:"image"`
}

type showWithEpisodes struct {
	catalogShow
	Embedded struct {
		Episodes []models.CatalogEpisode `json:"episodes"`
	} `json:"_embedded"`
}

// Search looks up shows by free-text title. An empty or whitespace-only
// query returns an empty slice without a network call, and any transport or
// decode failure likewise degrades to an empty slice.
func (c *Client) Search(ctx context.Context, query string) []models.CatalogShow {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.CatalogShow{}
	}

	endpoint := c.baseURL + "/search/shows?" + url.Values{"q": {query}}.Encode()

	var wrappers []searchWrapper
	if err := c.doGET(ctx, endpoint, &wrappers); err != nil {
		log.Printf("[catalog] search %q failed: %v", query, err)
		return []models.CatalogShow{}
	}

	results := make([]models.CatalogShow, 0, len(wrappers))
	for _, w := range wrappers {
		results = append(results, models.CatalogShow{
			ID:        w.Show.ID,
			Name:      w.Show.Name,
			Premiered: w.Show.Premiered,
			Image:     mediumImage(w.Show),
			Genres:    w.Show.Genres,
		})
	}
	return results
}

// FetchEpisodes retrieves the full episode listing for one show. On failure
// the returned error wraps ErrUnavailable and the add operation must be
// aborted with the library unchanged.
func (c *Client) FetchEpisodes(ctx context.Context, id int64) (*models.ShowDetails, error) {
	endpoint := fmt.Sprintf("%s/shows/%d?embed=episodes", c.baseURL, id)

	var payload showWithEpisodes
	if err := c.doGET(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("%w: fetch show %d: %v", ErrUnavailable, id, err)
	}

	details := &models.ShowDetails{
		ID:        payload.ID,
		Name:      payload.Name,
		Premiered: payload.Premiered,
		Image:     mediumImage(payload.catalogShow),
		Genres:    payload.Genres,
		Episodes:  payload.Embedded.Episodes,
	}
	if details.Genres == nil {
		details.Genres = []string{}
	}
	return details, nil
}

// doGET performs a JSON GET with a bounded retry on transient failures.
// Client errors other than 429 are not retried.
func (c *Client) doGET(ctx context.Context, endpoint string, v any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 300 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				err := fmt.Errorf("catalog get %s: %s: %s", endpoint, resp.Status, strings.TrimSpace(string(body)))
				if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
					return err
				}
				return retry.Unrecoverable(err)
			}
			return json.NewDecoder(resp.Body).Decode(v)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func mediumImage(s catalogShow) string {
	if s.Image == nil {
		return ""
	}
	if s.Image.Medium != "" {
		return s.Image.Medium
	}
	return s.Image.Original
}
