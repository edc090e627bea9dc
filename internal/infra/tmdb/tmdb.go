package infra_tmdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.themoviedb.org/3"

// Client fetches popular movie titles used to narrow the local catalog.
// Failures here are non-fatal to the caller; the catalog falls back to its
// full local set.
type Client struct {
	http *resty.Client
}

func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(token).
			SetHeader("Content-Type", "application/json;charset=utf-8").
			SetTimeout(10 * time.Second),
	}
}

type popularPage struct {
	Results []struct {
		Title string `json:"title"`
	} `json:"results"`
}

// FetchPopularTitles walks the first pageCount pages of the popular feed and
// returns the deduplicated, lowercased titles.
func (c *Client) FetchPopularTitles(ctx context.Context, pageCount int) ([]string, error) {
	seen := make(map[string]bool)
	titles := make([]string, 0, pageCount*20)

	for page := 1; page <= pageCount; page++ {
		var body popularPage
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("language", "en-US").
			SetQueryParam("page", fmt.Sprint(page)).
			SetResult(&body).
			Get("/movie/popular")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("popular feed page %d: %s", page, resp.Status())
		}

		for _, r := range body.Results {
			title := strings.ToLower(r.Title)
			if !seen[title] {
				seen[title] = true
				titles = append(titles, title)
			}
		}
	}
	return titles, nil
}
