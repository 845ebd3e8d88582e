package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// minMileageMiles is the upstream API's odometer floor in miles; the
// original implementation filtered out anything below it to exclude
// new/demo listings that skew comparisons.
const minMileageMiles = 6213

// Client fetches vehicle listings from the upstream pricing API, paging
// through results the way the original car_fetching loop did, filtering
// by model keyword and minimum mileage.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds an upstream API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type apiResponse struct {
	Listings []apiListing `json:"listings"`
}

type apiListing struct {
	Build struct {
		Year  int    `json:"year"`
		Make  string `json:"make"`
		Model string `json:"model"`
	} `json:"build"`
	Dealer struct {
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"dealer"`
	Price float64 `json:"price"`
	Miles float64 `json:"miles"`
}

// Fetch pages through the upstream listings API for the given
// country/city/make, keeping only rows whose model contains modelKeyword
// and whose mileage exceeds the floor, up to maxRows results.
func (c *Client) Fetch(ctx context.Context, country, city, make_, modelKeyword string, maxRows, rowsPerPage int) ([]Listing, error) {
	var out []Listing

	for start := 0; start < maxRows; start += rowsPerPage {
		page, err := c.fetchPage(ctx, country, city, make_, start, rowsPerPage)
		if err != nil {
			return nil, err
		}
		if len(page.Listings) == 0 {
			break
		}

		for _, l := range page.Listings {
			if !matchesModel(l.Build.Model, modelKeyword) {
				continue
			}
			if l.Miles <= minMileageMiles {
				continue
			}
			out = append(out, Listing{
				Year:     l.Build.Year,
				Make:     l.Build.Make,
				Model:    l.Build.Model,
				Price:    l.Price,
				Mileage:  l.Miles,
				Location: strings.TrimSuffix(fmt.Sprintf("%s, %s", l.Dealer.City, l.Dealer.State), ", "),
			})
		}
	}

	return out, nil
}

func matchesModel(model, keyword string) bool {
	normalize := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "-", ""))
	}
	return model != "" && strings.Contains(normalize(model), normalize(keyword))
}

func (c *Client) fetchPage(ctx context.Context, country, city, make_ string, start, rows int) (*apiResponse, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("country", country)
	q.Set("city", city)
	q.Set("make", make_)
	q.Set("rows", strconv.Itoa(rows))
	q.Set("start", strconv.Itoa(start))

	reqURL := c.baseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch upstream listings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream listings API returned status %d", resp.StatusCode)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}
	return &out, nil
}
