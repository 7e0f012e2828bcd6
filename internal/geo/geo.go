package geo

import (
	"context"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Resolver turns a client IP into a coarse "City, Country" label. Lookups are
// best-effort: any failure yields "N/A" and never blocks a join.
type Resolver interface {
	Lookup(ctx context.Context, ip string) string
}

type HTTPResolver struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPResolver(baseURL string, timeout time.Duration) Resolver {
	return &HTTPResolver{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type lookupResponse struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

func (r *HTTPResolver) Lookup(ctx context.Context, ip string) string {
	if r.BaseURL == "" || ip == "" {
		return "N/A"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/"+ip, nil)
	if err != nil {
		return "N/A"
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return "N/A"
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "N/A"
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "N/A"
	}
	if body.City == "" && body.Country == "" {
		return "N/A"
	}
	if body.City == "" {
		return body.Country
	}
	return fmt.Sprintf("%s, %s", body.City, body.Country)
}
