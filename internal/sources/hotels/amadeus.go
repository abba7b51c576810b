// Package hotels lists hotels for a destination through the Amadeus
// self-service API.
package hotels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	TestBaseURL       = "https://test.api.amadeus.com"
	ProductionBaseURL = "https://api.amadeus.com"

	// Limit caps how many hotels a lookup returns.
	Limit = 10

	requestTimeout = 20 * time.Second
	// refresh the token this long before it expires
	tokenSlack = 30 * time.Second
)

var ErrMissingCredentials = errors.New("amadeus credentials missing")

// Hotel is the subset of an Amadeus hotel record used in prompts.
type Hotel struct {
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	HotelID   string  `json:"hotel_id"`
	ChainCode string  `json:"chain_code"`
	Distance  float64 `json:"distance"`
}

// Client is an Amadeus client using the client-credentials grant.
// It is safe for concurrent use.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTP         *http.Client
	Now          func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClient returns a client for baseURL. It fails when either credential
// is blank.
func NewClient(baseURL, clientID, clientSecret string) (*Client, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" {
		return nil, ErrMissingCredentials
	}
	if baseURL == "" {
		baseURL = TestBaseURL
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTP:         &http.Client{Timeout: requestTimeout},
		Now:          time.Now,
	}, nil
}

// CityCode approximates an IATA city code from a destination name: its
// first four characters, upper-cased.
func CityCode(destination string) string {
	d := []rune(strings.TrimSpace(destination))
	if len(d) > 4 {
		d = d[:4]
	}
	return strings.ToUpper(string(d))
}

type hotelsResponse struct {
	Data []struct {
		Name      string `json:"name"`
		HotelID   string `json:"hotelId"`
		ChainCode string `json:"chainCode"`
		Address   struct {
			CityName string `json:"cityName"`
		} `json:"address"`
		Distance struct {
			Value float64 `json:"value"`
		} `json:"distance"`
	} `json:"data"`
}

// ByCity returns up to Limit hotels within 50km of the city.
func (c *Client) ByCity(ctx context.Context, cityCode string) ([]Hotel, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("cityCode", cityCode)
	q.Set("radius", "50")
	q.Set("radiusUnit", "KM")
	q.Set("hotelSource", "ALL")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/v1/reference-data/locations/hotels/by-city?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	var resp hotelsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("hotels by city %s: %w", cityCode, err)
	}

	out := make([]Hotel, 0, min(len(resp.Data), Limit))
	for _, h := range resp.Data {
		if len(out) == Limit {
			break
		}
		hotel := Hotel{
			Name:      h.Name,
			Location:  h.Address.CityName,
			HotelID:   h.HotelID,
			ChainCode: h.ChainCode,
			Distance:  h.Distance.Value,
		}
		if hotel.Name == "" {
			hotel.Name = "Unknown Hotel"
		}
		if hotel.Location == "" {
			hotel.Location = cityCode
		}
		out = append(out, hotel)
	}
	return out, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tr tokenResponse
	if err := c.do(req, &tr); err != nil {
		return "", fmt.Errorf("amadeus token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("amadeus token: empty access token")
	}

	c.token = tr.AccessToken
	c.expires = now.Add(time.Duration(tr.ExpiresIn)*time.Second - tokenSlack)
	return c.token, nil
}

func (c *Client) do(req *http.Request, out any) error {
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(out)
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
