package hotels

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAmadeus(t *testing.T, hotels int, tokenCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":1799}`))
	})
	mux.HandleFunc("/v1/reference-data/locations/hotels/by-city", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "LISB", r.URL.Query().Get("cityCode"))
		assert.Equal(t, "50", r.URL.Query().Get("radius"))

		items := make([]string, 0, hotels)
		for i := 0; i < hotels; i++ {
			items = append(items, fmt.Sprintf(`{"name":"Hotel %d","hotelId":"H%d","chainCode":"CC","address":{"cityName":"LISBON"},"distance":{"value":%d.5}}`, i, i, i))
		}
		_, _ = w.Write([]byte(`{"data":[` + strings.Join(items, ",") + `]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestByCity(t *testing.T) {
	t.Parallel()

	var tokenCalls int32
	srv := fakeAmadeus(t, 14, &tokenCalls)
	c, err := NewClient(srv.URL, "id", "secret")
	require.NoError(t, err)

	got, err := c.ByCity(context.Background(), "LISB")
	require.NoError(t, err)
	require.Len(t, got, Limit)
	assert.Equal(t, Hotel{Name: "Hotel 0", Location: "LISBON", HotelID: "H0", ChainCode: "CC", Distance: 0.5}, got[0])

	_, err = c.ByCity(context.Background(), "LISB")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls), "token is reused until it expires")
}

func TestByCityRefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	var tokenCalls int32
	srv := fakeAmadeus(t, 1, &tokenCalls)
	c, err := NewClient(srv.URL, "id", "secret")
	require.NoError(t, err)

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return now }

	_, err = c.ByCity(context.Background(), "LISB")
	require.NoError(t, err)
	now = now.Add(time.Hour)
	_, err = c.ByCity(context.Background(), "LISB")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenCalls))
}

func TestByCityTokenFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "id", "wrong")
	require.NoError(t, err)
	_, err = c.ByCity(context.Background(), "LISB")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amadeus token")
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewClient("", "", "secret")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	c, err := NewClient("", "id", "secret")
	require.NoError(t, err)
	assert.Equal(t, TestBaseURL, c.BaseURL)
}

func TestCityCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "LISB", CityCode("Lisbon"))
	assert.Equal(t, "ROM", CityCode(" rom "))
	assert.Equal(t, "SÃO ", CityCode("São Paulo"))
}
