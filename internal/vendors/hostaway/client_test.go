package hostaway

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHostaway serves a token endpoint plus the given API routes and counts
// calls per path.
func fakeHostaway(t *testing.T, routes map[string]string) (*Client, map[string]*atomic.Int32) {
	t.Helper()
	calls := map[string]*atomic.Int32{"/v1/accessTokens": {}}
	for path := range routes {
		calls[path] = &atomic.Int32{}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter, ok := calls[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		counter.Add(1)

		if r.URL.Path == "/v1/accessTokens" {
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "id", r.PostForm.Get("client_id"))
			assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
			assert.Equal(t, "general", r.PostForm.Get("scope"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
			return
		}

		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, routes[r.URL.Path])
	}))
	t.Cleanup(server.Close)

	return New(Config{BaseURL: server.URL, ClientID: "id", ClientSecret: "secret"}), calls
}

func TestListings_CachedAndAuthenticated(t *testing.T) {
	client, calls := fakeHostaway(t, map[string]string{
		"/v1/listings": `{"status":"success","result":[
			{"id": 101, "name": "Alfama Loft", "address": "Rua A", "bedroomsNumber": 2, "bathroomsNumber": 1, "propertyTypeId": 1}
		]}`,
	})

	first, err := client.Listings(t.Context())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(101), first[0].ID)
	assert.Equal(t, "Alfama Loft", first[0].Name)
	assert.Equal(t, 2, first[0].Bedrooms)

	_, err = client.Listings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls["/v1/listings"].Load(), "second call should be served from cache")
	assert.Equal(t, int32(1), calls["/v1/accessTokens"].Load())

	client.Invalidate()
	_, err = client.Listings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls["/v1/listings"].Load())
}

func TestReservations(t *testing.T) {
	client, _ := fakeHostaway(t, map[string]string{
		"/v1/reservations": `{"status":"success","result":[
			{"id": 9, "listingMapId": 101, "guestName": "Ana", "arrivalDate": "2024-05-01",
			 "departureDate": "2024-05-04", "nights": 3, "totalPrice": 412.5, "currency": "EUR",
			 "status": "new", "channelName": "airbnb"}
		]}`,
	})

	got, err := client.Reservations(t.Context(), 101, "2024-05-01", "2024-05-31")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ana", got[0].GuestName)
	assert.Equal(t, 3, got[0].Nights)
	assert.True(t, got[0].TotalPrice.Equal(decimal.RequireFromString("412.5")))
	assert.Equal(t, "airbnb", got[0].Channel)
}

func TestReviews_ToModel(t *testing.T) {
	client, _ := fakeHostaway(t, map[string]string{
		"/v1/reviews": `{"status":"success","result":[
			{"id": 7, "listingMapId": 101, "guestName": "Ana", "rating": 9, "publicReview": "Great",
			 "channelName": "airbnb", "submittedAt": "2024-05-05 10:00:00"},
			{"id": 8, "listingMapId": 101, "guestName": "Rui", "rating": null}
		]}`,
	})

	reviews, err := client.Reviews(t.Context(), 101)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	synced := time.Unix(1715000000, 0)
	m := reviews[0].ToModel(3, synced)
	assert.Equal(t, int64(3), m.PropertyID)
	assert.Equal(t, 9, m.Rating)
	assert.Equal(t, time.Date(2024, 5, 5, 10, 0, 0, 0, time.UTC).Unix(), m.SubmittedAt)
	assert.Equal(t, synced.Unix(), m.SyncedAt)

	unrated := reviews[1].ToModel(3, synced)
	assert.Zero(t, unrated.Rating)
	assert.Zero(t, unrated.SubmittedAt)
}

func TestClientErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		client := New(Config{BaseURL: "http://127.0.0.1:1"})
		assert.False(t, client.Configured())
		_, err := client.Listings(t.Context())
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("failed status in envelope", func(t *testing.T) {
		client, _ := fakeHostaway(t, map[string]string{
			"/v1/listings": `{"status":"fail","message":"Invalid listing"}`,
		})
		_, err := client.Listings(t.Context())
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Contains(t, err.Error(), "Invalid listing")
	})

	t.Run("failed fetch is not cached", func(t *testing.T) {
		client, calls := fakeHostaway(t, map[string]string{
			"/v1/reviews": `not json`,
		})
		_, err := client.Reviews(t.Context(), 1)
		assert.ErrorIs(t, err, ErrUpstream)
		_, err = client.Reviews(t.Context(), 1)
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Equal(t, int32(2), calls["/v1/reviews"].Load())
	})
}
