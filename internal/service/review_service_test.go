package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/vendors/hostaway"
)

func TestReviewService_SyncAndList(t *testing.T) {
	f := newFixture(t)
	client := newFakeHostaway()
	client.reviews[101] = []hostaway.Review{
		{ID: 11, ListingID: 101, GuestName: "Ana", Rating: ptr(8), SubmittedAt: "2024-03-01 10:00:00"},
		{ID: 12, ListingID: 101, GuestName: "Rui", Rating: ptr(10), SubmittedAt: "2024-03-05 10:00:00"},
		{ID: 13, ListingID: 101, GuestName: "Eva", SubmittedAt: "2024-02-01 10:00:00"},
	}
	client.failing[102] = hostaway.ErrUpstream

	svc := NewReviewService(f.store, client, nil)
	svc.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	_, err := svc.Sync(as(f.accountant))
	assert.ErrorIs(t, err, ErrForbidden)

	result, err := svc.Sync(as(f.admin))
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Properties: 2, Reviews: 3, Failed: 1}, result)

	list, err := svc.List(as(f.owner), f.loft.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Count)
	assert.Equal(t, int64(12), list.Reviews[0].ID)
	assert.Equal(t, int64(1_700_000_000), list.Reviews[0].SyncedAt)
	assert.True(t, list.AverageRating.Equal(decimal.NewFromInt(9)), "average %s", list.AverageRating)

	_, err = svc.List(as(f.other), f.loft.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// Syncing again replaces rather than duplicates.
	_, err = svc.Sync(as(f.admin))
	require.NoError(t, err)
	list, err = svc.List(as(f.admin), f.loft.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Count)
}

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    string
	}{
		{"none", nil, "0"},
		{"unrated only", []int{0, 0}, "0"},
		{"rounded", []int{10, 9, 9}, "9.33"},
		{"ignores unrated", []int{8, 0, 10}, "9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reviews []models.Review
			for _, r := range tt.ratings {
				reviews = append(reviews, models.Review{Rating: r})
			}
			got := AverageRating(reviews)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}
