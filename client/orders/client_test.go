package orders

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"
)

const testAPI = "http://dashboard.example.com/api"

func newTestClient() *Client {
	c := NewClient(testAPI+"/", "secret-token", time.Second)
	gock.InterceptClient(c.httpClient)
	return c
}

func TestRecentOrders(t *testing.T) {
	defer gock.Off()

	gock.New(testAPI).
		Get("/orders").
		MatchParam("page", "1").
		MatchParam("limit", "10").
		MatchHeader("Authorization", "^Bearer secret-token$").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": 42, "createdAt": "2024-03-01T12:00:00Z", "customer": "cus_1", "customerName": "Ali", "amount": 50000, "status": "pending"},
				{"id": "", "createdAt": "2024-03-01T12:00:00Z"},
				{"id": "43", "createdAt": "2024-03-01T11:00:00Z", "amount": 12.5},
			},
		})

	list, err := newTestClient().RecentOrders(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, Order{
		ID:           "42",
		Customer:     "cus_1",
		CustomerName: "Ali",
		Amount:       50000,
		Status:       "pending",
		CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}, list[0])
	assert.Equal(t, ID("43"), list[1].ID)
	assert.True(t, gock.IsDone())
}

func TestRecentOrdersAuthError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		gock.New(testAPI).Get("/orders").Reply(status)

		_, err := newTestClient().RecentOrders(context.Background(), 10)
		assert.True(t, IsAuthError(err), "status %d", status)

		var authErr *AuthError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, status, authErr.StatusCode)
		gock.Off()
	}
}

func TestRecentOrdersServerError(t *testing.T) {
	defer gock.Off()
	gock.New(testAPI).Get("/orders").Reply(http.StatusBadGateway).BodyString("upstream down\n")

	_, err := newTestClient().RecentOrders(context.Background(), 10)
	assert.EqualError(t, err, "unexpected status 502 on GET /orders?limit=10&page=1: upstream down")
	assert.False(t, IsAuthError(err))
}

func TestRecentOrdersInvalidBody(t *testing.T) {
	defer gock.Off()
	gock.New(testAPI).Get("/orders").Reply(http.StatusOK).BodyString("<html>")

	_, err := newTestClient().RecentOrders(context.Background(), 10)
	assert.ErrorContains(t, err, "decoding orders")
}
