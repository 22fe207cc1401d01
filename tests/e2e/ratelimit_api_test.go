package e2e

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/webprobe/apitest"
)

// The fixture's /limited endpoint allows a burst of 2 per X-Client-Id, so the
// third immediate request is deterministically rejected.

func TestRateLimit_ThirdRequestRejected(t *testing.T) {
	client, _ := newAPIClient(t)
	ctx := context.Background()
	clientID := uuid.NewString()

	for i := 0; i < 2; i++ {
		res, err := client.Get(ctx, "/limited", apitest.WithHeader("X-Client-Id", clientID))
		require.NoError(t, err)
		apitest.VerifyStatus(t, res, http.StatusOK)
	}

	res, err := client.Get(ctx, "/limited", apitest.WithHeader("X-Client-Id", clientID))
	require.NoError(t, err, "a 429 is a response, not an error")

	apitest.VerifyStatus(t, res, http.StatusTooManyRequests)
	apitest.VerifyHeader(t, res, "Retry-After", "1")
	apitest.VerifyResponseContains(t, res, map[string]any{
		"code": "resource_exhausted",
	})
}

func TestRateLimit_ClientsAreIndependent(t *testing.T) {
	client, _ := newAPIClient(t)
	ctx := context.Background()

	first := uuid.NewString()
	for i := 0; i < 3; i++ {
		_, err := client.Get(ctx, "/limited", apitest.WithHeader("X-Client-Id", first))
		require.NoError(t, err)
	}

	// A different client id starts with a fresh bucket.
	res, err := client.Get(ctx, "/limited", apitest.WithHeader("X-Client-Id", uuid.NewString()))
	require.NoError(t, err)
	apitest.VerifyStatus(t, res, http.StatusOK)
}
