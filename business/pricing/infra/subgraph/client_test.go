package subgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

var (
	weth = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	link = common.HexToAddress("0x53E0bca35eC356BD5ddDFebbD1Fc0fD03FaBad39")
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL + "/subgraphs/id/abc"}, logger.NewDiscard())
	require.NoError(t, err)
	return c
}

func TestToken0Price(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/subgraphs/id/abc", r.URL.Path)

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "token0Price")
		assert.Equal(t, "0x7ceb23fd6bc0add59e62ac25578270cff1b9f619", req.Variables["token0"])
		assert.Equal(t, "0x53e0bca35ec356bd5dddfebbd1fc0fd03fabad39", req.Variables["token1"])

		_, _ = w.Write([]byte(`{"data":{"pairs":[{"token0Price":"0.00471"},{"token0Price":"9"}]}}`))
	})

	price, err := c.Token0Price(context.Background(), weth, link)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("0.00471")), "got %s", price)
}

func TestToken0Price_NoPair(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"pairs":[]}}`))
	})

	for i := 0; i < 7; i++ {
		_, err := c.Token0Price(context.Background(), weth, link)
		require.Error(t, err)
		// Missing pairs never trip the breaker.
		assert.True(t, apperror.HasCode(err, apperror.CodePairNotFound))
	}
}

func TestToken0Price_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"graphql error", http.StatusOK, `{"errors":[{"message":"indexer unavailable"}]}`},
		{"http error", http.StatusServiceUnavailable, `down`},
		{"garbage", http.StatusOK, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Token0Price(context.Background(), weth, link)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeSubgraphQueryFailed))
		})
	}
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Config{}, logger.NewDiscard())
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))
}
