package server

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	assert.Nil(t, NewClient("  "))
	assert.Equal(t, "http://127.0.0.1:8787", NewClient("127.0.0.1:8787").base)
	assert.Equal(t, "https://evm.example.com", NewClient("https://evm.example.com/").base)
}

func TestClientAgainstService(t *testing.T) {
	s := newService(newSource())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(srv.URL)
	require.NotNil(t, c)
	assert.True(t, c.Healthy(ctx))

	_, err := c.FetchPortfolio(ctx)
	require.ErrorIs(t, err, ErrNotLoaded)

	s.pollOnce(ctx)

	pf, err := c.FetchPortfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pf.Projects)
	assert.InDelta(t, 200, pf.TotalAC, 1e-9)

	road, err := c.FetchProject(ctx, "Road")
	require.NoError(t, err)
	assert.True(t, road.HasData)

	_, err = c.FetchProject(ctx, "Harbor")
	require.ErrorIs(t, err, ErrProjectNotFound)

	st, err := c.FetchStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.PollCount)
	assert.Equal(t, 1, st.Summary.WithData)

	events, err := c.FetchEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventSnapshot, events[0].Type)
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := srv.URL
	srv.Close()

	c := NewClient(addr)
	assert.False(t, c.Healthy(context.Background()))
	_, err := c.FetchStatus(context.Background())
	require.Error(t, err)
}
