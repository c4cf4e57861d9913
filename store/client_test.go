package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := New(Options{URL: fmt.Sprintf("redis://%s", mr.Addr())})
		require.NoError(t, err)
		require.NotNil(t, client)
		defer client.Close()

		assert.Equal(t, FailClosed, client.FailMode())
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := New(Options{
			URL:            "redis://localhost:1",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := New(Options{URL: "invalid://url"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})

	t.Run("fail mode is carried", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := New(Options{
			URL:      fmt.Sprintf("redis://%s", mr.Addr()),
			FailMode: FailOpen,
		})
		require.NoError(t, err)
		defer client.Close()

		assert.Equal(t, FailOpen, client.FailMode())
	})
}

func TestAvailable(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(Options{URL: fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	assert.True(t, client.Available(ctx))
	require.NoError(t, client.Ping(ctx))

	mr.Close()
	assert.False(t, client.Available(ctx))
	assert.Error(t, client.Ping(ctx))
}

func TestParseFailMode(t *testing.T) {
	tests := []struct {
		input   string
		want    FailMode
		wantErr bool
	}{
		{"", FailClosed, false},
		{"closed", FailClosed, false},
		{"fail-closed", FailClosed, false},
		{"open", FailOpen, false},
		{"fail-open", FailOpen, false},
		{"bogus", FailClosed, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("input=%q", tt.input), func(t *testing.T) {
			got, err := ParseFailMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFailModeString(t *testing.T) {
	assert.Equal(t, "fail-closed", FailClosed.String())
	assert.Equal(t, "fail-open", FailOpen.String())
}
