package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSuccess(t *testing.T) {
	t.Run("steps run in order and results are collected", func(t *testing.T) {
		s := New(Options{})
		var order []string

		s.AddStep(func(ctx context.Context) (any, error) {
			order = append(order, "first")
			return 1, nil
		}, nil, "first")
		s.AddStep(func(ctx context.Context) (any, error) {
			order = append(order, "second")
			return 2, nil
		}, nil, "second")

		results, err := s.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []any{1, 2}, results)
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("compensations never run on success", func(t *testing.T) {
		s := New(Options{})
		compensated := false

		s.AddStep(func(ctx context.Context) (any, error) {
			return nil, nil
		}, func(ctx context.Context) error {
			compensated = true
			return nil
		}, "")

		_, err := s.Execute(context.Background())
		require.NoError(t, err)
		assert.False(t, compensated)
	})

	t.Run("empty saga succeeds", func(t *testing.T) {
		s := New(Options{})
		results, err := s.Execute(context.Background())
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestExecuteFailure(t *testing.T) {
	t.Run("first failure stops execution and compensates prior steps", func(t *testing.T) {
		s := New(Options{})
		boom := errors.New("step 2 failed")

		c1Calls := 0
		c2Calls := 0
		s.AddStep(func(ctx context.Context) (any, error) {
			return "ok", nil
		}, func(ctx context.Context) error {
			c1Calls++
			return nil
		}, "s1")
		s.AddStep(func(ctx context.Context) (any, error) {
			return nil, boom
		}, func(ctx context.Context) error {
			c2Calls++
			return nil
		}, "s2")

		thirdRan := false
		s.AddStep(func(ctx context.Context) (any, error) {
			thirdRan = true
			return nil, nil
		}, nil, "s3")

		results, err := s.Execute(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, results)

		assert.Equal(t, 1, c1Calls, "C1 must be invoked exactly once")
		assert.Equal(t, 0, c2Calls, "the failing step's compensation must never run")
		assert.False(t, thirdRan)
	})

	t.Run("compensations run in reverse order", func(t *testing.T) {
		s := New(Options{})
		var order []string

		for _, id := range []string{"a", "b", "c"} {
			id := id
			s.AddStep(func(ctx context.Context) (any, error) {
				return nil, nil
			}, func(ctx context.Context) error {
				order = append(order, id)
				return nil
			}, id)
		}
		s.AddStep(func(ctx context.Context) (any, error) {
			return nil, errors.New("last step fails")
		}, nil, "d")

		_, err := s.Execute(context.Background())
		require.Error(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, order)
	})

	t.Run("a failing compensation does not stop the rest", func(t *testing.T) {
		s := New(Options{})
		var order []string

		s.AddStep(func(ctx context.Context) (any, error) {
			return nil, nil
		}, func(ctx context.Context) error {
			order = append(order, "first")
			return nil
		}, "")
		s.AddStep(func(ctx context.Context) (any, error) {
			return nil, nil
		}, func(ctx context.Context) error {
			order = append(order, "broken")
			return errors.New("compensation broke")
		}, "")
		s.AddStep(func(ctx context.Context) (any, error) {
			return nil, errors.New("fail")
		}, nil, "")

		_, err := s.Execute(context.Background())
		require.Error(t, err)
		assert.Equal(t, []string{"broken", "first"}, order)
	})

	t.Run("steps without compensation are skipped during rollback", func(t *testing.T) {
		s := New(Options{})
		compensated := 0

		s.AddStep(func(ctx context.Context) (any, error) {
			return nil, nil
		}, func(ctx context.Context) error {
			compensated++
			return nil
		}, "reversible")
		s.AddStep(func(ctx context.Context) (any, error) {
			return nil, nil
		}, nil, "non-reversible")
		s.AddStep(func(ctx context.Context) (any, error) {
			return nil, errors.New("fail")
		}, nil, "failing")

		_, err := s.Execute(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, compensated)
	})

	t.Run("caller sees the original error", func(t *testing.T) {
		s := New(Options{})
		original := errors.New("original failure")

		s.AddStep(func(ctx context.Context) (any, error) {
			return nil, original
		}, nil, "")

		_, err := s.Execute(context.Background())
		assert.Equal(t, original, err)
	})

	t.Run("a panicking step triggers rollback", func(t *testing.T) {
		s := New(Options{})
		compensated := false

		s.AddStep(func(ctx context.Context) (any, error) {
			return nil, nil
		}, func(ctx context.Context) error {
			compensated = true
			return nil
		}, "")
		s.AddStep(func(ctx context.Context) (any, error) {
			panic("step blew up")
		}, nil, "")

		_, err := s.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
		assert.True(t, compensated)
	})
}

func TestAddStep(t *testing.T) {
	s := New(Options{})
	assert.Equal(t, 0, s.Len())

	s.AddStep(func(ctx context.Context) (any, error) { return nil, nil }, nil, "")
	s.AddStep(func(ctx context.Context) (any, error) { return nil, nil }, nil, "named")
	assert.Equal(t, 2, s.Len())
}
