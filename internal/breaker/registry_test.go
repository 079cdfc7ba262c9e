package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dizid/site-improver/internal/logger"
)

func TestRegistry_GetOrCreateReturnsSameInstance(t *testing.T) {
	r := NewRegistry(logger.New(), nil)

	a := r.GetOrCreate("scraper_api")
	b := r.GetOrCreate("scraper_api")
	assert.Same(t, a, b)

	c := r.GetOrCreate("ai_api")
	assert.NotSame(t, a, c)
}

func TestRegistry_UsesPerNameConfig(t *testing.T) {
	r := NewRegistry(logger.New(), map[string]Config{
		"scraper_api": {FailureThreshold: 2, ResetTimeout: 10 * time.Second},
	})

	configured := r.GetOrCreate("scraper_api").State()
	assert.Equal(t, 2, configured.FailureThreshold)
	assert.Equal(t, 10*time.Second, configured.ResetTimeout)

	fallback := r.GetOrCreate("image_api").State()
	assert.Equal(t, DefaultConfig().FailureThreshold, fallback.FailureThreshold)
}

func TestRegistry_ExecuteTracksFailuresPerName(t *testing.T) {
	r := NewRegistry(logger.New(), map[string]Config{
		"scraper_api": {FailureThreshold: 1, ResetTimeout: time.Minute},
	})

	_, err := r.Execute(context.Background(), "scraper_api", func(context.Context) (any, error) {
		return nil, errors.New("upstream 500")
	})
	require.Error(t, err)

	// scraper_api is now open, ai_api is untouched.
	var openErr *OpenError
	_, err = r.Execute(context.Background(), "scraper_api", func(context.Context) (any, error) {
		return nil, nil
	})
	require.ErrorAs(t, err, &openErr)

	got, err := r.Execute(context.Background(), "ai_api", func(context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestRegistry_StatesAndResetAll(t *testing.T) {
	r := NewRegistry(logger.New(), map[string]Config{
		"scraper_api": {FailureThreshold: 1, ResetTimeout: time.Minute},
	})

	_, _ = r.Execute(context.Background(), "scraper_api", func(context.Context) (any, error) {
		return nil, errors.New("down")
	})
	r.GetOrCreate("deploy_api")

	states := r.States()
	require.Len(t, states, 2)

	r.ResetAll()
	for _, snap := range r.States() {
		assert.Equal(t, StateClosed, snap.State)
		assert.Equal(t, 0, snap.FailureCount)
	}
}
