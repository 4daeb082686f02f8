package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equipviz/equipviz/pkg/contract"
)

func newTestEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestUploadLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		lifecycle := newUploadLifecycle(newTestEntry())
		require.Nil(t, lifecycle.advance(ctx, triggerValidate))
		require.Nil(t, lifecycle.advance(ctx, triggerAggregate))
		require.Nil(t, lifecycle.advance(ctx, triggerPersist))
		assert.Equal(t, statePersisted, lifecycle.state())
	})

	t.Run("steps cannot be skipped", func(t *testing.T) {
		lifecycle := newUploadLifecycle(newTestEntry())
		cErr := lifecycle.advance(ctx, triggerPersist)
		require.NotNil(t, cErr)
		assert.Equal(t, contract.ErrorCode_INTERNAL_ERROR, cErr.Code)
		assert.Equal(t, stateReceived, lifecycle.state())
	})

	t.Run("reject returns its cause", func(t *testing.T) {
		lifecycle := newUploadLifecycle(newTestEntry())
		require.Nil(t, lifecycle.advance(ctx, triggerValidate))

		cause := contract.NewError(contract.ErrorCode_DUPLICATE_TITLE, "taken")
		assert.Same(t, cause, lifecycle.reject(ctx, cause))
		assert.Equal(t, stateRejected, lifecycle.state())

		require.NotNil(t, lifecycle.advance(ctx, triggerAggregate))
	})
}

func TestOwnerLocks(t *testing.T) {
	locks := newOwnerLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("alice")
			defer unlock()

			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			mu.Lock()
			holders--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, locks.size())

	unlockAlice := locks.Lock("alice")
	unlockBob := locks.Lock("bob")
	assert.Equal(t, 2, locks.size())
	unlockAlice()
	unlockBob()
	assert.Zero(t, locks.size())
}
