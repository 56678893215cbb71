package harness

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEnforcer(t *testing.T) {
	q := NewQuotaEnforcer(2)

	require.NoError(t, q.Check())
	require.NoError(t, q.Check())

	err := q.Check()
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))
	assert.Equal(t, "scenario exceeded max steps: 3 > 2", err.Error())
	assert.Equal(t, 3, q.Current())
}

func TestQuotaEnforcer_DefaultLimit(t *testing.T) {
	q := NewQuotaEnforcer(0)
	for i := 0; i < DefaultMaxSteps; i++ {
		require.NoError(t, q.Check())
	}
	assert.Error(t, q.Check())
}

func TestIsStepsExceededError_Wrapped(t *testing.T) {
	err := fmt.Errorf("source: %w", &StepsExceededError{Steps: 2, Limit: 1})
	assert.True(t, IsStepsExceededError(err))
	assert.False(t, IsStepsExceededError(fmt.Errorf("other")))
}
