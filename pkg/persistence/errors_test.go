package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jbtestsuite/jbtest/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("test case error unwraps to sentinel", func(t *testing.T) {
		t.Parallel()

		err := persistence.NewTestCaseError("GetByID", "tc-123", persistence.ErrTestCaseNotFound)

		assert.True(t, persistence.IsTestCaseNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrTestCaseNotFound))
		assert.False(t, persistence.IsExecutionResultNotFound(err))
		assert.Contains(t, err.Error(), "GetByID")
		assert.Contains(t, err.Error(), "tc-123")
		assert.Contains(t, err.Error(), "test case not found")
	})

	t.Run("execution result error survives further wrapping", func(t *testing.T) {
		t.Parallel()

		inner := persistence.NewExecutionResultError("GetByID", "exec-1", persistence.ErrExecutionResultNotFound)
		err := fmt.Errorf("loading result: %w", inner)

		assert.True(t, persistence.IsExecutionResultNotFound(err))

		var target *persistence.ExecutionResultError
		assert.True(t, errors.As(err, &target))
		assert.Equal(t, "exec-1", target.ExecutionID)
	})

	t.Run("unrelated errors are not matched", func(t *testing.T) {
		t.Parallel()

		assert.False(t, persistence.IsTestCaseNotFound(errors.New("boom")))
		assert.False(t, persistence.IsTestCaseNotFound(nil))
	})
}
