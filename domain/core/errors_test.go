package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{NewInvalidVariableError("age", ""), KindInvalidVariable},
		{NewInsufficientDataError("pearson correlation", 3, 2), KindInsufficientData},
		{NewInsufficientItemsError("reliability", 1), KindInsufficientData},
		{NewInsufficientGroupsError("one-way ANOVA", 2, 1), KindInsufficientGroups},
		{NewConvergenceError("logistic regression", 25), KindConvergence},
		{NewUnsupportedTestError("manova"), KindUnsupportedTest},
		{NewSingularMatrixError("predictors are collinear"), KindSingularMatrix},
		{NewCapabilityError("factor-analysis"), KindCapability},
		{errors.New("boom"), KindInternal},
		{nil, ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.kind, ErrorKind(tc.err), "kind for %v", tc.err)
	}
}

func TestErrorsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("run independent-t: %w", NewInsufficientGroupsError("independent t-test", 2, 1))

	assert.True(t, IsInsufficientGroupsError(err))
	assert.True(t, IsClientError(err))
	assert.False(t, IsConvergenceError(err))
	assert.Contains(t, err.Error(), "at least 2 groups")
}

func TestInsufficientItemsIsInsufficientData(t *testing.T) {
	err := NewInsufficientItemsError("reliability", 1)

	assert.True(t, errors.Is(err, ErrInsufficientItems))
	assert.True(t, IsInsufficientDataError(err))
}

func TestConvergenceIsNotClientError(t *testing.T) {
	assert.False(t, IsClientError(NewConvergenceError("varimax rotation", 100)))
}
