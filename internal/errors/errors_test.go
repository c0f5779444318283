package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"statlab/domain/core"
)

func TestWrapKeepsCode(t *testing.T) {
	base := NotFound("analysis")
	wrapped := Wrapf(base, "loading %s", "abc")

	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.Equal(t, "loading abc: analysis not found", wrapped.Error())
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Equal(t, CodeInternalError, GetCode(Wrap(fmt.Errorf("boom"), "x")))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid variable", core.NewInvalidVariableError("age", ""), http.StatusUnprocessableEntity},
		{"insufficient data", core.NewInsufficientDataError("t", 2, 1), http.StatusUnprocessableEntity},
		{"insufficient groups", core.NewInsufficientGroupsError("anova", 2, 1), http.StatusUnprocessableEntity},
		{"singular", core.NewSingularMatrixError("X'X"), http.StatusUnprocessableEntity},
		{"unsupported", core.NewUnsupportedTestError("magic"), http.StatusBadRequest},
		{"capability", core.NewCapabilityError("factor-analysis"), http.StatusForbidden},
		{"convergence", core.NewConvergenceError("logistic", 25), http.StatusInternalServerError},
		{"not found", NotFound("analysis"), http.StatusNotFound},
		{"too large", TooLarge("rows"), http.StatusRequestEntityTooLarge},
		{"wrapped domain", fmt.Errorf("run: %w", core.NewCapabilityError("x")), http.StatusForbidden},
		{"unknown", stderrors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestFromDomainKeepsCause(t *testing.T) {
	cause := core.NewInvalidVariableError("score", "")
	err := FromDomain(cause)

	assert.Equal(t, CodeValidationError, GetCode(err))
	assert.True(t, core.IsInvalidVariableError(err))
	assert.Same(t, err, FromDomain(err))
}
