package ingesterr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusFromError_MapsKinds(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, StatusFromError(BadRequest("bad %s", "input")))
	require.Equal(t, http.StatusNotFound, StatusFromError(NotFound("missing %s", "source")))
	require.Equal(t, http.StatusBadGateway, StatusFromError(Dependency("qdrant down", errors.New("conn refused"))))
	require.Equal(t, http.StatusInternalServerError, StatusFromError(Internal(errors.New("boom"))))
	require.Equal(t, http.StatusInternalServerError, StatusFromError(errors.New("plain error")))
}

func TestWrap_NilCauseReturnsNil(t *testing.T) {
	require.Nil(t, Wrap(KindInternal, "msg", nil))
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Dependency("downstream failed", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "downstream failed")
	require.Contains(t, err.Error(), "root cause")
}

func TestAsResponse_MinimalBody(t *testing.T) {
	resp := AsResponse(BadRequest("oops"))
	require.Equal(t, "error", resp["status"])
	require.Equal(t, "oops", resp["error"])
}
