package httpgin

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/seatcore/internal/repository"
	"github.com/kirinyoku/seatcore/internal/service/reservation"
)

func respond(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondErr(c, err)
	return w
}

func TestRespondErrOwnershipIsForbidden(t *testing.T) {
	// Releasing a seat held by someone else is an authorization failure,
	// not a seat-availability conflict.
	w := respond(t, fmt.Errorf("service: seat st-A-1: %w", repository.ErrNotOwner))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not the holder")
}

func TestRespondErrUnavailableIsConflict(t *testing.T) {
	w := respond(t, fmt.Errorf("service: %w", reservation.ErrSeatsUnavailable))
	assert.Equal(t, http.StatusConflict, w.Code)
}
