package response

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"Pointage/pkg/errors"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.CheckInLimitReached, http.StatusConflict},
		{errors.AlreadyPresent, http.StatusConflict},
		{errors.NotPresent, http.StatusConflict},
		{errors.NoOpenRecord, http.StatusConflict},
		{errors.PauseAlreadyTaken, http.StatusConflict},
		{errors.AttendanceBusy, http.StatusConflict},
		{errors.InvalidRequest, http.StatusBadRequest},
		{errors.InvalidLocation, http.StatusBadRequest},
		{errors.Unauthorized, http.StatusUnauthorized},
		{errors.InvalidUserID, http.StatusUnauthorized},
		{errors.RateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("wrapped: %w", errors.NotPresent), http.StatusConflict},
		{fmt.Errorf("db down"), http.StatusInternalServerError},
		{errors.Definition{Code: "SOMETHING_ELSE"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}
