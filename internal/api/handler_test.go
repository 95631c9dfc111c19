package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"inventory-service/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "not found maps to 404",
			err:      &apperr.NotFoundError{Entity: "order", ID: 7},
			expected: http.StatusNotFound,
		},
		{
			name:     "validation maps to 400",
			err:      &apperr.ValidationError{Field: "serials", Msg: "count mismatch"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "insufficient stock maps to 422",
			err:      &apperr.InsufficientStockError{Available: 1, Requested: 5},
			expected: http.StatusUnprocessableEntity,
		},
		{
			name:     "over-receipt maps to 422",
			err:      &apperr.OverReceiptError{OrderedQty: 10, ReceivedQty: 8, Requested: 5},
			expected: http.StatusUnprocessableEntity,
		},
		{
			name:     "invalid transition maps to 409",
			err:      &apperr.InvalidTransitionError{Entity: "order", From: "DELIVERED", To: "PENDING"},
			expected: http.StatusConflict,
		},
		{
			name:     "duplicate serial maps to 409",
			err:      &apperr.DuplicateSerialError{SerialNumber: "SN-1"},
			expected: http.StatusConflict,
		},
		{
			name:     "concurrency conflict maps to 409",
			err:      &apperr.ConcurrencyConflictError{Resource: "stock"},
			expected: http.StatusConflict,
		},
		{
			name:     "wrapped errors still map",
			err:      fmt.Errorf("failed to receive: %w", &apperr.UnknownLineError{OrderID: 1, ProductID: 9}),
			expected: http.StatusNotFound,
		},
		{
			name:     "unclassified errors map to 500",
			err:      errors.New("connection reset"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusForError(tt.err))
		})
	}
}

func TestRespondErrorFlagsRetryable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, &apperr.ConcurrencyConflictError{Resource: "stock"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"retryable":true`)
}

func TestActorIDHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		header string
		wantID int64
		wantOK bool
	}{
		{name: "valid id", header: "42", wantID: 42, wantOK: true},
		{name: "missing header", header: "", wantOK: false},
		{name: "non-numeric", header: "abc", wantOK: false},
		{name: "zero rejected", header: "0", wantOK: false},
		{name: "negative rejected", header: "-5", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
			if tt.header != "" {
				c.Request.Header.Set("X-Actor-ID", tt.header)
			}

			id, ok := actorID(c)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id)
			} else {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}
