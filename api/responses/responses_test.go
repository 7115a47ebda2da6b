package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
	"github.com/orderdesk/orderdesk-backend/pkg/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()

	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "world", envelope.Data["hello"])
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]int{"count": 3})

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestWriteErrorValidationExposesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
		WithDetails(map[string]any{"field": "quantity"})
	WriteError(context.Background(), nil, rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	assert.Equal(t, "quantity must be positive", envelope.Error.Message)
	require.NotNil(t, envelope.Error.Details)
}

func TestWriteErrorStateConflictStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeStateConflict, "shipment already voided"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	envelope := decodeError(t, rec)
	assert.Equal(t, "STATE_CONFLICT", envelope.Error.Code)
	assert.Equal(t, "shipment already voided", envelope.Error.Message)
}

func TestWriteErrorDependencyHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp: connection refused"), "redis ping")
	WriteError(context.Background(), nil, rec, err)

	envelope := decodeError(t, rec)
	assert.Equal(t, "DEPENDENCY_ERROR", envelope.Error.Code)
	assert.NotContains(t, envelope.Error.Message, "dial tcp")
}

func TestWriteErrorUncodedBecomesInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	envelope := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
	assert.NotContains(t, envelope.Error.Message, "boom")
}

func TestWriteErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
