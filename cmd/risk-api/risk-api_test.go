package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willbeason/review-risk/pkg/tables"
)

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealth_WrongMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	newMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSchema(t *testing.T) {
	rec := httptest.NewRecorder()
	newMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schema", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var columns []Column
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &columns))

	require.Len(t, columns, len(tables.Modeling.Fields()))
	assert.Equal(t, Column{
		Name:     tables.OrderIdFieldName,
		Type:     "utf8",
		Nullable: false,
		Comment:  "The Olist identifier of the order",
	}, columns[0])

	var target *Column
	for i := range columns {
		if columns[i].Name == tables.Target {
			target = &columns[i]
		}
	}
	require.NotNil(t, target)
	assert.Equal(t, "int64", target.Type)
	assert.False(t, target.Nullable)
}

func TestPredict(t *testing.T) {
	rec := httptest.NewRecorder()
	newMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predict", nil))

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.JSONEq(t, `{"error":"prediction is not implemented"}`, rec.Body.String())
}

func TestServe_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- serve(ctx, "127.0.0.1:0")
	}()

	cancel()

	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}
