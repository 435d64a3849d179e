package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teteocan/aurora-admin/services/audit"
	"go.uber.org/zap"
)

func TestHandleHealth(t *testing.T) {
	logger := zap.NewNop()

	t.Run("always returns healthy", func(t *testing.T) {
		handler := NewHealthHandler(nil, nil, nil, logger)
	
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
	
		handler.HandleHealth(w, req)
	
		assert.Equal(t, http.StatusOK, w.Code)
	
		var response map[string]interface{}
		err := json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
	
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "healthy", data["status"])
		assert.NotEmpty(t, data["timestamp"])
	})
}

func TestHandleReadiness(t *testing.T) {
	logger := zap.NewNop()

	t.Run("healthy when database is available", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
	
		// Expect ping
		mock.ExpectPing()
	
		// Expect SELECT 1 query
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	
		handler := NewHealthHandler(db, nil, nil, logger)
	
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()
	
		handler.HandleReadiness(w, req)
	
		assert.Equal(t, http.StatusOK, w.Code)
	
		var response map[string]interface{}
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
	
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "healthy", data["status"])
	
		checks := data["checks"].(map[string]interface{})
		assert.Equal(t, "healthy", checks["database"])
	
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unhealthy when database ping fails", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
	
		// Expect ping to fail
		mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	
		handler := NewHealthHandler(db, nil, nil, logger)
	
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()
	
		handler.HandleReadiness(w, req)
	
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	
		var response map[string]interface{}
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
	
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "unhealthy", data["status"])
	
		checks := data["checks"].(map[string]interface{})
		assert.Equal(t, "unhealthy", checks["database"])
	
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unhealthy when database query fails", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
	
		// Expect ping to succeed
		mock.ExpectPing()
	
		// Expect SELECT 1 query to fail
		mock.ExpectQuery("SELECT 1").WillReturnError(sql.ErrConnDone)
	
		handler := NewHealthHandler(db, nil, nil, logger)
	
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()
	
		handler.HandleReadiness(w, req)
	
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	
		var response map[string]interface{}
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
	
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "unhealthy", data["status"])
	
		checks := data["checks"].(map[string]interface{})
		assert.Equal(t, "unhealthy", checks["database"])
	
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("healthy when no database configured", func(t *testing.T) {
		handler := NewHealthHandler(nil, nil, nil, logger)
	
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()
	
		handler.HandleReadiness(w, req)
	
		assert.Equal(t, http.StatusOK, w.Code)
	
		var response map[string]interface{}
		err := json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
	
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "healthy", data["status"])
	
		checks := data["checks"].(map[string]interface{})
		assert.Equal(t, "healthy", checks["database"])
	})
	t.Run("audit database failure makes service unready", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		auditDB, auditMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer auditDB.Close()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		auditMock.ExpectPing().WillReturnError(sql.ErrConnDone)

		handler := NewHealthHandler(db, auditDB, nil, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		checks := response["data"].(map[string]interface{})["checks"].(map[string]interface{})
		assert.Equal(t, "healthy", checks["database"])
		assert.Equal(t, "unhealthy", checks["audit_database"])

		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, auditMock.ExpectationsWereMet())
	})

	t.Run("reports stopped audit pipeline without failing", func(t *testing.T) {
		handler := NewHealthHandler(nil, nil, stubAuditStats{}, logger)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		checks := response["data"].(map[string]interface{})["checks"].(map[string]interface{})
		assert.Equal(t, "stopped", checks["audit"])
	})
}

type stubAuditStats struct{ started bool }

func (s stubAuditStats) GetStats() audit.Stats { return audit.Stats{Started: s.started} }
