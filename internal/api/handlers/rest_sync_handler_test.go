package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/api/handlers"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/models"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/services"
)

func setupSyncRouter(mockSvc *MockOfferService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewRestSyncHandler(mockSvc)

	r := gin.New()
	r.GET("/v1/sync/status", handler.Status)
	r.POST("/v1/sync/retry", handler.Retry)
	r.POST("/v1/sync/deadletter/retry", handler.RetryDeadLetters)
	return r
}

func TestRestSyncHandler_Status(t *testing.T) {
	mockSvc := new(MockOfferService)
	r := setupSyncRouter(mockSvc)

	mockSvc.On("SyncStatus").Return(services.SyncStatusReport{
		PendingCount:    2,
		DeadLetterCount: 1,
		Syncing:         true,
		DeadLetters:     []*models.PendingAction{{OfferID: "O9", Kind: models.SyncActionAccept}},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/sync/status", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, float64(2), respBody["pending_count"])
	assert.Equal(t, float64(1), respBody["dead_letter_count"])
	assert.Equal(t, true, respBody["syncing"])
	mockSvc.AssertExpectations(t)
}

func TestRestSyncHandler_Retry_Success(t *testing.T) {
	mockSvc := new(MockOfferService)
	r := setupSyncRouter(mockSvc)

	mockSvc.On("RetrySyncQueue", mock.Anything).Return(nil)
	mockSvc.On("SyncStatus").Return(services.SyncStatusReport{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/sync/retry", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRestSyncHandler_Retry_Failure(t *testing.T) {
	mockSvc := new(MockOfferService)
	r := setupSyncRouter(mockSvc)

	mockSvc.On("RetrySyncQueue", mock.Anything).Return(errors.New("drain interrupted"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/sync/retry", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	mockSvc.AssertNotCalled(t, "SyncStatus")
}

func TestRestSyncHandler_RetryDeadLetters(t *testing.T) {
	mockSvc := new(MockOfferService)
	r := setupSyncRouter(mockSvc)

	mockSvc.On("ForceRetryDeadLetters", mock.Anything).Return(3, nil)
	mockSvc.On("SyncStatus").Return(services.SyncStatusReport{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/sync/deadletter/retry", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, float64(3), respBody["retried"])
	mockSvc.AssertExpectations(t)
}
