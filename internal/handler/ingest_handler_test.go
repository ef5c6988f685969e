package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"kb-ingest-go/pkg/tasks"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(publish func(job tasks.IngestJob) error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/ingest", NewIngestHandler(publish).Ingest)
	return r
}

func sampleJob() tasks.IngestJob {
	return tasks.IngestJob{
		FileID:      "f-1",
		Filename:    "faq.csv",
		GCSBucket:   "kb-uploads",
		GCSFilePath: "uploads/faq.csv",
		UserID:      "u-1",
		UserEmail:   "u@example.com",
		JWT:         "tok",
	}
}

func TestIngestRawJobBody(t *testing.T) {
	var published []tasks.IngestJob
	r := newTestRouter(func(job tasks.IngestJob) error {
		published = append(published, job)
		return nil
	})

	body, _ := json.Marshal(sampleJob())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, published, 1)
	assert.Equal(t, "faq.csv", published[0].Filename)
	assert.Equal(t, "kb-uploads", published[0].GCSBucket)
}

func TestIngestPushEnvelope(t *testing.T) {
	var published []tasks.IngestJob
	r := newTestRouter(func(job tasks.IngestJob) error {
		published = append(published, job)
		return nil
	})

	jobBytes, _ := json.Marshal(sampleJob())
	envelope := map[string]interface{}{
		"message": map[string]interface{}{
			"data":       base64.StdEncoding.EncodeToString(jobBytes),
			"attributes": map[string]string{"origin": "uploader"},
		},
	}
	body, _ := json.Marshal(envelope)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, published, 1)
	assert.Equal(t, "faq.csv", published[0].Filename)
}

func TestIngestInvalidPayload(t *testing.T) {
	published := 0
	r := newTestRouter(func(tasks.IngestJob) error {
		published++
		return nil
	})

	cases := []string{
		"not json at all",
		`{"message": {"data": "!!! not base64 !!!"}}`,
	}
	for _, body := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader([]byte(body)))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	assert.Zero(t, published)
}

func TestIngestPublishFailure(t *testing.T) {
	r := newTestRouter(func(tasks.IngestJob) error {
		return errors.New("kafka unavailable")
	})

	body, _ := json.Marshal(sampleJob())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIngestBackfillsIdentityFromJWT(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-99",
		"email":   "claims@example.com",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	var published []tasks.IngestJob
	r := newTestRouter(func(job tasks.IngestJob) error {
		published = append(published, job)
		return nil
	})

	job := sampleJob()
	job.UserID = ""
	job.UserEmail = ""
	job.JWT = signed
	body, _ := json.Marshal(job)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, published, 1)
	assert.Equal(t, "u-99", published[0].UserID)
	assert.Equal(t, "claims@example.com", published[0].UserEmail)
}
