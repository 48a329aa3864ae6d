package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgclass/pkg/types"
)

const testBase = "http://svc.test"

func newMockedClient(t *testing.T, cfg Config) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	cfg.HTTPClient = &http.Client{Transport: mt}
	if cfg.BaseURL == "" {
		cfg.BaseURL = testBase
	}
	cfg.Logger = zerolog.Nop()
	c, err := New(cfg)
	require.NoError(t, err)
	return c, mt
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	_, err = New(Config{BaseURL: "ftp://x"})
	require.Error(t, err)
	c, err := New(Config{BaseURL: "http://svc.test/api/", RetrainDataPath: "upload_retrain_images"})
	require.NoError(t, err)
	assert.Equal(t, "http://svc.test/api", c.BaseURL())
	assert.Equal(t, "http://svc.test/api/upload_retrain_images", c.endpointURL(c.retrainDataPath))
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestPredictLibrary_SendsJSONBody(t *testing.T) {
	c, mt := newMockedClient(t, Config{})
	mt.RegisterResponder(http.MethodPost, testBase+"/predict_lib", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
		var body types.PredictLibRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, err
		}
		assert.Equal(t, "7", body.ImageID)
		return httpmock.NewJsonResponse(http.StatusOK, types.PredictionResponse{Prediction: "cat"})
	})

	res, err := c.PredictLibrary(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "cat", res.Prediction)
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestPredictUpload_SendsMultipartImageField(t *testing.T) {
	c, mt := newMockedClient(t, Config{})
	mt.RegisterResponder(http.MethodPost, testBase+"/predict_upload", func(req *http.Request) (*http.Response, error) {
		require.NoError(t, req.ParseMultipartForm(1<<20))
		f, hdr, err := req.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "cat.png", hdr.Filename)
		assert.Equal(t, []byte("raw-image"), b)
		return httpmock.NewStringResponse(http.StatusOK, `{"prediction":"dog"}`), nil
	})

	res, err := c.PredictUpload(context.Background(), "cat.png", []byte("raw-image"))
	require.NoError(t, err)
	assert.Equal(t, "dog", res.Prediction)
}

func TestPredict_ErrorFieldOnServerError(t *testing.T) {
	c, mt := newMockedClient(t, Config{})
	mt.RegisterResponder(http.MethodPost, testBase+"/predict_lib",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error":"bad image"}`))

	res, err := c.PredictLibrary(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "bad image", res.Error)
	assert.Empty(t, res.Prediction)
}

func TestPredict_NonJSONIsDecodeError(t *testing.T) {
	c, mt := newMockedClient(t, Config{})
	mt.RegisterResponder(http.MethodPost, testBase+"/predict_lib",
		httpmock.NewStringResponder(http.StatusInternalServerError, "<html>boom</html>"))

	_, err := c.PredictLibrary(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, IsDecode(err))
	assert.False(t, IsTransport(err))
}

func TestPredict_TransportError(t *testing.T) {
	c, mt := newMockedClient(t, Config{})
	mt.RegisterResponder(http.MethodPost, testBase+"/predict_upload",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.PredictUpload(context.Background(), "a.png", []byte{1})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestGetImage_StatusAndCache(t *testing.T) {
	c, mt := newMockedClient(t, Config{ImageCacheTTL: time.Minute})
	mt.RegisterResponder(http.MethodGet, testBase+"/image/3", httpmock.NewBytesResponder(http.StatusOK, []byte("img3")))
	mt.RegisterResponder(http.MethodGet, testBase+"/image/404", httpmock.NewStringResponder(http.StatusNotFound, "nope"))

	b, err := c.GetImage(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, []byte("img3"), b)
	b, err = c.GetImage(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, []byte("img3"), b)
	assert.Equal(t, 1, mt.GetCallCountInfo()["GET "+testBase+"/image/3"], "second read should be served from cache")

	_, err = c.GetImage(context.Background(), "404")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetImage_NoCacheWhenTTLZero(t *testing.T) {
	c, mt := newMockedClient(t, Config{})
	mt.RegisterResponder(http.MethodGet, testBase+"/image/3", httpmock.NewBytesResponder(http.StatusOK, []byte("img3")))
	for i := 0; i < 2; i++ {
		_, err := c.GetImage(context.Background(), "3")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, mt.GetTotalCallCount())
}

func TestUploadRetrainArchive_UsesConfiguredPath(t *testing.T) {
	c, mt := newMockedClient(t, Config{RetrainDataPath: "/upload_retrain_images"})
	mt.RegisterResponder(http.MethodPost, testBase+"/upload_retrain_images", func(req *http.Request) (*http.Response, error) {
		require.NoError(t, req.ParseMultipartForm(1<<20))
		f, _, err := req.FormFile("zip_file")
		require.NoError(t, err)
		f.Close()
		return httpmock.NewStringResponse(http.StatusOK, `{"message":"Uploaded 3 images."}`), nil
	})

	res, err := c.UploadRetrainArchive(context.Background(), "new.zip", []byte("PK"))
	require.NoError(t, err)
	assert.Equal(t, "Uploaded 3 images.", res.Message)
}

func TestStartRetrain_DecodesMessageOn500(t *testing.T) {
	c, mt := newMockedClient(t, Config{})
	mt.RegisterResponder(http.MethodPost, testBase+"/retrain",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"message":"Retraining error: disk full"}`))

	res, err := c.StartRetrain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.RetrainID)
	assert.Equal(t, "Retraining error: disk full", res.Message)
}

func TestRetrainStatus(t *testing.T) {
	c, mt := newMockedClient(t, Config{})
	mt.RegisterResponder(http.MethodGet, testBase+"/retrain_status/r1",
		httpmock.NewStringResponder(http.StatusOK, `{"status":"completed","progress":100,"message":"done","metrics":{"metrics_table":"acc=0.9"}}`))
	mt.RegisterResponder(http.MethodGet, testBase+"/retrain_status/gone",
		httpmock.NewStringResponder(http.StatusNotFound, `{"error":"unknown retrain id"}`))

	st, err := c.RetrainStatus(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, st.Terminal())
	require.NotNil(t, st.Metrics)
	assert.Equal(t, "acc=0.9", st.Metrics.MetricsTable)

	_, err = c.RetrainStatus(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestClientMetricsExposed(t *testing.T) {
	c, mt := newMockedClient(t, Config{})
	mt.RegisterResponder(http.MethodPost, testBase+"/retrain", httpmock.NewStringResponder(http.StatusOK, `{"retrain_id":"r9"}`))
	_, err := c.StartRetrain(context.Background())
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, bytes.Contains(rr.Body.Bytes(), []byte("imgclass_client_requests_total")))
}
