package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardrobeapi/catalog"
	"wardrobeapi/models"
	"wardrobeapi/services"
	"wardrobeapi/test"
)

type testServer struct {
	e          *echo.Echo
	store      *test.MemoryWardrobeStore
	storage    *test.StorageMock
	remover    *test.RemoverMock
	classifier *test.ClassifierMock
	generator  *test.GeneratorMock
	analyzer   *test.AnalyzerMock
}

func setupTestServer() *testServer {
	cfg := test.TestConfig()
	ts := &testServer{
		store:      test.NewMemoryWardrobeStore(),
		storage:    test.NewStorageMock(),
		remover:    &test.RemoverMock{},
		classifier: &test.ClassifierMock{Result: services.ClassificationResult{Analysis: services.DefaultClothingAnalysis()}},
		generator:  &test.GeneratorMock{Image: []byte("png-bytes")},
		analyzer:   &test.AnalyzerMock{},
	}
	uploads := &services.ClothingUploadService{
		Storage:    ts.storage,
		Remover:    ts.remover,
		Classifier: ts.classifier,
		Store:      ts.store,
		Resolver:   &services.ImageURLResolver{Storage: ts.storage, TTL: cfg.Storage.SignedURLTTL},
		Taxonomy:   catalog.Default(),
		MaxBytes:   cfg.MaxUploadBytes,
	}
	fitting := services.NewFittingService(ts.generator, ts.analyzer)
	ts.e = SetupServer(cfg, ts.store, uploads, fitting)
	return ts
}

func garmentFile(filename string) test.FormFile {
	return test.FormFile{Field: "file", Filename: filename, ContentType: "image/jpeg", Content: test.GarmentJPEG()}
}

func userPk(user models.UserAccount) string {
	return strconv.FormatUint(uint64(user.ID), 10)
}

func TestUploadClothesOk(t *testing.T) {
	ts := setupTestServer()
	user := test.FakeUser(ts.store)

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/clothes", userPk(user), map[string]string{
		"name":     "Blue Jeans",
		"category": "pants",
		"color":    "藍色",
	}, garmentFile("jeans.jpg"))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var response models.UploadClothesOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "上傳成功", response.Message)
	assert.Equal(t, "Blue Jeans", response.Item.Name)
	assert.Equal(t, "褲子", response.Item.Category)
	assert.Equal(t, "藍色", response.Item.Color)
	assert.Equal(t, "小美", response.Item.OwnerDisplayName)
	assert.Nil(t, response.Item.DaysInactive)
	assert.True(t, strings.HasPrefix(response.Item.Img, "https://signed.example.com/test-bucket/"), response.Item.Img)

	assert.Equal(t, []string{"下身/Blue_Jeans.jpg"}, ts.storage.ObjectNames())
	stored, _ := ts.storage.Object("下身/Blue_Jeans.jpg")
	assert.True(t, bytes.Equal(test.GarmentJPEG(), stored.Data))
	assert.Equal(t, "image/jpeg", stored.MimeType)

	require.Len(t, ts.store.Items, 1)
	item := ts.store.Items[0]
	assert.Equal(t, false, item.Attributes[models.AttrBackgroundRemoved])
	assert.Equal(t, "gs://test-bucket/下身/Blue_Jeans.jpg", item.ImageURL)
	assert.Equal(t, 0, ts.remover.Calls)
	assert.Equal(t, 0, ts.classifier.Calls)
}

func TestUploadClothesSkirtSharesLowerBodyPrefix(t *testing.T) {
	ts := setupTestServer()
	user := test.FakeUser(ts.store)

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/clothes", userPk(user), map[string]string{
		"name":     "Pleated",
		"category": "裙子",
	}, garmentFile("skirt.jpg"))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"下身/Pleated.jpg"}, ts.storage.ObjectNames())
}

func TestUploadClothesRemoveBackground(t *testing.T) {
	ts := setupTestServer()
	user := test.FakeUser(ts.store)

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/clothes", userPk(user), map[string]string{
		"name":      "Tee",
		"remove_bg": "true",
	}, garmentFile("tee.jpg"))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	stored, ok := ts.storage.Object("上衣/Tee.png")
	require.True(t, ok, "stored objects: %v", ts.storage.ObjectNames())
	assert.Equal(t, "image/png", stored.MimeType)
	assert.True(t, test.IsPNG(stored.Data))
	assert.Equal(t, true, ts.store.Items[0].Attributes[models.AttrBackgroundRemoved])
}

func TestUploadClothesAIDetect(t *testing.T) {
	ts := setupTestServer()
	ts.classifier.Result = test.DerivedAnalysis("洋裝", "紅色", "正式")
	user := test.FakeUser(ts.store)

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/clothes", userPk(user), map[string]string{
		"ai_detect": "1",
		"remove_bg": "yes",
		"tags":      `["summer"]`,
	}, garmentFile("photo.jpg"))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var response models.UploadClothesOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "洋裝", response.Item.Category)
	assert.Equal(t, "紅色", response.Item.Color)
	assert.Equal(t, "AI辨識的洋裝", response.Item.Name)

	item := ts.store.Items[0]
	assert.Equal(t, []string{"summer", "正式"}, []string(item.Tags))
	// The classifier sees the photo as uploaded, not the matted PNG.
	assert.Equal(t, test.GarmentJPEG(), ts.classifier.Received)
	assert.Equal(t, "photo.jpg", ts.classifier.Filename)
}

func TestUploadClothesMalformedOptionalFields(t *testing.T) {
	ts := setupTestServer()
	user := test.FakeUser(ts.store)

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/clothes", userPk(user), map[string]string{
		"tags":       "not json",
		"attributes": "{broken",
	}, garmentFile("item.jpg"))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := ts.store.Items[0]
	assert.Equal(t, []string{"休閒"}, []string(item.Tags))
	assert.Equal(t, map[string]interface{}{models.AttrBackgroundRemoved: false}, map[string]interface{}(item.Attributes))
}

func TestUploadClothesUnauthorized(t *testing.T) {
	ts := setupTestServer()

	req := test.NewMultipartRequest("POST", "/api/v1/upload/clothes", map[string]string{"name": "x"}, garmentFile("x.jpg"))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, ts.storage.ObjectNames())
}

func TestUploadClothesUnknownUser(t *testing.T) {
	ts := setupTestServer()

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/clothes", "999", nil, garmentFile("x.jpg"))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadClothesEmptySubject(t *testing.T) {
	ts := setupTestServer()

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/clothes", "", nil, garmentFile("x.jpg"))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadClothesStorageFailure(t *testing.T) {
	ts := setupTestServer()
	ts.storage.UploadErr = errors.New("bucket unavailable")
	user := test.FakeUser(ts.store)

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/clothes", userPk(user), nil, garmentFile("x.jpg"))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "上傳失敗")
	assert.Contains(t, response["error"], "bucket unavailable")
	assert.Empty(t, ts.store.Items)
}

func TestUploadClothesPersistenceFailure(t *testing.T) {
	ts := setupTestServer()
	ts.store.CreateErr = errors.New("connection reset")
	user := test.FakeUser(ts.store)

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/clothes", userPk(user), nil, garmentFile("x.jpg"))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection reset")
}

func TestUploadClothesMissingFile(t *testing.T) {
	ts := setupTestServer()
	user := test.FakeUser(ts.store)

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/clothes", userPk(user), map[string]string{"name": "x"})
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadClothesInvalidPrice(t *testing.T) {
	ts := setupTestServer()
	user := test.FakeUser(ts.store)

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/clothes", userPk(user), map[string]string{"price_ntd": "cheap"}, garmentFile("x.jpg"))
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadGeneralOk(t *testing.T) {
	ts := setupTestServer()
	user := test.FakeUser(ts.store)

	req := test.NewMultipartAuthRequest("POST", "/api/v1/upload/general", userPk(user), map[string]string{
		"db_category": "avatars",
	}, test.FormFile{Field: "file", Filename: "me.png", ContentType: "image/png", Content: test.TransparentPNG()})
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var response models.GeneralUploadOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "檔案上傳成功", response.Message)
	prefix := "gs://test-bucket/avatars/" + userPk(user) + "/"
	assert.True(t, strings.HasPrefix(response.StorageLocation, prefix), response.StorageLocation)
	assert.True(t, strings.HasSuffix(response.StorageLocation, ".png"))
	assert.True(t, strings.HasPrefix(response.ImageURL, "https://signed.example.com/"))
	assert.Empty(t, ts.store.Items)
}
