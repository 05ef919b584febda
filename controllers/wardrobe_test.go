package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"wardrobeapi/models"
	"wardrobeapi/test"
)

func seedItem(t *testing.T, ts *testServer, user models.UserAccount, name, category, style string, tags ...string) {
	item := models.WardrobeItem{
		UserAccountID: user.ID,
		Name:          name,
		Category:      category,
		Style:         style,
		ImageURL:      "gs://test-bucket/" + category + "/" + name + ".jpg",
		Tags:          pq.StringArray(tags),
		Attributes:    datatypes.JSONMap{models.AttrBackgroundRemoved: false},
	}
	require.NoError(t, ts.store.CreateItem(context.Background(), &item))
}

func TestListWardrobeItemsOk(t *testing.T) {
	ts := setupTestServer()
	user := test.FakeUser(ts.store)
	other := test.FakeUser(ts.store)
	seedItem(t, ts, user, "Tee", "上衣", "休閒", "休閒")
	seedItem(t, ts, user, "Jeans", "褲子", "休閒", "denim")
	seedItem(t, ts, other, "Hidden", "上衣", "正式")

	req := test.NewJSONAuthRequest("GET", "/api/v1/wardrobe/items", userPk(user), nil)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.WardrobeListOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Items, 2)
	assert.Equal(t, "Jeans", response.Items[0].Name)
	assert.Equal(t, "Tee", response.Items[1].Name)
	for _, item := range response.Items {
		assert.Contains(t, item.Img, "https://signed.example.com/test-bucket/")
		assert.Equal(t, "小美", item.OwnerDisplayName)
	}
}

func TestListWardrobeItemsFilters(t *testing.T) {
	ts := setupTestServer()
	user := test.FakeUser(ts.store)
	seedItem(t, ts, user, "Tee", "上衣", "休閒")
	seedItem(t, ts, user, "Jeans", "褲子", "休閒", "denim")

	req := test.NewJSONAuthRequest("GET", "/api/v1/wardrobe/items?category="+url.QueryEscape("褲子"), userPk(user), nil)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.WardrobeListOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Items, 1)
	assert.Equal(t, "Jeans", response.Items[0].Name)
	assert.Equal(t, []string{"denim"}, response.Items[0].Tags)
}

func TestListWardrobeItemsRejectsUnknownCategory(t *testing.T) {
	ts := setupTestServer()
	user := test.FakeUser(ts.store)

	req := test.NewJSONAuthRequest("GET", "/api/v1/wardrobe/items?category=spaceship", userPk(user), nil)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListWardrobeItemsEmpty(t *testing.T) {
	ts := setupTestServer()
	user := test.FakeUser(ts.store)

	req := test.NewJSONAuthRequest("GET", "/api/v1/wardrobe/items", userPk(user), nil)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}
