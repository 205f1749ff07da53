package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foodgram/foodgram-api/internal/config"
	"github.com/foodgram/foodgram-api/internal/recipe"
)

type testApp struct {
	router *gin.Engine
	store  *recipe.SQLStore
	salt   recipe.Ingredient
	flour  recipe.Ingredient
	lunch  recipe.Tag
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	cfg := &config.Config{
		Env:      "test",
		LogLevel: "error",
		Server: config.ServerConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			RequestTimeout: 5 * time.Second,
		},
		Database: config.DatabaseConfig{Driver: "sqlite", URL: filepath.Join(dir, "foodgram.db")},
		Auth:     config.AuthConfig{Secret: "test-secret", TokenTTL: time.Hour},
		Media:    config.MediaConfig{Dir: filepath.Join(dir, "media"), URL: "/media/", MaxWidth: 800},
		Limits:   config.Limits{Min: 1, Max: 32000},
		PageSize: 6,
	}

	ctx := context.Background()
	store, err := recipe.NewSQLStore(ctx, cfg.Database.Driver, cfg.Database.URL)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	router, err := newRouter(cfg, zap.NewNop(), store)
	require.NoError(t, err)

	app := &testApp{
		router: router,
		store:  store,
		salt:   recipe.Ingredient{Name: "Salt", MeasurementUnit: "g"},
		flour:  recipe.Ingredient{Name: "Flour", MeasurementUnit: "g"},
		lunch:  recipe.Tag{Name: "Lunch", Color: "#E26C2D", Slug: "lunch"},
	}
	require.NoError(t, store.CreateIngredient(ctx, &app.salt))
	require.NoError(t, store.CreateIngredient(ctx, &app.flour))
	require.NoError(t, store.CreateTag(ctx, &app.lunch))
	return app
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// signUp registers a user and returns its id and token.
func (a *testApp) signUp(t *testing.T, username string) (int64, string) {
	t.Helper()
	email := username + "@example.com"
	w := a.do(t, http.MethodPost, "/api/users/", "", map[string]string{
		"email": email, "username": username, "first_name": "Test", "last_name": "User", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var user struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))

	w = a.do(t, http.MethodPost, "/api/auth/token/login/", "", map[string]string{"email": email, "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"auth_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	return user.ID, login.Token
}

func imageDataURI(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func (a *testApp) createRecipe(t *testing.T, token, name string, ingredients ...map[string]int64) map[string]any {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/recipes/", token, map[string]any{
		"name":         name,
		"text":         "Mix and bake.",
		"cooking_time": 30,
		"image":        imageDataURI(t),
		"tags":         []int64{a.lunch.ID},
		"ingredients":  ingredients,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestShoppingCartDownload(t *testing.T) {
	app := newTestApp(t)
	_, token := app.signUp(t, "alice")

	soup := app.createRecipe(t, token, "Soup", map[string]int64{"id": app.salt.ID, "amount": 4})
	bread := app.createRecipe(t, token, "Bread",
		map[string]int64{"id": app.salt.ID, "amount": 6},
		map[string]int64{"id": app.flour.ID, "amount": 500},
	)

	for _, r := range []map[string]any{soup, bread} {
		w := app.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%v/shopping_cart/", r["id"]), token, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := app.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/?format=txt", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Shopping list\nFlour, g: 500\nSalt, g: 10\n", w.Body.String())

	w = app.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))
}

func TestRecipeLifecycle(t *testing.T) {
	app := newTestApp(t)
	aliceID, alice := app.signUp(t, "alice")
	_, bob := app.signUp(t, "bob")

	created := app.createRecipe(t, alice, "Soup", map[string]int64{"id": app.salt.ID, "amount": 5})
	id := created["id"]
	assert.Equal(t, false, created["is_favorited"])

	imageURL, _ := created["image"].(string)
	require.True(t, strings.HasPrefix(imageURL, "/media/recipes/images/"), imageURL)
	w := app.do(t, http.MethodGet, imageURL, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%v/favorite/", id), bob, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%v/favorite/", id), bob, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/api/recipes/?is_favorited=1", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Count   int              `json:"count"`
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Equal(t, 1, page.Count)
	assert.Equal(t, true, page.Results[0]["is_favorited"])

	w = app.do(t, http.MethodPatch, fmt.Sprintf("/api/recipes/%v/", id), bob, map[string]any{
		"name": "Stolen", "text": "x", "cooking_time": 1,
		"tags": []int64{app.lunch.ID}, "ingredients": []map[string]int64{{"id": app.salt.ID, "amount": 1}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPatch, fmt.Sprintf("/api/recipes/%v/", id), alice, map[string]any{
		"name": "Salty soup", "text": "Boil.", "cooking_time": 40,
		"tags": []int64{app.lunch.ID}, "ingredients": []map[string]int64{{"id": app.flour.ID, "amount": 2}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"name":"Salty soup"`)
	assert.Contains(t, w.Body.String(), `"image":"`+imageURL+`"`)

	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/?recipes_limit=1", aliceID), bob, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"recipes_count":1`)

	w = app.do(t, http.MethodDelete, fmt.Sprintf("/api/recipes/%v/", id), alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = app.do(t, http.MethodGet, fmt.Sprintf("/api/recipes/%v/", id), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipeValidation(t *testing.T) {
	app := newTestApp(t)
	_, token := app.signUp(t, "alice")

	w := app.do(t, http.MethodPost, "/api/recipes/", token, map[string]any{
		"name": "Soup", "text": "Boil.", "cooking_time": 0, "image": imageDataURI(t),
		"tags":        []int64{app.lunch.ID, app.lunch.ID},
		"ingredients": []map[string]int64{{"id": 999, "amount": 1}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "cooking_time")
	assert.Contains(t, body.Errors, "tags")
}

func TestShoppingCartOfAnotherAuthorsRecipe(t *testing.T) {
	app := newTestApp(t)
	_, author := app.signUp(t, "alice")
	_, buyer := app.signUp(t, "bob")

	r := app.createRecipe(t, author, "Salted water", map[string]int64{"id": app.salt.ID, "amount": 10})
	w := app.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%v/shopping_cart/", r["id"]), buyer, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/?format=txt", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Shopping list\nSalt, g: 10\n", w.Body.String())

	w = app.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/?format=txt", author, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Shopping list\n", w.Body.String())
}

func TestShoppingCartDownloadCyrillicWithoutFont(t *testing.T) {
	app := newTestApp(t)
	_, token := app.signUp(t, "alice")

	sol := recipe.Ingredient{Name: "Соль", MeasurementUnit: "г"}
	require.NoError(t, app.store.CreateIngredient(context.Background(), &sol))
	r := app.createRecipe(t, token, "Борщ", map[string]int64{"id": sol.ID, "amount": 7})
	w := app.do(t, http.MethodPost, fmt.Sprintf("/api/recipes/%v/shopping_cart/", r["id"]), token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/recipes/download_shopping_cart/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Shopping list\nСоль, г: 7\n", w.Body.String())
}
