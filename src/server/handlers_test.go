package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	app "imghost/src/app"
	db "imghost/src/repository"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjectStore implements ObjectStore in memory and counts adapter calls
// so tests can assert the store was never touched on validation failures.
type fakeObjectStore struct {
	objects   map[string][]byte
	uploads   int
	uploadErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	f.uploads++
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStore) Fetch(_ context.Context, key string) ([]byte, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", app.ErrObjectNotFound
	}
	return data, "image/png", nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	if _, ok := f.objects[key]; !ok {
		return app.ErrObjectNotFound
	}
	delete(f.objects, key)
	return nil
}

func newTestServer() (*gin.Engine, *fakeObjectStore) {
	gin.SetMode(gin.TestMode)
	objects := newFakeObjectStore()
	handler := NewHandler(db.NewMemoryStore(), objects)
	return NewRouter(handler), objects
}

func doRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, username, category, filename string, content []byte) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	if username != "" {
		require.NoError(t, writer.WriteField("username", username))
	}
	if category != "" {
		require.NoError(t, writer.WriteField("category", category))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, url string, payload any) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestPages(t *testing.T) {
	router, _ := newTestServer()

	for _, route := range []string{"/", "/gallery", "/links", "/health"} {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, route, nil))
		assert.Equal(t, http.StatusOK, w.Code, "route %s", route)
	}

	w := doRequest(router, httptest.NewRequest(http.MethodGet, "/fake_route", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuth(t *testing.T) {
	router, _ := newTestServer()

	t.Run("MissingUsername", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/auth", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Username parameter is required")
	})

	t.Run("WhitespaceUsername", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/auth?username=%20%20%20&password=pw", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("FirstLoginCreatesUser", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/auth?username=alice&password=hunter2", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "username-display")
		assert.Contains(t, w.Body.String(), "alice")
	})

	t.Run("WrongPassword", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/auth?username=alice&password=wrong", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("ReturningSessionWithoutPassword", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/auth?username=alice", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("UnknownUserWithoutPassword", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/auth?username=stranger", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUploadValidation(t *testing.T) {
	router, objects := newTestServer()

	t.Run("MissingFile", func(t *testing.T) {
		w := doRequest(router, uploadRequest(t, "bob", "", "", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MissingUsername", func(t *testing.T) {
		w := doRequest(router, uploadRequest(t, "", "", "test.png", []byte("fake image")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	assert.Zero(t, objects.uploads, "object store must not be invoked on validation failure")
}

func TestUploadListRoundTrip(t *testing.T) {
	router, objects := newTestServer()

	w := doRequest(router, uploadRequest(t, "alice", "pets", "dog.jpg", []byte("fake image")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var uploaded struct {
		Message string `json:"message"`
		URL     string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	assert.Equal(t, "/image/alice/pets/dog.jpg", uploaded.URL)
	assert.Contains(t, objects.objects, "alice/pets/dog.jpg")

	t.Run("ListedUnderItsCategory", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/api/images?username=alice&category=pets", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var refs []string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refs))
		assert.Contains(t, refs, "/image/alice/pets/dog.jpg")
	})

	t.Run("ExcludedFromOtherCategory", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/api/images?username=alice&category=travel", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var refs []string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refs))
		assert.NotContains(t, refs, "/image/alice/pets/dog.jpg")
		assert.Empty(t, refs)
	})

	t.Run("ProxyServesBytes", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/image/alice/pets/dog.jpg", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "fake image", w.Body.String())
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	})

	t.Run("ProxyMissingKey", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/image/alice/pets/ghost.jpg", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUploadStoreFailure(t *testing.T) {
	router, objects := newTestServer()
	objects.uploadErr = fmt.Errorf("bucket unavailable")

	w := doRequest(router, uploadRequest(t, "alice", "pets", "dog.jpg", []byte("x")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListImagesWithoutUsername(t *testing.T) {
	router, _ := newTestServer()

	for _, url := range []string{"/api/images", "/api/images?username=nobody"} {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String(), "url %s", url)
	}
}

func TestDeleteImage(t *testing.T) {
	router, objects := newTestServer()

	w := doRequest(router, uploadRequest(t, "alice", "pets", "dog.jpg", []byte("x")))
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("MissingFields", func(t *testing.T) {
		w := doRequest(router, jsonRequest(t, http.MethodDelete, "/api/images/delete",
			gin.H{"username": "alice"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DualSuccess", func(t *testing.T) {
		w := doRequest(router, jsonRequest(t, http.MethodDelete, "/api/images/delete",
			gin.H{"username": "alice", "category": "pets", "image_name": "dog.jpg"}))
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NotContains(t, objects.objects, "alice/pets/dog.jpg")

		list := doRequest(router, httptest.NewRequest(http.MethodGet, "/api/images?username=alice", nil))
		assert.JSONEq(t, "[]", list.Body.String())
	})

	t.Run("NeverExistedKeyFails", func(t *testing.T) {
		// object-store deletion fails first, so the whole operation reports
		// failure even though the catalog row is absent too
		w := doRequest(router, jsonRequest(t, http.MethodDelete, "/api/images/delete",
			gin.H{"username": "alice", "category": "pets", "image_name": "ghost.jpg"}))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCategories(t *testing.T) {
	router, _ := newTestServer()

	t.Run("Create", func(t *testing.T) {
		w := doRequest(router, jsonRequest(t, http.MethodPost, "/api/categories",
			gin.H{"username": "dave", "category_name": "photos"}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var result map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, true, result["success"])
	})

	t.Run("DuplicateRejected", func(t *testing.T) {
		w := doRequest(router, jsonRequest(t, http.MethodPost, "/api/categories",
			gin.H{"username": "dave", "category_name": "photos"}))
		require.Equal(t, http.StatusBadRequest, w.Code)
		var result map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, false, result["success"])
	})

	t.Run("MissingFields", func(t *testing.T) {
		w := doRequest(router, jsonRequest(t, http.MethodPost, "/api/categories",
			gin.H{"username": "eve"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "error")
	})

	t.Run("List", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/api/categories?username=dave", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var categories []app.Category
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &categories))
		require.Len(t, categories, 1)
		assert.Equal(t, "photos", categories[0].Name)
	})

	t.Run("ListWithoutUsername", func(t *testing.T) {
		w := doRequest(router, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})
}
