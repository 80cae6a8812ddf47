package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	app "imghost/src/app"
	db "imghost/src/repository"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type (
	// ObjectStore is the slice of the bucket adapter the handlers need.
	// app.MinioS3Client implements it; tests substitute a fake.
	ObjectStore interface {
		Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
		Fetch(ctx context.Context, key string) ([]byte, string, error)
		Delete(ctx context.Context, key string) error
	}

	AppHandler struct {
		dataStore db.Store
		s3        ObjectStore
	}

	DeleteImageBody struct {
		Username  string `json:"username"`
		Category  string `json:"category"`
		ImageName string `json:"image_name"`
	}

	CreateCategoryBody struct {
		Username     string `json:"username"`
		CategoryName string `json:"category_name"`
	}
)

// NewHandler wires the handlers to a catalog store and an object store. Both
// are injected; handlers hold no ambient state.
func NewHandler(dataStore db.Store, s3 ObjectStore) *AppHandler {
	return &AppHandler{
		dataStore: dataStore,
		s3:        s3,
	}
}

func (a *AppHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GetImage proxies stored bytes back through the web layer so clients never
// talk to the object store directly.
func (a *AppHandler) GetImage(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image key in path"})
		return
	}
	data, contentType, err := a.s3.Fetch(c.Request.Context(), key)
	if errors.Is(err, app.ErrObjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("can not fetch image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "can not fetch image from store"})
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

func (a *AppHandler) PostUpload(c *gin.Context) {
	// Validate at the boundary; the object store is never touched when a
	// required field is missing.
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	username := strings.TrimSpace(c.PostForm("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}
	category := strings.TrimSpace(c.PostForm("category"))

	filename := path.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if filename == "" || filename == "." || filename == "/" {
		filename = uuid.NewString()
	}
	key := username + "/" + filename
	if category != "" {
		key = username + "/" + category + "/" + filename
	}

	var buffer bytes.Buffer
	if _, err := io.Copy(&buffer, file); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if err := a.s3.Upload(c.Request.Context(), key, &buffer, int64(buffer.Len()), contentType); err != nil {
		log.Error().Err(err).Str("key", key).Msg("can not upload image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "can not upload image to store"})
		return
	}
	if _, err := a.dataStore.AddImage(c.Request.Context(), username, key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("can not record image")
		c.JSON(statusFromErr(err), gin.H{"error": "can not record image"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Upload successful", "url": "/image/" + key})
}

func (a *AppHandler) GetImages(c *gin.Context) {
	result := []string{}
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.JSON(http.StatusOK, result)
		return
	}
	category := strings.TrimSpace(c.Query("category"))

	refs, err := a.dataStore.ListImages(c.Request.Context(), username, category)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("can not list images")
		c.JSON(statusFromErr(err), gin.H{"error": "can not fetch images"})
		return
	}
	for _, ref := range refs {
		result = append(result, refToURL(ref))
	}
	c.JSON(http.StatusOK, result)
}

// DeleteImage removes both the stored object and the catalog row. Success is
// reported only when both deletions succeed; a partial failure is surfaced,
// not repaired.
func (a *AppHandler) DeleteImage(c *gin.Context) {
	var requestBody DeleteImageBody
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	username := strings.TrimSpace(requestBody.Username)
	category := strings.TrimSpace(requestBody.Category)
	imageName := strings.TrimSpace(requestBody.ImageName)
	if username == "" || category == "" || imageName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, category and image_name are required"})
		return
	}
	key := fmt.Sprintf("%s/%s/%s", username, category, imageName)

	if err := a.s3.Delete(c.Request.Context(), key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("can not delete image from store")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "can not delete image from store"})
		return
	}
	if err := a.dataStore.DeleteImage(c.Request.Context(), username, key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("image record was not removed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image record was not removed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}

func (a *AppHandler) GetCategories(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.JSON(http.StatusOK, []app.Category{})
		return
	}
	categories, err := a.dataStore.ListCategories(c.Request.Context(), username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("can not list categories")
		c.JSON(statusFromErr(err), gin.H{"error": "can not fetch categories"})
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (a *AppHandler) PostCategory(c *gin.Context) {
	var requestBody CreateCategoryBody
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	username := strings.TrimSpace(requestBody.Username)
	name := strings.TrimSpace(requestBody.CategoryName)
	if username == "" || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "username and category_name are required"})
		return
	}
	result, err := a.dataStore.CreateCategory(c.Request.Context(), username, name)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("can not create category")
		c.JSON(statusFromErr(err), gin.H{"success": false, "error": "can not create category"})
		return
	}
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// refToURL maps a stored reference to something a client can load: full URLs
// pass through, hierarchical object keys go via the proxy route.
func refToURL(ref string) string {
	if strings.Contains(ref, "://") {
		return ref
	}
	return "/image/" + ref
}

func statusFromErr(err error) int {
	switch {
	case errors.Is(err, db.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, db.ErrNotFound), errors.Is(err, app.ErrObjectNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
