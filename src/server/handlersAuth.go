package server

import (
	"errors"
	db "imghost/src/repository"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

// GetAuth handles GET /auth?username=&password=.
//
// An unknown username with a password registers the user; a known username
// with a password is checked against the stored hash; a known username
// without a password passes as a returning session. The last case is a
// convenience for re-entering pages after the initial login, not a security
// boundary.
func (a *AppHandler) GetAuth(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.Data(http.StatusBadRequest, contentTypeHTML, []byte("Username parameter is required"))
		return
	}
	password := c.Query("password")

	user, err := a.dataStore.Authenticate(c.Request.Context(), username, password)
	switch {
	case errors.Is(err, db.ErrAuth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	case errors.Is(err, db.ErrValidation):
		c.Data(http.StatusBadRequest, contentTypeHTML, []byte("Username parameter is required"))
		return
	case err != nil:
		log.Error().Err(err).Str("username", username).Msg("authentication failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, authPage(user.Username))
}
