package server

import (
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Static page shells. The gallery and link pages are populated client-side
// from /api/images and /api/categories.

const loginPage = `<!DOCTYPE html>
<html>
<head><title>imghost - login</title></head>
<body>
<form action="/auth" method="get">
    <input id="username-input" name="username" placeholder="username">
    <input id="password-input" name="password" type="password" placeholder="password">
    <button type="submit">Log in</button>
</form>
</body>
</html>`

const galleryPage = `<!DOCTYPE html>
<html>
<head><title>imghost - gallery</title></head>
<body>
<div id="image-grid"></div>
<script src="/static/images/grid.js"></script>
</body>
</html>`

const linksPage = `<!DOCTYPE html>
<html>
<head><title>imghost - links</title></head>
<body>
<ul id="image-links"></ul>
<script src="/static/images/links.js"></script>
</body>
</html>`

func authPage(username string) []byte {
	return []byte(fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>imghost</title></head>
<body>
<p>Logged in as <span id="username-display">%s</span></p>
<a href="/gallery">gallery</a> <a href="/links">links</a>
</body>
</html>`, html.EscapeString(username)))
}

func (a *AppHandler) Root(c *gin.Context) {
	c.Data(http.StatusOK, contentTypeHTML, []byte(loginPage))
}

func (a *AppHandler) Gallery(c *gin.Context) {
	c.Data(http.StatusOK, contentTypeHTML, []byte(galleryPage))
}

func (a *AppHandler) Links(c *gin.Context) {
	c.Data(http.StatusOK, contentTypeHTML, []byte(linksPage))
}
