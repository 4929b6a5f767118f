package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"strings"

	"github.com/gin-gonic/gin"
)

// Helper function to generate a URL for a given path. Absolute URLs are
// returned unchanged.
func UrlFor(c *gin.Context, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	// Check for "/" prefix in path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", scheme, c.Request.Host, path)
}

// GetBaseURL automatically detects the base URL from the request
func GetBaseURL(c *gin.Context, configBaseURL string) string {
	// If BaseURL is explicitly configured, use it
	if configBaseURL != "" {
		return configBaseURL
	}

	// Auto-detect from request
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Request.Host)
}

// RenderTemplate executes a standalone template file of fsys, such as an
// email body, into a string.
func RenderTemplate(fsys fs.FS, path string, data any) (string, error) {
	tmpl, err := template.ParseFS(fsys, path)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
