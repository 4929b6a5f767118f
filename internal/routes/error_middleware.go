package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type errorStruct struct {
	Succeed bool     `json:"success"`
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Code    []string `json:"code,omitempty"`
}

// ErrorHandler captures errors and returns a consistent error response:
// JSON for API callers, the error page otherwise. An expired login sends
// page requests back to the login form.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		statusCode := GetErrorStatus(err)
		errorInfo := GetErrorInfo(err)

		if statusCode >= 500 {
			slog.Error("Request failed with server error",
				"error", err,
				"status", statusCode,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
		} else if statusCode >= 400 {
			slog.Warn("Request failed with client error",
				"error", err,
				"status", statusCode,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
		}

		if c.Writer.Written() {
			return
		}

		// Collect all the stop codes from all wrapped errors
		var stopCodes []string
		for _, _err := range c.Errors {
			stopCodes = append(stopCodes, GetErrorInfo(_err.Err).StopCodes...)
		}
		response := errorStruct{
			Succeed: false,
			Status:  "error",
			Message: errorInfo.Message,
			Code:    stopCodes,
		}

		if wantsJSON(c) {
			c.AbortWithStatusJSON(statusCode, response)
			return
		}
		if statusCode == http.StatusUnauthorized {
			clearAuthCookie(c)
			c.Redirect(http.StatusFound, loginURL(c))
			c.Abort()
			return
		}
		slog.Debug("Returning error page HTML", "code", statusCode, "message", errorInfo.Message)
		HTML(c, statusCode, "error.html.tmpl", gin.H{"Error": response, "Code": statusCode})
		c.Abort()
	}
}

// AbortWithError is a helper function to abort the request with an error
// and add it to the Gin error chain for the ErrorHandler middleware
func AbortWithError(c *gin.Context, err error) {
	statusCode := GetErrorStatus(err)
	_ = c.Error(err)
	c.Abort()
	// Set the status code so gin knows not to send 200
	c.Status(statusCode)
}

// AbortWithHTTPError is a helper to abort with a custom HTTPError
func AbortWithHTTPError(c *gin.Context, statusCode int, err error, message string, stopCodes ...string) {
	httpErr := NewHTTPError(statusCode, err, message, stopCodes...)
	_ = c.Error(httpErr)
	c.Abort()
	c.Status(statusCode)
}
