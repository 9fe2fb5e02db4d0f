package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UploadResponse is the wire shape of the upload endpoints.
type UploadResponse struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

func RespondOK(c *gin.Context, message string) {
	c.JSON(http.StatusOK, UploadResponse{OK: true, Message: message})
}

func RespondError(c *gin.Context, status int, message string) {
	c.JSON(status, UploadResponse{OK: false, Message: message})
}
