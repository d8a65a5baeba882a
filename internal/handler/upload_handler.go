package handler

import (
	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/pkg/cloudinary"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	uploads *cloudinary.Client
}

func NewUploadHandler(uploads *cloudinary.Client) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Image uploads a multipart image and returns its public URL. Used for
// avatars and dispute evidence.
func (h *UploadHandler) Image(c *gin.Context) {
	if h.uploads == nil {
		respondError(c, apierr.Unavailable("uploads are not configured"))
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, apierr.Validation("file is required"))
		return
	}
	defer file.Close()
	if header.Size > 10<<20 {
		respondError(c, apierr.Validation("file exceeds 10MB"))
		return
	}
	url, err := h.uploads.UploadImage(c.Request.Context(), file, header.Filename)
	if err != nil {
		respondError(c, apierr.Unavailable("upload failed").Wrap(err))
		return
	}
	respondOK(c, gin.H{"url": url})
}
