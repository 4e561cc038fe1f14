package handler

import (
	"net/http"
	"strconv"
	"strings"

	"mkopo/internal/repository"
	"mkopo/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UploadHandler struct {
	cloud    cloudinary.Client
	loanRepo *repository.LoanRepository
}

func NewUploadHandler(cloud cloudinary.Client, loanRepo *repository.LoanRepository) *UploadHandler {
	return &UploadHandler{cloud: cloud, loanRepo: loanRepo}
}

// UploadIDDocument attaches a photographed ID document to a loan application.
func (h *UploadHandler) UploadIDDocument(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if _, err := h.loanRepo.GetApplicationByID(uint(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "loan application not found"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	folder := "mkopo/kyc/" + strconv.FormatUint(id, 10)
	publicID := "doc_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	url, err := h.cloud.UploadDocument(c.Request.Context(), f, folder, publicID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	if err := h.loanRepo.SetIDDocumentURL(uint(id), url); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save document"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
