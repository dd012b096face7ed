package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yofam/upload-service/internal/models"
	"github.com/yofam/upload-service/internal/upload"
	"go.uber.org/zap"
)

// UploadService defines the interface for upload service operations
type UploadService interface {
	// Method GetMetadataByID retrieves an upload record by its ID.
	GetMetadataByID(ctx context.Context, id string) (*models.Upload, error)
	// Method UploadFile runs one file through the validation pipeline and
	// records its metadata on acceptance.
	UploadFile(ctx context.Context, category models.UploadCategory, in upload.IncomingFile, baseURL string) (*models.Upload, error)
	// Method DeleteFile removes a stored file and its metadata record.
	DeleteFile(ctx context.Context, category models.UploadCategory, filename string) error
	// Method GetFileReader opens a stored file for reading.
	GetFileReader(category models.UploadCategory, filename string) (io.ReadCloser, error)
	// Method GetFile opens a stored file as *os.File for range-request serving.
	GetFile(category models.UploadCategory, filename string) (*os.File, error)
}

// UploadHandler handles upload-related HTTP requests
type UploadHandler struct {
	BaseHandler
	uploadService UploadService
	baseURL       string
	maxFiles      int
	authMw        func(http.Handler) http.Handler
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService UploadService, logger *zap.Logger, baseURL string, maxFiles int, authMw func(http.Handler) http.Handler) *UploadHandler {
	return &UploadHandler{
		BaseHandler:   BaseHandler{Logger: logger},
		uploadService: uploadService,
		baseURL:       baseURL,
		maxFiles:      maxFiles,
		authMw:        authMw,
	}
}

// GetMetadata handles GET /uploads/{id}
// @Summary Get upload metadata
// @Description Retrieve metadata information for an accepted upload by its ID
// @Tags uploads
// @Accept json
// @Produce json
// @Param id path string true "Upload ID"
// @Success 200 {object} models.Upload
// @Failure 404 {object} map[string]string "Upload not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /uploads/{id} [get]
func (h *UploadHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.uploadService.GetMetadataByID(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.Logger.Info("upload not found", zap.String("id", id))
			h.RespondError(w, http.StatusNotFound, "upload not found")
			return
		}
		h.Logger.Error("failed to get upload metadata", zap.Error(err), zap.String("id", id))
		h.RespondError(w, http.StatusInternalServerError, "failed to get upload metadata")
		return
	}

	h.RespondJSON(w, http.StatusOK, record)
}

// UploadFiles handles POST /uploads/{category}
// @Summary Upload files
// @Description Validate and store one or more files. Each part is checked against the category's type profile, its magic bytes, and a script-content scan before it is accepted. Requires API key authentication.
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param category path string true "Upload category"
// @Param files formData file true "Files to upload"
// @Param X-API-Key header string true "API Key"
// @Success 201 {array} models.Upload
// @Failure 400 {object} map[string]string "Rejected upload"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 413 {object} map[string]string "File too large"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /uploads/{category} [post]
func (h *UploadHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	category := models.UploadCategory(chi.URLParam(r, "category"))
	if !category.Valid() {
		h.RespondError(w, http.StatusBadRequest, "invalid upload category")
		return
	}

	// Read parts directly off the wire instead of ParseMultipartForm so the
	// pipeline can enforce the size ceiling mid-transfer without the whole
	// payload being spooled first.
	mr, err := r.MultipartReader()
	if err != nil {
		h.Logger.Error("failed to read multipart body", zap.Error(err))
		h.RespondError(w, http.StatusBadRequest, "failed to parse request")
		return
	}

	var accepted []*models.Upload
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			h.rollback(r.Context(), category, accepted)
			h.Logger.Error("failed to read multipart part", zap.Error(err))
			h.RespondError(w, http.StatusBadRequest, "failed to parse request")
			return
		}

		if part.FormName() != "files" || part.FileName() == "" {
			part.Close()
			continue
		}

		if len(accepted) >= h.maxFiles {
			part.Close()
			h.rollback(r.Context(), category, accepted)
			h.RespondError(w, http.StatusBadRequest, "too many files in request")
			return
		}

		in := upload.IncomingFile{
			OriginalName:     part.FileName(),
			DeclaredMimeType: partContentType(part.Header.Get("Content-Type")),
			Body:             part,
		}

		record, err := h.uploadService.UploadFile(r.Context(), category, in, h.baseURL)
		part.Close()
		if err != nil {
			// One bad file rejects the whole request; files already
			// accepted in this request are removed again.
			h.rollback(r.Context(), category, accepted)
			h.respondUploadError(w, in.OriginalName, err)
			return
		}

		accepted = append(accepted, record)
	}

	if len(accepted) == 0 {
		h.RespondError(w, http.StatusBadRequest, "at least one file is required")
		return
	}

	h.RespondJSON(w, http.StatusCreated, accepted)
}

// DownloadFile handles GET /uploads/{category}/{filename}
// @Summary Download an uploaded file
// @Description Download a stored file. Image files are public, other categories require authentication. Voice/video support range requests.
// @Tags uploads
// @Accept json
// @Produce application/octet-stream
// @Param category path string true "Upload category"
// @Param filename path string true "File name"
// @Param Range header string false "Range"
// @Success 200 "File content"
// @Success 206 "Partial file content (for range requests)"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "File not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /uploads/{category}/{filename} [get]
func (h *UploadHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	category := models.UploadCategory(chi.URLParam(r, "category"))
	filename := chi.URLParam(r, "filename")

	if !category.Valid() {
		h.RespondError(w, http.StatusBadRequest, "invalid upload category")
		return
	}

	// Image files are public, everything else requires auth
	if category != models.CategoryImage && h.authMw != nil {
		fileHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.serveFile(w, r, category, filename)
		})
		h.authMw(fileHandler).ServeHTTP(w, r)
		return
	}

	h.serveFile(w, r, category, filename)
}

// serveFile serves the actual file content
func (h *UploadHandler) serveFile(w http.ResponseWriter, r *http.Request, category models.UploadCategory, filename string) {
	record, err := h.uploadService.GetMetadataByID(r.Context(), filename)
	if err != nil {
		h.Logger.Error("failed to get metadata for download", zap.Error(err))
		h.RespondError(w, http.StatusNotFound, "file not found")
		return
	}

	// Voice and video get range request support
	if category == models.CategoryVoice || category == models.CategoryVideo {
		file, err := h.uploadService.GetFile(category, filename)
		if err != nil {
			if os.IsNotExist(err) {
				h.RespondError(w, http.StatusNotFound, "file not found")
				return
			}
			h.Logger.Error("failed to open file", zap.Error(err))
			h.RespondError(w, http.StatusInternalServerError, "failed to open file")
			return
		}
		defer file.Close()

		fileInfo, err := file.Stat()
		if err != nil {
			h.Logger.Error("failed to get file info", zap.Error(err))
			h.RespondError(w, http.StatusInternalServerError, "failed to get file info")
			return
		}

		http.ServeContent(w, r, filename, fileInfo.ModTime(), file)
		return
	}

	reader, err := h.uploadService.GetFileReader(category, filename)
	if err != nil {
		if os.IsNotExist(err) {
			h.RespondError(w, http.StatusNotFound, "file not found")
			return
		}
		h.Logger.Error("failed to open file", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to open file")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", record.ContentType)

	if _, err := io.Copy(w, reader); err != nil {
		h.Logger.Error("failed to copy file to response", zap.Error(err))
	}
}

// DeleteFile handles DELETE /uploads/{category}/{filename}
// @Summary Delete an uploaded file
// @Description Delete a stored file and its metadata. Requires API key authentication.
// @Tags uploads
// @Accept json
// @Produce json
// @Param category path string true "Upload category"
// @Param filename path string true "File name"
// @Param X-API-Key header string true "API Key"
// @Success 204 "File and metadata deleted successfully"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "File not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /uploads/{category}/{filename} [delete]
func (h *UploadHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	category := models.UploadCategory(chi.URLParam(r, "category"))
	filename := chi.URLParam(r, "filename")

	if !category.Valid() {
		h.RespondError(w, http.StatusBadRequest, "invalid upload category")
		return
	}

	err := h.uploadService.DeleteFile(r.Context(), category, filename)
	if err != nil {
		if strings.Contains(err.Error(), "not found") || os.IsNotExist(err) {
			h.Logger.Error("file not found", zap.String("filename", filename), zap.String("category", string(category)))
			h.RespondError(w, http.StatusNotFound, "file not found")
			return
		}
		if errors.Is(err, upload.ErrUnsafeFilename) {
			h.RespondError(w, http.StatusBadRequest, "invalid file name")
			return
		}
		h.Logger.Error("failed to delete file", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondUploadError maps a pipeline rejection to the client-facing status
// and message. Anything that is not a rejection is a storage failure.
func (h *UploadHandler) respondUploadError(w http.ResponseWriter, originalName string, err error) {
	switch {
	case errors.Is(err, upload.ErrFileTooLarge):
		h.RespondError(w, http.StatusRequestEntityTooLarge, "file exceeds the maximum allowed size")
	case errors.Is(err, upload.ErrUnsupportedExtension):
		h.RespondError(w, http.StatusBadRequest, "file extension is not allowed for this category")
	case errors.Is(err, upload.ErrUnsupportedMimeType):
		h.RespondError(w, http.StatusBadRequest, "file type is not allowed for this category")
	case errors.Is(err, upload.ErrUnsafeFilename):
		h.RespondError(w, http.StatusBadRequest, "file name contains unsafe characters")
	case errors.Is(err, upload.ErrSignatureMismatch):
		h.RespondError(w, http.StatusBadRequest, "file content does not match its declared type")
	case errors.Is(err, upload.ErrMaliciousContent):
		h.RespondError(w, http.StatusBadRequest, "file appears to contain malicious content")
	case upload.IsRejection(err):
		h.RespondError(w, http.StatusBadRequest, "upload rejected")
	default:
		h.Logger.Error("failed to store upload",
			zap.String("original_name", originalName),
			zap.Error(err),
		)
		h.RespondError(w, http.StatusInternalServerError, "failed to store file")
	}
}

// rollback removes files accepted earlier in a request that is being
// rejected as a whole
func (h *UploadHandler) rollback(ctx context.Context, category models.UploadCategory, accepted []*models.Upload) {
	for _, record := range accepted {
		if err := h.uploadService.DeleteFile(ctx, category, record.ID); err != nil {
			h.Logger.Error("failed to roll back accepted file",
				zap.String("id", record.ID),
				zap.Error(err),
			)
		}
	}
}

// partContentType normalizes the Content-Type of a multipart part
func partContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType
}
