package services

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/yofam/upload-service/internal/models"
	"github.com/yofam/upload-service/internal/upload"
)

// Ingester runs the validation pipeline for one inbound file
type Ingester interface {
	Ingest(ctx context.Context, category models.UploadCategory, in upload.IncomingFile) (*upload.StoredFile, error)
}

// FileStore defines the storage operations the service needs beyond
// ingestion
type FileStore interface {
	// Open opens a stored file for reading
	Open(dir, name string) (io.ReadCloser, error)

	// OpenFile opens a stored file as *os.File for http.ServeContent
	OpenFile(dir, name string) (*os.File, error)

	// Delete removes a stored file
	Delete(dir, name string) error
}

// UploadRepository defines the metadata data access interface
type UploadRepository interface {
	Create(ctx context.Context, upload *models.Upload) error
	GetByID(ctx context.Context, id string) (*models.Upload, error)
	DeleteByID(ctx context.Context, id string) error
}

// UploadService handles business logic for upload operations: it runs the
// validation pipeline and records accepted files' metadata
type UploadService struct {
	repo     UploadRepository
	pipeline Ingester
	store    FileStore
	registry *upload.Registry
}

// NewUploadService creates a new upload service
func NewUploadService(repo UploadRepository, pipeline Ingester, store FileStore, registry *upload.Registry) *UploadService {
	return &UploadService{
		repo:     repo,
		pipeline: pipeline,
		store:    store,
		registry: registry,
	}
}

// GetMetadataByID retrieves upload metadata by ID
func (s *UploadService) GetMetadataByID(ctx context.Context, id string) (*models.Upload, error) {
	return s.repo.GetByID(ctx, id)
}

// UploadFile runs one file through the validation pipeline and, on
// acceptance, records its metadata. If the metadata insert fails the stored
// file is deleted again so disk and database stay consistent.
func (s *UploadService) UploadFile(ctx context.Context, category models.UploadCategory, in upload.IncomingFile, baseURL string) (*models.Upload, error) {
	stored, err := s.pipeline.Ingest(ctx, category, in)
	if err != nil {
		return nil, err
	}

	profile, err := s.registry.ProfileFor(category)
	if err != nil {
		return nil, err
	}

	record := &models.Upload{
		ID:          stored.Name,
		ContentType: stored.DeclaredMimeType,
		Size:        stored.Size,
		URL:         fmt.Sprintf("%s/api/v1/uploads/%s/%s", baseURL, category, stored.Name),
		Category:    category,
		CreatedAt:   stored.CreatedAt,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.store.Delete(profile.Dir, stored.Name)
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}

	return record, nil
}

// DeleteFile removes a stored file and its metadata record
func (s *UploadService) DeleteFile(ctx context.Context, category models.UploadCategory, filename string) error {
	profile, err := s.resolveProfile(category, filename)
	if err != nil {
		return err
	}

	err = s.store.Delete(profile.Dir, filename)
	if err != nil && os.IsNotExist(err) {
		return fmt.Errorf("file not found: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	if err := s.repo.DeleteByID(ctx, filename); err != nil {
		return fmt.Errorf("failed to delete upload record: %w", err)
	}

	return nil
}

// GetFileReader returns a ReadCloser for a stored file
func (s *UploadService) GetFileReader(category models.UploadCategory, filename string) (io.ReadCloser, error) {
	profile, err := s.resolveProfile(category, filename)
	if err != nil {
		return nil, err
	}
	return s.store.Open(profile.Dir, filename)
}

// GetFile returns an *os.File for use with http.ServeContent
func (s *UploadService) GetFile(category models.UploadCategory, filename string) (*os.File, error) {
	profile, err := s.resolveProfile(category, filename)
	if err != nil {
		return nil, err
	}
	return s.store.OpenFile(profile.Dir, filename)
}

// resolveProfile validates a caller-supplied category and filename before
// any path is built from them. Stored names are pipeline-generated, so a
// filename that fails the safety check can only be a crafted request.
func (s *UploadService) resolveProfile(category models.UploadCategory, filename string) (upload.TypeProfile, error) {
	profile, err := s.registry.ProfileFor(category)
	if err != nil {
		return upload.TypeProfile{}, err
	}
	if !upload.IsSafeFilename(filename) {
		return upload.TypeProfile{}, fmt.Errorf("%q: %w", filename, upload.ErrUnsafeFilename)
	}
	return profile, nil
}
