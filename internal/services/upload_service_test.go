package services

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yofam/upload-service/internal/models"
	"github.com/yofam/upload-service/internal/upload"
)

// mockUploadRepository implements UploadRepository for testing
type mockUploadRepository struct {
	createFunc     func(ctx context.Context, upload *models.Upload) error
	getByIDFunc    func(ctx context.Context, id string) (*models.Upload, error)
	deleteByIDFunc func(ctx context.Context, id string) error
}

func (m *mockUploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, upload)
	}
	return nil
}

func (m *mockUploadRepository) GetByID(ctx context.Context, id string) (*models.Upload, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUploadRepository) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFunc != nil {
		return m.deleteByIDFunc(ctx, id)
	}
	return nil
}

// mockIngester implements Ingester for testing
type mockIngester struct {
	ingestFunc func(ctx context.Context, category models.UploadCategory, in upload.IncomingFile) (*upload.StoredFile, error)
}

func (m *mockIngester) Ingest(ctx context.Context, category models.UploadCategory, in upload.IncomingFile) (*upload.StoredFile, error) {
	if m.ingestFunc != nil {
		return m.ingestFunc(ctx, category, in)
	}
	return nil, errors.New("not implemented")
}

// mockFileStore implements FileStore for testing
type mockFileStore struct {
	openFunc     func(dir, name string) (io.ReadCloser, error)
	openFileFunc func(dir, name string) (*os.File, error)
	deleteFunc   func(dir, name string) error

	deletedDir  string
	deletedName string
}

func (m *mockFileStore) Open(dir, name string) (io.ReadCloser, error) {
	if m.openFunc != nil {
		return m.openFunc(dir, name)
	}
	return nil, errors.New("not implemented")
}

func (m *mockFileStore) OpenFile(dir, name string) (*os.File, error) {
	if m.openFileFunc != nil {
		return m.openFileFunc(dir, name)
	}
	return nil, errors.New("not implemented")
}

func (m *mockFileStore) Delete(dir, name string) error {
	m.deletedDir = dir
	m.deletedName = name
	if m.deleteFunc != nil {
		return m.deleteFunc(dir, name)
	}
	return nil
}

func newTestService(repo *mockUploadRepository, ingester *mockIngester, store *mockFileStore) *UploadService {
	return NewUploadService(repo, ingester, store, upload.NewRegistry())
}

func storedAvatar() *upload.StoredFile {
	return &upload.StoredFile{
		Name:             "1774000000000_0123456789abcdef0123456789abcdef.png",
		Path:             "/uploads/avatars/1774000000000_0123456789abcdef0123456789abcdef.png",
		Size:             512,
		DeclaredMimeType: "image/png",
		Category:         models.CategoryAvatar,
		CreatedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUploadService_UploadFile(t *testing.T) {
	incoming := upload.IncomingFile{
		OriginalName:     "me.png",
		DeclaredMimeType: "image/png",
		DeclaredSize:     512,
		Body:             strings.NewReader("data"),
	}

	t.Run("success builds record from stored file", func(t *testing.T) {
		repo := &mockUploadRepository{}
		ingester := &mockIngester{
			ingestFunc: func(ctx context.Context, category models.UploadCategory, in upload.IncomingFile) (*upload.StoredFile, error) {
				assert.Equal(t, models.CategoryAvatar, category)
				assert.Equal(t, "me.png", in.OriginalName)
				return storedAvatar(), nil
			},
		}
		store := &mockFileStore{}
		service := newTestService(repo, ingester, store)

		record, err := service.UploadFile(context.Background(), models.CategoryAvatar, incoming, "http://localhost:8080")

		require.NoError(t, err)
		assert.Equal(t, storedAvatar().Name, record.ID)
		assert.Equal(t, "image/png", record.ContentType)
		assert.Equal(t, int64(512), record.Size)
		assert.Equal(t, models.CategoryAvatar, record.Category)
		assert.Equal(t, "http://localhost:8080/api/v1/uploads/avatar/"+storedAvatar().Name, record.URL)
		assert.Empty(t, store.deletedName, "nothing should be deleted on success")
	})

	t.Run("pipeline rejection is returned unchanged", func(t *testing.T) {
		ingester := &mockIngester{
			ingestFunc: func(ctx context.Context, category models.UploadCategory, in upload.IncomingFile) (*upload.StoredFile, error) {
				return nil, upload.ErrSignatureMismatch
			},
		}
		store := &mockFileStore{}
		service := newTestService(&mockUploadRepository{}, ingester, store)

		record, err := service.UploadFile(context.Background(), models.CategoryAvatar, incoming, "http://localhost:8080")

		require.Error(t, err)
		assert.True(t, errors.Is(err, upload.ErrSignatureMismatch))
		assert.Nil(t, record)
		assert.Empty(t, store.deletedName)
	})

	t.Run("metadata failure deletes the stored file", func(t *testing.T) {
		repo := &mockUploadRepository{
			createFunc: func(ctx context.Context, upload *models.Upload) error {
				return errors.New("database error")
			},
		}
		ingester := &mockIngester{
			ingestFunc: func(ctx context.Context, category models.UploadCategory, in upload.IncomingFile) (*upload.StoredFile, error) {
				return storedAvatar(), nil
			},
		}
		store := &mockFileStore{}
		service := newTestService(repo, ingester, store)

		record, err := service.UploadFile(context.Background(), models.CategoryAvatar, incoming, "http://localhost:8080")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create upload record")
		assert.Nil(t, record)
		assert.Equal(t, "avatars", store.deletedDir)
		assert.Equal(t, storedAvatar().Name, store.deletedName)
	})
}

func TestUploadService_GetMetadataByID(t *testing.T) {
	want := &models.Upload{ID: "found.jpg", Category: models.CategoryImage}
	repo := &mockUploadRepository{
		getByIDFunc: func(ctx context.Context, id string) (*models.Upload, error) {
			assert.Equal(t, "found.jpg", id)
			return want, nil
		},
	}
	service := newTestService(repo, &mockIngester{}, &mockFileStore{})

	got, err := service.GetMetadataByID(context.Background(), "found.jpg")

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUploadService_DeleteFile(t *testing.T) {
	tests := []struct {
		name          string
		category      models.UploadCategory
		filename      string
		deleteFunc    func(dir, name string) error
		repoDelete    func(ctx context.Context, id string) error
		expectedError error
		errorContains string
	}{
		{
			name:     "success",
			category: models.CategoryImage,
			filename: "file.jpg",
		},
		{
			name:          "unknown category",
			category:      "archive",
			filename:      "file.jpg",
			expectedError: upload.ErrUnsupportedCategory,
		},
		{
			name:          "traversal filename rejected before storage",
			category:      models.CategoryImage,
			filename:      "..",
			expectedError: upload.ErrUnsafeFilename,
		},
		{
			name:          "separator in filename rejected before storage",
			category:      models.CategoryImage,
			filename:      "../../etc/passwd",
			expectedError: upload.ErrUnsafeFilename,
		},
		{
			name:     "missing file",
			category: models.CategoryImage,
			filename: "missing.jpg",
			deleteFunc: func(dir, name string) error {
				return os.ErrNotExist
			},
			errorContains: "file not found",
		},
		{
			name:     "storage failure",
			category: models.CategoryImage,
			filename: "file.jpg",
			deleteFunc: func(dir, name string) error {
				return errors.New("disk error")
			},
			errorContains: "failed to delete file",
		},
		{
			name:     "metadata failure after file removal",
			category: models.CategoryImage,
			filename: "file.jpg",
			repoDelete: func(ctx context.Context, id string) error {
				return errors.New("database error")
			},
			errorContains: "failed to delete upload record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUploadRepository{deleteByIDFunc: tt.repoDelete}
			store := &mockFileStore{deleteFunc: tt.deleteFunc}
			service := newTestService(repo, &mockIngester{}, store)

			err := service.DeleteFile(context.Background(), tt.category, tt.filename)

			switch {
			case tt.expectedError != nil:
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectedError))
				assert.Empty(t, store.deletedName, "storage must not be touched for invalid input")
			case tt.errorContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			default:
				require.NoError(t, err)
				assert.Equal(t, "images", store.deletedDir)
				assert.Equal(t, tt.filename, store.deletedName)
			}
		})
	}
}

func TestUploadService_GetFileReader(t *testing.T) {
	t.Run("success resolves category directory", func(t *testing.T) {
		store := &mockFileStore{
			openFunc: func(dir, name string) (io.ReadCloser, error) {
				assert.Equal(t, "documents", dir)
				assert.Equal(t, "file.pdf", name)
				return io.NopCloser(strings.NewReader("content")), nil
			},
		}
		service := newTestService(&mockUploadRepository{}, &mockIngester{}, store)

		reader, err := service.GetFileReader(models.CategoryDocument, "file.pdf")

		require.NoError(t, err)
		defer reader.Close()
		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
	})

	t.Run("unsafe filename never reaches storage", func(t *testing.T) {
		opened := false
		store := &mockFileStore{
			openFunc: func(dir, name string) (io.ReadCloser, error) {
				opened = true
				return nil, nil
			},
		}
		service := newTestService(&mockUploadRepository{}, &mockIngester{}, store)

		_, err := service.GetFileReader(models.CategoryDocument, "..\\..\\secret")

		require.Error(t, err)
		assert.True(t, errors.Is(err, upload.ErrUnsafeFilename))
		assert.False(t, opened)
	})
}

func TestUploadService_GetFile(t *testing.T) {
	t.Run("unsafe filename never reaches storage", func(t *testing.T) {
		opened := false
		store := &mockFileStore{
			openFileFunc: func(dir, name string) (*os.File, error) {
				opened = true
				return nil, nil
			},
		}
		service := newTestService(&mockUploadRepository{}, &mockIngester{}, store)

		_, err := service.GetFile(models.CategoryVideo, "clip\x00.mp4")

		require.Error(t, err)
		assert.True(t, errors.Is(err, upload.ErrUnsafeFilename))
		assert.False(t, opened)
	})

	t.Run("success resolves category directory", func(t *testing.T) {
		store := &mockFileStore{
			openFileFunc: func(dir, name string) (*os.File, error) {
				assert.Equal(t, "videos", dir)
				assert.Equal(t, "clip.mp4", name)
				return nil, nil
			},
		}
		service := newTestService(&mockUploadRepository{}, &mockIngester{}, store)

		_, err := service.GetFile(models.CategoryVideo, "clip.mp4")

		assert.NoError(t, err)
	})
}
