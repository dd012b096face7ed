// Package upload implements the security validation pipeline for
// user-submitted files: type-profile allow-listing, filename safety,
// collision-resistant storage naming, magic-number verification and a
// heuristic scan for disguised script content.
//
// Validation happens in two phases. Cheap metadata checks (category,
// filename, extension, declared mime type, declared size) run before a
// single byte is written to disk. Byte-level checks (signature, content
// scan) run after the stream is persisted, because a multipart body cannot
// always be rewound; any failure there deletes the stored file, so no
// rejected file is ever left behind.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/yofam/upload-service/internal/models"
	"go.uber.org/zap"
)

// Storage defines the filesystem operations the pipeline needs. The local
// implementation lives in internal/storage.
type Storage interface {
	// Create creates a new file under dir and returns a WriteCloser
	Create(dir, name string) (io.WriteCloser, error)

	// Open opens a stored file for reading
	Open(dir, name string) (io.ReadCloser, error)

	// Delete removes a stored file
	Delete(dir, name string) error

	// Path returns the absolute path of a stored file
	Path(dir, name string) string
}

// IncomingFile is one file part of an inbound request. It lives for the
// duration of a single Ingest call.
type IncomingFile struct {
	OriginalName     string
	DeclaredMimeType string
	// DeclaredSize is the size claimed by the client (multipart part header
	// or Content-Length). Zero means unknown; the streamed size is enforced
	// either way.
	DeclaredSize int64
	Body         io.Reader
}

// StoredFile describes an accepted upload on disk. Recording its metadata
// row is the caller's responsibility.
type StoredFile struct {
	Name             string
	Path             string
	Size             int64
	DeclaredMimeType string
	Category         models.UploadCategory
	CreatedAt        time.Time
}

// Pipeline validates and persists inbound files. It is safe for concurrent
// use: the registry is read-only and every upload writes to its own
// uniquely-named file.
type Pipeline struct {
	registry *Registry
	storage  Storage
	logger   *zap.Logger
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(registry *Registry, storage Storage, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		registry: registry,
		storage:  storage,
		logger:   logger,
	}
}

// Ingest runs the full accept-or-reject sequence for one file and returns
// the StoredFile descriptor on acceptance. Rejections are sentinel errors
// (see errors.go); any other error is a storage I/O failure. On every
// rejection path the file is absent from disk afterwards.
func (p *Pipeline) Ingest(ctx context.Context, category models.UploadCategory, in IncomingFile) (*StoredFile, error) {
	profile, err := p.registry.ProfileFor(category)
	if err != nil {
		return nil, err
	}

	if !IsSafeFilename(in.OriginalName) {
		return nil, fmt.Errorf("%q: %w", in.OriginalName, ErrUnsafeFilename)
	}

	ext := strings.ToLower(filepath.Ext(in.OriginalName))
	if !profile.AllowsExtension(ext) {
		return nil, fmt.Errorf("%q: %w", ext, ErrUnsupportedExtension)
	}

	if !profile.AllowsMimeType(in.DeclaredMimeType) {
		return nil, fmt.Errorf("%q: %w", in.DeclaredMimeType, ErrUnsupportedMimeType)
	}

	if in.DeclaredSize > profile.MaxBytes {
		return nil, fmt.Errorf("declared %d bytes, limit %d: %w", in.DeclaredSize, profile.MaxBytes, ErrFileTooLarge)
	}

	name, err := GenerateStorageName(in.OriginalName)
	if err != nil {
		return nil, err
	}

	size, err := p.store(ctx, profile, name, in.Body)
	if err != nil {
		return nil, err
	}

	leading, err := p.readLeading(profile.Dir, name)
	if err != nil {
		p.discard(profile.Dir, name)
		return nil, fmt.Errorf("failed to read back stored file: %w", err)
	}

	if !MatchesSignature(leading, in.DeclaredMimeType) {
		p.discard(profile.Dir, name)
		return nil, fmt.Errorf("declared %q: %w", in.DeclaredMimeType, ErrSignatureMismatch)
	}

	if LooksMalicious(leading) {
		p.discard(profile.Dir, name)
		return nil, fmt.Errorf("%q: %w", in.OriginalName, ErrMaliciousContent)
	}

	return &StoredFile{
		Name:             name,
		Path:             p.storage.Path(profile.Dir, name),
		Size:             size,
		DeclaredMimeType: in.DeclaredMimeType,
		Category:         category,
		CreatedAt:        time.Now(),
	}, nil
}

// store streams the body to disk under the generated name, enforcing the
// size ceiling mid-transfer. On any failure, including request
// cancellation, the partial file is removed before returning.
func (p *Pipeline) store(ctx context.Context, profile TypeProfile, name string, body io.Reader) (int64, error) {
	w, err := p.storage.Create(profile.Dir, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	// Read one byte past the limit so an oversized stream is detected
	// without transferring the whole payload.
	src := &contextReader{ctx: ctx, r: io.LimitReader(body, profile.MaxBytes+1)}
	size, err := io.Copy(w, src)

	if cerr := w.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		p.discard(profile.Dir, name)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("upload aborted: %w", err)
		}
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	if size > profile.MaxBytes {
		p.discard(profile.Dir, name)
		return 0, fmt.Errorf("limit %d bytes: %w", profile.MaxBytes, ErrFileTooLarge)
	}

	return size, nil
}

// readLeading reads back the first kilobyte of the stored file for the
// byte-level checks
func (p *Pipeline) readLeading(dir, name string) ([]byte, error) {
	rc, err := p.storage.Open(dir, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(io.LimitReader(rc, scanWindow))
}

// discard removes a rejected file. A deletion failure here leaves an orphan
// on disk, which the retention sweeper will eventually reclaim, so it is
// logged rather than surfaced.
func (p *Pipeline) discard(dir, name string) {
	if err := p.storage.Delete(dir, name); err != nil {
		p.logger.Error("failed to delete rejected file",
			zap.String("dir", dir),
			zap.String("name", name),
			zap.Error(err),
		)
	}
}

// contextReader aborts an in-flight copy as soon as the request context is
// done, so a client disconnect mid-transfer cannot leave the copy blocked
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
