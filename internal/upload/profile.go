package upload

import (
	"fmt"

	"github.com/yofam/upload-service/internal/models"
)

// TypeProfile is the fixed policy governing one upload category: which
// extensions and declared mime types are accepted, how large the file may
// be, and which subdirectory of the upload root it is stored under.
// Profiles are created once at startup and shared read-only across requests.
type TypeProfile struct {
	AllowedExtensions map[string]bool
	AllowedMimeTypes  map[string]bool
	MaxBytes          int64
	Dir               string
}

// AllowsExtension reports whether ext (lower-cased, dot-prefixed) is accepted
func (p TypeProfile) AllowsExtension(ext string) bool {
	return p.AllowedExtensions[ext]
}

// AllowsMimeType reports whether the declared mime type is accepted
func (p TypeProfile) AllowsMimeType(mimeType string) bool {
	return p.AllowedMimeTypes[mimeType]
}

const (
	megabyte = 1 << 20

	maxImageBytes    = 10 * megabyte
	maxAvatarBytes   = 5 * megabyte
	maxCoverBytes    = 8 * megabyte
	maxDocumentBytes = 20 * megabyte
	maxVoiceBytes    = 15 * megabyte
	maxVideoBytes    = 100 * megabyte
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Registry maps each upload category to its TypeProfile. It is a total
// lookup over the six categories, built once and never mutated.
type Registry struct {
	profiles map[models.UploadCategory]TypeProfile
}

// NewRegistry builds the profile table. Directory names are relative to the
// upload root; the storage layer resolves them to absolute paths.
func NewRegistry() *Registry {
	return &Registry{
		profiles: map[models.UploadCategory]TypeProfile{
			models.CategoryImage: {
				AllowedExtensions: imageExtensions,
				AllowedMimeTypes:  imageMimeTypes,
				MaxBytes:          maxImageBytes,
				Dir:               "images",
			},
			models.CategoryAvatar: {
				AllowedExtensions: imageExtensions,
				AllowedMimeTypes:  imageMimeTypes,
				MaxBytes:          maxAvatarBytes,
				Dir:               "avatars",
			},
			models.CategoryCoverPhoto: {
				AllowedExtensions: imageExtensions,
				AllowedMimeTypes:  imageMimeTypes,
				MaxBytes:          maxCoverBytes,
				Dir:               "covers",
			},
			models.CategoryDocument: {
				AllowedExtensions: map[string]bool{
					".pdf":  true,
					".doc":  true,
					".docx": true,
					".txt":  true,
				},
				AllowedMimeTypes: map[string]bool{
					"application/pdf":    true,
					"application/msword": true,
					"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
					"text/plain": true,
				},
				MaxBytes: maxDocumentBytes,
				Dir:      "documents",
			},
			models.CategoryVoice: {
				AllowedExtensions: map[string]bool{
					".mp3": true,
					".wav": true,
					".ogg": true,
					".m4a": true,
				},
				AllowedMimeTypes: map[string]bool{
					"audio/mpeg": true,
					"audio/wav":  true,
					"audio/ogg":  true,
					"audio/mp4":  true,
				},
				MaxBytes: maxVoiceBytes,
				Dir:      "voice",
			},
			models.CategoryVideo: {
				AllowedExtensions: map[string]bool{
					".mp4":  true,
					".webm": true,
					".mov":  true,
				},
				AllowedMimeTypes: map[string]bool{
					"video/mp4":       true,
					"video/webm":      true,
					"video/quicktime": true,
				},
				MaxBytes: maxVideoBytes,
				Dir:      "videos",
			},
		},
	}
}

// ProfileFor returns the profile for the given category
func (r *Registry) ProfileFor(category models.UploadCategory) (TypeProfile, error) {
	profile, ok := r.profiles[category]
	if !ok {
		return TypeProfile{}, fmt.Errorf("%q: %w", category, ErrUnsupportedCategory)
	}
	return profile, nil
}

// Dirs returns the destination directory of every category, relative to the
// upload root. Used by the retention sweeper to walk all categories.
func (r *Registry) Dirs() []string {
	dirs := make([]string, 0, len(r.profiles))
	for _, profile := range r.profiles {
		dirs = append(dirs, profile.Dir)
	}
	return dirs
}
