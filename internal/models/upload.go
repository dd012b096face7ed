package models

import "time"

// Upload represents an accepted file's metadata in the database
type Upload struct {
	ID          string         `json:"id" db:"id"`
	ContentType string         `json:"contentType" db:"content_type"`
	Size        int64          `json:"size" db:"size"`
	URL         string         `json:"url" db:"url"`
	Category    UploadCategory `json:"category" db:"category"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
}

// UploadCategory identifies one of the fixed kinds of user-submitted media
type UploadCategory string

const (
	CategoryImage      UploadCategory = "image"
	CategoryAvatar     UploadCategory = "avatar"
	CategoryCoverPhoto UploadCategory = "cover_photo"
	CategoryDocument   UploadCategory = "document"
	CategoryVoice      UploadCategory = "voice"
	CategoryVideo      UploadCategory = "video"
)

// Categories lists every valid upload category. The slice is fixed at
// process start and must not be mutated.
var Categories = []UploadCategory{
	CategoryImage,
	CategoryAvatar,
	CategoryCoverPhoto,
	CategoryDocument,
	CategoryVoice,
	CategoryVideo,
}

// Valid reports whether c is one of the six known categories
func (c UploadCategory) Valid() bool {
	switch c {
	case CategoryImage,
		CategoryAvatar,
		CategoryCoverPhoto,
		CategoryDocument,
		CategoryVoice,
		CategoryVideo:
		return true
	default:
		return false
	}
}
