package models

import (
	"time"
)

type User struct {
	Username     string    `json:"username" gorm:"primaryKey;size:255"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	CreatedAt    time.Time `json:"createdAt"`
	Images       []Image   `json:"images" gorm:"foreignKey:Username;references:Username;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Image is the metadata of one uploaded tree image. Each image is its own
// row so processing one image never rewrites the others.
type Image struct {
	ID         uint              `json:"-" gorm:"primarykey"`
	UUID       string            `json:"-" gorm:"type:uuid;uniqueIndex"`
	Username   string            `json:"-" gorm:"size:255;not null;index"`
	Filename   string            `json:"filename" gorm:"not null;uniqueIndex"`
	URL        string            `json:"url"`
	MimeType   string            `json:"-"`
	Size       int64             `json:"-"`
	UploadedAt time.Time         `json:"uploadedAt"`
	Processed  bool              `json:"processed" gorm:"not null;default:false"`
	Results    *ProcessingResult `json:"results" gorm:"serializer:json"`
}

// ProcessingResult is what the analyzer reports for an image.
type ProcessingResult struct {
	TreeType     string `json:"treeType"`
	Health       string `json:"health"`
	EstimatedAge string `json:"estimatedAge"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Format       string `json:"format,omitempty"`
}
