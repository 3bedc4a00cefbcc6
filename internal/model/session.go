package model

import (
	"strings"
	"time"
)

// Session is one uploaded-document conversation. The session id and the
// document id are both stored: the document id doubles as the storage-path
// prefix for the uploaded files.
type Session struct {
	ID           string    `gorm:"primaryKey;size:64" json:"chat_id"`
	DocumentID   string    `gorm:"size:36;uniqueIndex;not null" json:"pdf_id"`
	Filenames    string    `gorm:"size:1024;not null" json:"pdf_filename"`
	NumPages     int       `json:"num_pages"`
	FileSizeMB   float64   `json:"file_size_mb"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `gorm:"index" json:"last_accessed"`
}

// FilenameList splits the comma-joined filename column back into its parts.
func (s *Session) FilenameList() []string {
	var names []string
	for _, part := range strings.Split(s.Filenames, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
