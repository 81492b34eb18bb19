package domain

import "time"

// Comment is an append-only entry in a ticket thread.
type Comment struct {
	ID             string
	OrganizationID string
	TicketID       string
	AuthorID       string
	Content        string
	IsInternal     bool
	IsAIGenerated  bool
	Attachments    []AttachmentReference
	CreatedAt      time.Time
}

// AttachmentReference stores metadata for uploaded files; the upload I/O
// itself lives outside the core.
type AttachmentReference struct {
	ID             string
	OrganizationID string
	CommentID      string
	StorageKey     string
	FileName       string
	MimeType       string
	SizeBytes      int64
	SHA256         string
	CreatedAt      time.Time
}
