package mailservice

import "time"

// Attachment is a single MIME part classified as a file attachment.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
	Size        int64
}

// ContentBody is the parsed body of a message, returned by GetEmail when
// content inclusion is requested.
type ContentBody struct {
	TextContent string
	HTMLContent string
	Attachments []Attachment
}

// EmailRecord is the merged metadata+optional-body view of a received
// email returned by GetEmail/ListEmails.
type EmailRecord struct {
	MessageID   string
	FromAddr    string
	ToAddrs     []string
	Subject     string
	Date        time.Time
	Size        int64
	IsRead      bool
	IsDeleted   bool
	IsSpam      bool
	SpamScore   float64
	IsRecalled  bool
	RecalledAt  time.Time
	RecalledBy  string
	Content     *ContentBody // nil unless include_content was requested
}

// SentEmailRecord mirrors EmailRecord with the egress-only fields.
type SentEmailRecord struct {
	MessageID      string
	FromAddr       string
	ToAddrs        []string
	CCAddrs        []string
	BCCAddrs       []string
	Subject        string
	Date           time.Time
	Size           int64
	IsRead         bool
	IsDeleted      bool
	IsSpam         bool
	SpamScore      float64
	HasAttachments bool
	Status         string
	IsRecalled     bool
	RecalledAt     time.Time
	RecalledBy     string
	Content        *ContentBody
}
