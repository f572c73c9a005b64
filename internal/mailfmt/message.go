package mailfmt

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// Attachment is one non-inline MIME part classified as a file attachment.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a parsed mail message: the original header order plus a
// classification of the body into plain text, HTML, and attachments.
type Message struct {
	Headers     []HeaderField
	RawBody     []byte
	TextContent string
	HTMLContent string
	Attachments []Attachment
}

// HeaderValue returns the first value of a header, decoded for RFC 2047
// encoded-words (useful for Subject/From/To display names).
func (m *Message) HeaderValue(name string) string {
	return DecodeHeaderValue(Get(m.Headers, name))
}

// MessageID returns the Message-ID header value, including its <> wrapping.
func (m *Message) MessageID() string {
	return strings.TrimSpace(Get(m.Headers, "Message-Id"))
}

// Parse splits raw into header fields (order preserved) and classifies the
// body, walking multipart MIME parts when present.
func Parse(raw []byte) (*Message, error) {
	headerBlock, body := splitHeaderBody(raw)
	fields, err := parseHeaderFields(headerBlock)
	if err != nil {
		return nil, err
	}

	m := &Message{Headers: fields, RawBody: body}

	contentType := Get(fields, "Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if contentType == "" || err != nil {
		// No usable Content-Type: treat the whole body as plain text.
		m.TextContent = string(body)
		return m, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if err := m.walkMultipart(body, params["boundary"]); err != nil {
			return nil, err
		}
		return m, nil
	}

	if strings.HasPrefix(mediaType, "text/html") {
		m.HTMLContent = string(body)
	} else {
		m.TextContent = string(body)
	}
	return m, nil
}

func (m *Message) walkMultipart(body []byte, boundary string) error {
	if boundary == "" {
		m.TextContent = string(body)
		return nil
	}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading multipart part: %w", err)
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return fmt.Errorf("reading part body: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		mediaType, params, _ := mime.ParseMediaType(partContentType)
		disposition := part.Header.Get("Content-Disposition")
		filename := part.FileName()

		switch {
		case strings.HasPrefix(mediaType, "multipart/"):
			if err := m.walkMultipart(data, params["boundary"]); err != nil {
				return err
			}
		case filename != "" || strings.Contains(strings.ToLower(disposition), "attachment"):
			m.Attachments = append(m.Attachments, Attachment{
				Filename:    filename,
				ContentType: partContentType,
				Data:        data,
			})
		case strings.HasPrefix(mediaType, "text/html"):
			m.HTMLContent += string(data)
		case strings.HasPrefix(mediaType, "text/plain") || mediaType == "":
			m.TextContent += string(data)
		default:
			m.Attachments = append(m.Attachments, Attachment{
				Filename:    filename,
				ContentType: partContentType,
				Data:        data,
			})
		}
	}
}

// ParseAddressList parses a comma-separated address header value into
// net/mail.Address values, tolerating a blank input (returns nil, nil).
func ParseAddressList(value string) ([]*mail.Address, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	return mail.ParseAddressList(value)
}
