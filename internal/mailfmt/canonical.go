package mailfmt

import (
	"bytes"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
)

// base64LineSampleMin is the minimum number of non-trivial body lines
// required before the base64-heuristic is trusted; shorter bodies default
// to 8bit.
const base64LineSampleMin = 1

// EnsureProperFormat canonicalizes raw into: a contiguous header block, one
// CRLF blank line, then the body. It never reorders or removes a header the
// message already carries; it only appends headers that are entirely
// missing (Message-ID, Subject, From, To, Date, MIME-Version, Content-Type,
// Content-Transfer-Encoding).
func EnsureProperFormat(raw []byte) ([]byte, error) {
	headerBlock, body := splitHeaderBody(raw)
	fields, err := parseHeaderFields(headerBlock)
	if err != nil {
		return nil, err
	}

	if !Has(fields, "Message-Id") {
		fields = append(fields, HeaderField{Name: "Message-ID", Value: synthesizeMessageID()})
	}
	if !Has(fields, "Subject") {
		fields = append(fields, HeaderField{Name: "Subject", Value: ""})
	}
	if !Has(fields, "From") {
		fields = append(fields, HeaderField{Name: "From", Value: "undisclosed-sender@localhost"})
	}
	if !Has(fields, "To") {
		fields = append(fields, HeaderField{Name: "To", Value: "undisclosed-recipients@localhost"})
	}
	if !Has(fields, "Date") {
		fields = append(fields, HeaderField{Name: "Date", Value: time.Now().Format(time.RFC1123Z)})
	}
	if !Has(fields, "Mime-Version") {
		fields = append(fields, HeaderField{Name: "MIME-Version", Value: "1.0"})
	}
	if !Has(fields, "Content-Type") {
		fields = append(fields, HeaderField{Name: "Content-Type", Value: "text/plain; charset=utf-8"})
	}
	if !Has(fields, "Content-Transfer-Encoding") {
		fields = append(fields, HeaderField{Name: "Content-Transfer-Encoding", Value: encodingForBody(body)})
	}

	var buf bytes.Buffer
	if err := writeHeaderFields(&buf, fields); err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// RebuildMessage serializes fields and body back into a single RFC 5322
// message, for callers that patch a header list (e.g. backfilling a
// missing From) and need to re-run it through EnsureProperFormat.
func RebuildMessage(fields []HeaderField, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeHeaderFields(&buf, fields); err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

func synthesizeMessageID() string {
	return "<" + uuid.NewString() + "@localhost>"
}

// encodingForBody picks "base64" when the majority of non-trivial body
// lines decode cleanly as base64, else "8bit".
func encodingForBody(body []byte) string {
	lines := bytes.Split(body, []byte("\n"))
	var total, decodable int
	for _, raw := range lines {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		total++
		if _, err := base64.StdEncoding.DecodeString(string(line)); err == nil {
			decodable++
		}
	}
	if total >= base64LineSampleMin && decodable*2 > total {
		return "base64"
	}
	return "8bit"
}

// DecodeBody returns the decoded body of a message given its
// Content-Transfer-Encoding header value, falling back to the raw bytes
// for encodings that don't need decoding or that fail to decode.
func DecodeBody(body []byte, transferEncoding string) []byte {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		clean := bytes.Map(func(r rune) rune {
			if r == '\r' || r == '\n' {
				return -1
			}
			return r
		}, body)
		decoded, err := base64.StdEncoding.DecodeString(string(clean))
		if err != nil {
			return body
		}
		return decoded
	default:
		return body
	}
}
