// Package mailfmt parses RFC 5322/MIME messages and canonically
// re-serializes them without disturbing headers the original author wrote.
package mailfmt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// HeaderField is one "Name: Value" header line, in the order it appeared in
// the source message. Unlike net/mail.Header (a map), this preserves both
// order and duplicate occurrences, which EnsureProperFormat needs in order
// to honor "never reorders or strips existing headers".
type HeaderField struct {
	Name  string
	Value string
}

// wordDecoder decodes RFC 2047 encoded-words, falling back to the raw
// reader for charsets it doesn't recognize rather than failing the parse.
var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		if enc, err := htmlindex.Get(charset); err == nil {
			return enc.NewDecoder().Reader(input), nil
		}
		return input, nil
	},
}

// DecodeHeaderValue decodes all encoded-words in s, e.g. a MIME-encoded
// Subject line. Malformed encoded-words are left verbatim.
func DecodeHeaderValue(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

// splitHeaderBody splits raw into the header block and body on the first
// blank line, tolerating both CRLF and bare-LF line endings.
// SplitHeaderBody splits raw into its header block and body, tolerating
// both CRLF and bare-LF line endings.
func SplitHeaderBody(raw []byte) (headerBlock, body []byte) {
	return splitHeaderBody(raw)
}

func splitHeaderBody(raw []byte) (headerBlock, body []byte) {
	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[:idx], raw[idx+4:]
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[:idx], raw[idx+2:]
	}
	return raw, nil
}

// parseHeaderFields parses headerBlock into ordered fields, joining folded
// continuation lines (leading whitespace) onto the previous field.
func parseHeaderFields(headerBlock []byte) ([]HeaderField, error) {
	var fields []HeaderField
	scanner := bufio.NewScanner(bytes.NewReader(headerBlock))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(fields) > 0 {
			fields[len(fields)-1].Value += " " + strings.TrimSpace(line)
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			// Not a valid header line; preserve it verbatim as a value-less
			// field rather than dropping data.
			fields = append(fields, HeaderField{Name: line, Value: ""})
			continue
		}
		name := line[:colon]
		value := strings.TrimSpace(line[colon+1:])
		fields = append(fields, HeaderField{Name: name, Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning headers: %w", err)
	}
	return fields, nil
}

// Get returns the first value for a header name, case-insensitively, or ""
// if absent.
func Get(fields []HeaderField, name string) string {
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Has reports whether a header name is present, case-insensitively.
func Has(fields []HeaderField, name string) bool {
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// writeHeaderFields serializes fields in order, one "Name: Value\r\n" line
// each, followed by the CRLF blank-line separator. A value-less field whose
// name contains whitespace (a non-header line kept by parseHeaderFields) is
// written back verbatim without a colon.
func writeHeaderFields(w io.Writer, fields []HeaderField) error {
	for _, f := range fields {
		if f.Value == "" && strings.ContainsAny(f.Name, " \t") {
			if _, err := fmt.Fprintf(w, "%s\r\n", f.Name); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", f.Name, f.Value); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
