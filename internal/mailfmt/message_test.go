package mailfmt

import "testing"

func TestParsePlainTextNoContentType(t *testing.T) {
	raw := []byte("Subject: hi\r\n\r\njust plain text")
	m, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if m.TextContent != "just plain text" {
		t.Errorf("TextContent = %q", m.TextContent)
	}
	if m.HTMLContent != "" {
		t.Errorf("HTMLContent = %q, want empty", m.HTMLContent)
	}
}

func TestParseTextHTML(t *testing.T) {
	raw := []byte("Content-Type: text/html; charset=utf-8\r\n\r\n<p>hi</p>")
	m, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if m.HTMLContent != "<p>hi</p>" {
		t.Errorf("HTMLContent = %q", m.HTMLContent)
	}
	if m.TextContent != "" {
		t.Errorf("TextContent = %q, want empty", m.TextContent)
	}
}

func TestParseMultipartMixed(t *testing.T) {
	raw := []byte("Content-Type: multipart/mixed; boundary=BOUND\r\n\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"hello text\r\n" +
		"--BOUND\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Disposition: attachment; filename=\"data.bin\"\r\n\r\n" +
		"binarydata\r\n" +
		"--BOUND--\r\n")

	m, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if m.TextContent != "hello text" {
		t.Errorf("TextContent = %q", m.TextContent)
	}
	if len(m.Attachments) != 1 {
		t.Fatalf("len(Attachments) = %d, want 1", len(m.Attachments))
	}
	if m.Attachments[0].Filename != "data.bin" {
		t.Errorf("Attachments[0].Filename = %q", m.Attachments[0].Filename)
	}
	if string(m.Attachments[0].Data) != "binarydata" {
		t.Errorf("Attachments[0].Data = %q", m.Attachments[0].Data)
	}
}

func TestMessageHeaderValueDecodesEncodedWord(t *testing.T) {
	m := &Message{Headers: []HeaderField{{Name: "Subject", Value: "=?UTF-8?B?aGVsbG8=?="}}}
	if got := m.HeaderValue("Subject"); got != "hello" {
		t.Errorf("HeaderValue(Subject) = %q, want hello", got)
	}
}

func TestMessageIDTrimsWhitespace(t *testing.T) {
	m := &Message{Headers: []HeaderField{{Name: "Message-ID", Value: " <abc@x> "}}}
	if got := m.MessageID(); got != "<abc@x>" {
		t.Errorf("MessageID() = %q, want <abc@x>", got)
	}
}

func TestParseAddressListBlankReturnsNil(t *testing.T) {
	addrs, err := ParseAddressList("   ")
	if err != nil {
		t.Fatalf("ParseAddressList error: %v", err)
	}
	if addrs != nil {
		t.Errorf("ParseAddressList(blank) = %v, want nil", addrs)
	}
}

func TestParseAddressListParsesMultiple(t *testing.T) {
	addrs, err := ParseAddressList("Alice <alice@example.com>, bob@example.com")
	if err != nil {
		t.Fatalf("ParseAddressList error: %v", err)
	}
	if len(addrs) != 2 {
		t.Fatalf("len(addrs) = %d, want 2", len(addrs))
	}
	if addrs[0].Address != "alice@example.com" {
		t.Errorf("addrs[0].Address = %q", addrs[0].Address)
	}
	if addrs[1].Address != "bob@example.com" {
		t.Errorf("addrs[1].Address = %q", addrs[1].Address)
	}
}
