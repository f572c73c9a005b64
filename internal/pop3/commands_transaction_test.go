package pop3

import (
	"context"
	"reflect"
	"testing"
)

func TestNormalizeLines(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "crlf input",
			raw:  "Subject: hi\r\n\r\nbody line\r\n",
			want: []string{"Subject: hi", "", "body line"},
		},
		{
			name: "bare lf input",
			raw:  "Subject: hi\n\nbody line\n",
			want: []string{"Subject: hi", "", "body line"},
		},
		{
			name: "leading dot left unstuffed here",
			raw:  "body\r\n.\r\nmore\r\n",
			want: []string{"body", ".", "more"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLines([]byte(tt.raw))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeLines(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestOctetCount(t *testing.T) {
	lines := []string{"abc", "de"}
	// "abc\r\n" (5) + "de\r\n" (4) = 9
	if got := octetCount(lines); got != 9 {
		t.Errorf("octetCount(%v) = %d, want 9", lines, got)
	}
}

func TestTopLines(t *testing.T) {
	lines := []string{"Subject: hi", "From: a@b.c", "", "line1", "line2", "line3"}

	got := topLines(lines, 2)
	want := []string{"Subject: hi", "From: a@b.c", "", "line1", "line2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("topLines(_, 2) = %#v, want %#v", got, want)
	}

	got = topLines(lines, 0)
	want = []string{"Subject: hi", "From: a@b.c", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("topLines(_, 0) = %#v, want %#v", got, want)
	}

	got = topLines(lines, 100)
	want = lines
	if !reflect.DeepEqual(got, want) {
		t.Errorf("topLines(_, 100) = %#v, want %#v", got, want)
	}
}

func TestDeleCommandSecondCallIsIdempotent(t *testing.T) {
	s := newTestSession(snapshotEntry{messageID: "<1@x>", uid: "1@x", size: 10})
	d := &deleCommand{}

	resp, err := d.Execute(context.Background(), s, nil, []string{"1"})
	if err != nil || !resp.OK {
		t.Fatalf("first DELE 1 = %+v, %v, want OK", resp, err)
	}

	resp, err = d.Execute(context.Background(), s, nil, []string{"1"})
	if err != nil {
		t.Fatalf("second DELE 1 error: %v", err)
	}
	if !resp.OK || resp.Message != "Message 1 already deleted" {
		t.Errorf("second DELE 1 = %+v, want OK \"Message 1 already deleted\"", resp)
	}
}

func TestDeleCommandOutOfRangeIsError(t *testing.T) {
	s := newTestSession(snapshotEntry{messageID: "<1@x>", uid: "1@x", size: 10})
	d := &deleCommand{}

	resp, err := d.Execute(context.Background(), s, nil, []string{"5"})
	if err != nil || resp.OK || resp.Message != "No such message" {
		t.Errorf("DELE 5 = %+v, %v, want -ERR No such message", resp, err)
	}
}

func TestListErrResponse(t *testing.T) {
	resp, err := listErrResponse(ErrNoSuchMessage)
	if err != nil || resp.OK || resp.Message != "No such message" {
		t.Errorf("listErrResponse(ErrNoSuchMessage) = %+v, %v", resp, err)
	}

	resp, err = listErrResponse(ErrMessageDeleted)
	if err != nil || resp.OK || resp.Message != "No such message" {
		t.Errorf("listErrResponse(ErrMessageDeleted) = %+v, %v", resp, err)
	}

	resp, err = listErrResponse(ErrMailboxNotInitialized)
	if err != nil || resp.OK || resp.Message != "Mailbox not initialized" {
		t.Errorf("listErrResponse(ErrMailboxNotInitialized) = %+v, %v", resp, err)
	}
}
