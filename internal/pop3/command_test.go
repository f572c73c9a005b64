package pop3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseStringSingleLine(t *testing.T) {
	r := Response{OK: true, Message: "hello"}
	assert.Equal(t, "+OK hello\r\n", r.String())

	r = Response{OK: false, Message: "nope"}
	assert.Equal(t, "-ERR nope\r\n", r.String())
}

func TestResponseStringMultiLineDotStuffing(t *testing.T) {
	r := Response{OK: true, Message: "2 messages", Lines: []string{"line one", ".leading dot", "line three"}}
	want := "+OK 2 messages\r\nline one\r\n..leading dot\r\nline three\r\n.\r\n"
	assert.Equal(t, want, r.String())
}

func TestParseCommand(t *testing.T) {
	name, args, err := ParseCommand("USER alice")
	require.NoError(t, err)
	assert.Equal(t, "USER", name)
	assert.Equal(t, []string{"alice"}, args)

	name, args, err = ParseCommand("  stat  ")
	require.NoError(t, err)
	assert.Equal(t, "STAT", name)
	assert.Empty(t, args)

	_, _, err = ParseCommand("")
	assert.Error(t, err)
}

func TestGetCommandUnknown(t *testing.T) {
	_, ok := GetCommand("BOGUS")
	assert.False(t, ok)
}
