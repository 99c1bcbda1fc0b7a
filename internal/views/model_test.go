package views

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnonymize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"192.168.1.77":                "192.168.1.0",
		"::ffff:10.0.0.9":             "10.0.0.0",
		"2001:db8:85a3:8d3:1319::370": "2001:db8:85a3::",
		"not-an-ip":                   "not-an-ip",
	}
	for in, want := range cases {
		require.Equal(t, want, anonymize(in), in)
	}
}

func TestCommentRequestValidate(t *testing.T) {
	t.Parallel()

	r := commentRequest{Text: "  hello  ", Website: "https://example.com/about"}
	require.NoError(t, r.validate())
	require.Equal(t, "hello", r.Text)
	require.Equal(t, "https://example.com/about", r.Website)

	r = commentRequest{Text: "ab"}
	require.Error(t, r.validate())

	r = commentRequest{Text: "hello", Author: string(make([]byte, maxFieldLength+1))}
	require.Error(t, r.validate())
}
