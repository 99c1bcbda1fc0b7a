package views

import (
	"crypto/sha1"
	"encoding/hex"
	"net/netip"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrymomot/isso/internal"
	"github.com/dmitrymomot/isso/internal/storage"
)

const (
	minTextLength  = 3
	maxTextLength  = 65535
	maxFieldLength = 254
)

type commentRequest struct {
	Parent  *int64 `json:"parent"`
	Text    string `json:"text"`
	Author  string `json:"author"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// validate trims the fields and checks their lengths. The website gets an
// http:// scheme when none is given.
func (r *commentRequest) validate() error {
	r.Text = strings.TrimSpace(r.Text)
	r.Author = strings.TrimSpace(r.Author)
	r.Email = strings.TrimSpace(r.Email)
	r.Website = strings.TrimSpace(r.Website)

	switch n := utf8.RuneCountInString(r.Text); {
	case n < minTextLength:
		return internal.ErrBadRequest("text is too short (minimum length: 3)")
	case n > maxTextLength:
		return internal.ErrBadRequest("text is too long (maximum length: 65535)")
	}
	if len(r.Author) > maxFieldLength {
		return internal.ErrBadRequest("author is too long")
	}
	if len(r.Email) > maxFieldLength {
		return internal.ErrBadRequest("email is too long")
	}
	if r.Website == "" {
		return nil
	}
	if len(r.Website) > maxFieldLength {
		return internal.ErrBadRequest("website is too long")
	}
	if !strings.HasPrefix(r.Website, "http://") && !strings.HasPrefix(r.Website, "https://") {
		r.Website = "http://" + r.Website
	}
	u, err := url.Parse(r.Website)
	if err != nil || u.Host == "" {
		return internal.ErrBadRequest("website is not a valid URL")
	}
	return nil
}

type commentResponse struct {
	Modified *float64 `json:"modified"`
	Parent   *int64   `json:"parent"`
	Text     string   `json:"text"`
	Author   string   `json:"author"`
	Website  string   `json:"website"`
	Hash     string   `json:"hash"`
	Created  float64  `json:"created"`
	ID       int64    `json:"id"`
	Mode     int      `json:"mode"`
	Likes    int      `json:"likes"`
	Dislikes int      `json:"dislikes"`
}

func newCommentResponse(c storage.Comment) commentResponse {
	resp := commentResponse{
		ID:       c.ID,
		Parent:   c.Parent,
		Created:  unixSeconds(c.Created),
		Mode:     int(c.Mode),
		Text:     c.Text,
		Author:   c.Author,
		Website:  c.Website,
		Likes:    c.Likes,
		Dislikes: c.Dislikes,
		Hash:     identityHash(c),
	}
	if c.Modified != nil {
		m := unixSeconds(*c.Modified)
		resp.Modified = &m
	}
	return resp
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// identityHash lets readers tell posts by the same person apart without
// exposing the email or address.
func identityHash(c storage.Comment) string {
	key := c.Email
	if key == "" {
		key = c.RemoteAddr
	}
	if key == "" {
		return ""
	}
	return digest(key)[:12]
}

// digest is the hex SHA-1 of s. Edit tokens carry the digest of the text
// they were issued for.
func digest(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// anonymize masks an IPv4 address to its /24 and an IPv6 address to its /48.
// Unparseable input is returned unchanged.
func anonymize(addr string) string {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return addr
	}
	ip = ip.Unmap()
	bits := 24
	if ip.Is6() {
		bits = 48
	}
	prefix, err := ip.Prefix(bits)
	if err != nil {
		return addr
	}
	return prefix.Addr().String()
}
