package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/dmitrymomot/isso/internal/storage"
	"github.com/dmitrymomot/isso/pkg/logger"
)

// Result summarizes an import.
type Result struct {
	Threads  int
	Comments int
	Skipped  int
}

type disqusPost struct {
	created time.Time
	id      string
	thread  string
	parent  string
	message string
	author  string
	email   string
	addr    string
}

// DisqusFile imports the export at path.
func DisqusFile(ctx context.Context, store storage.Store, path string, l *slog.Logger) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return Disqus(ctx, store, f, l)
}

// Disqus imports a Disqus XML export read from r.
func Disqus(ctx context.Context, store storage.Store, r io.Reader, l *slog.Logger) (Result, error) {
	if l == nil {
		l = logger.NewNope()
	}
	l = l.With(logger.Component("migrate"))

	doc, err := xmlquery.Parse(r)
	if err != nil {
		return Result{}, errors.Join(ErrParse, err)
	}

	threads := make(map[string]string)
	for _, n := range xmlquery.Find(doc, "/*/*[local-name()='thread']") {
		id := dsqID(n)
		link := childText(n, "link")
		if id == "" || link == "" {
			continue
		}
		threads[id] = threadURI(link)
	}
	if len(threads) == 0 {
		return Result{}, ErrEmptyExport
	}

	var (
		res   Result
		posts = make(map[string][]disqusPost)
	)
	for _, n := range xmlquery.Find(doc, "/*/*[local-name()='post']") {
		if childText(n, "isDeleted") == "true" || childText(n, "isSpam") == "true" {
			res.Skipped++
			continue
		}
		p, err := parsePost(n)
		if err != nil {
			return res, err
		}
		if _, ok := threads[p.thread]; !ok {
			res.Skipped++
			continue
		}
		posts[p.thread] = append(posts[p.thread], p)
	}

	ids := make(map[string]int64)
	for _, thread := range slices.Sorted(maps.Keys(posts)) {
		uri := threads[thread]
		list := posts[thread]
		slices.SortStableFunc(list, func(a, b disqusPost) int {
			return a.created.Compare(b.created)
		})

		for _, p := range list {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			c := storage.Comment{
				Created:    p.created,
				Text:       p.message,
				Author:     p.author,
				Email:      p.email,
				RemoteAddr: p.addr,
				Mode:       storage.ModeAccepted,
			}
			if parent, ok := ids[p.parent]; ok {
				c.Parent = &parent
			}

			added, err := store.Add(ctx, uri, c)
			if err != nil {
				return res, fmt.Errorf("migrate: post %s: %w", p.id, err)
			}
			ids[p.id] = added.ID
			res.Comments++
		}
		res.Threads++
		l.DebugContext(ctx, "thread imported", slog.String("uri", uri), slog.Int("comments", len(list)))
	}

	l.InfoContext(ctx, "disqus import finished",
		slog.Int("threads", res.Threads),
		slog.Int("comments", res.Comments),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}

func parsePost(n *xmlquery.Node) (disqusPost, error) {
	p := disqusPost{
		id:      dsqID(n),
		message: strings.TrimSpace(childText(n, "message")),
		addr:    childText(n, "ipAddress"),
	}
	if t := child(n, "thread"); t != nil {
		p.thread = dsqID(t)
	}
	if parent := child(n, "parent"); parent != nil {
		p.parent = dsqID(parent)
	}
	if a := child(n, "author"); a != nil {
		p.author = childText(a, "name")
		p.email = childText(a, "email")
	}

	created, err := time.Parse(time.RFC3339, childText(n, "createdAt"))
	if err != nil {
		return p, errors.Join(ErrParse, fmt.Errorf("post %s: %w", p.id, err))
	}
	p.created = created
	return p, nil
}

// threadURI keeps only the path of a thread link.
func threadURI(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// dsqID returns the dsq:id attribute whatever prefix the export binds.
func dsqID(n *xmlquery.Node) string {
	for _, attr := range n.Attr {
		if attr.Name.Local == "id" {
			return attr.Value
		}
	}
	return ""
}

func child(n *xmlquery.Node, name string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}

func childText(n *xmlquery.Node, name string) string {
	if c := child(n, name); c != nil {
		return strings.TrimSpace(c.InnerText())
	}
	return ""
}
