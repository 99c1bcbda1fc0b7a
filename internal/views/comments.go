package views

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/isso/internal"
	"github.com/dmitrymomot/isso/internal/notify"
	"github.com/dmitrymomot/isso/internal/storage"
	"github.com/dmitrymomot/isso/middlewares"
	"github.com/dmitrymomot/isso/pkg/cache"
)

// TokenSigner issues and verifies edit tokens. *signer.Signer implements it.
type TokenSigner interface {
	middlewares.TokenVerifier
	Issue(payload any) (string, error)
}

// Option configures Comments.
type Option func(*Comments)

// WithSignal sets where comment events are emitted.
func WithSignal(s *notify.Signal) Option {
	return func(v *Comments) {
		if s != nil {
			v.signal = s
		}
	}
}

// WithCountCache caches per-thread comment counts.
func WithCountCache(l *cache.Loader[int]) Option {
	return func(v *Comments) {
		v.counts = l
	}
}

// WithGuard rate limits new comments per client address.
func WithGuard(g *Guard) Option {
	return func(v *Comments) {
		v.guard = g
	}
}

// WithModeration holds new comments as pending.
func WithModeration(enabled bool) Option {
	return func(v *Comments) {
		v.moderated = enabled
	}
}

// WithMaxAge sets how long an author may edit or delete a comment.
func WithMaxAge(d time.Duration) Option {
	return func(v *Comments) {
		if d > 0 {
			v.maxAge = d
		}
	}
}

// Comments serves the comment API.
type Comments struct {
	store     storage.Store
	signer    TokenSigner
	signal    *notify.Signal
	counts    *cache.Loader[int]
	guard     *Guard
	maxAge    time.Duration
	moderated bool
}

func NewComments(store storage.Store, signer TokenSigner, opts ...Option) *Comments {
	v := &Comments{
		store:  store,
		signer: signer,
		signal: notify.NewSignal(nil),
		maxAge: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Comments) Routes(r internal.Router) {
	r.GET("/", v.fetch)
	r.POST("/new", v.create)
	r.POST("/count", v.count)
	r.GET("/id/{id}", v.view)
	r.POST("/id/{id}/like", v.vote(true))
	r.POST("/id/{id}/dislike", v.vote(false))

	r.Group(func(r internal.Router) {
		r.Use(middlewares.EditToken(v.signer, v.maxAge))
		r.PUT("/id/{id}", v.edit)
		r.DELETE("/id/{id}", v.remove)
	})
}

func (v *Comments) create(c internal.Context) error {
	uri := c.Query("uri")
	if uri == "" {
		return internal.ErrBadRequest("missing uri query parameter")
	}

	var req commentRequest
	if err := c.BindJSON(&req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	addr := anonymize(c.RemoteAddr())
	if v.guard != nil && !v.guard.Allow(addr) {
		return internal.ErrForbidden("ratelimit exceeded")
	}

	mode := storage.ModeAccepted
	if v.moderated {
		mode = storage.ModePending
	}

	comment, err := v.store.Add(c, uri, storage.Comment{
		Parent:     req.Parent,
		Text:       req.Text,
		Author:     req.Author,
		Email:      req.Email,
		Website:    req.Website,
		RemoteAddr: addr,
		Mode:       mode,
	})
	if errors.Is(err, storage.ErrInvalidParent) {
		return internal.ErrBadRequest("parent comment does not exist", internal.WithError(err))
	}
	if err != nil {
		return err
	}

	v.emit(c, notify.CommentNew, uri, comment)
	c.LogInfo("comment created", slog.Int64("comment_id", comment.ID), slog.String("uri", uri))

	if err := v.grant(c, comment); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newCommentResponse(comment))
}

func (v *Comments) fetch(c internal.Context) error {
	uri := c.Query("uri")
	if uri == "" {
		return internal.ErrBadRequest("missing uri query parameter")
	}

	comments, err := v.store.Fetch(c, uri)
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		return internal.ErrNotFound("")
	}

	resp := make([]commentResponse, len(comments))
	for i, comment := range comments {
		resp[i] = newCommentResponse(comment)
	}
	return c.JSON(http.StatusOK, resp)
}

func (v *Comments) view(c internal.Context) error {
	comment, err := v.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newCommentResponse(comment))
}

func (v *Comments) edit(c internal.Context) error {
	comment, err := v.authorize(c)
	if err != nil {
		return err
	}

	var req commentRequest
	if err := c.BindJSON(&req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	updated, err := v.store.Update(c, comment.ID, storage.Edit{
		Text:    req.Text,
		Author:  req.Author,
		Website: req.Website,
	})
	if err != nil {
		return err
	}

	v.emit(c, notify.CommentEdit, updated.URI, updated)
	if err := v.grant(c, updated); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newCommentResponse(updated))
}

func (v *Comments) remove(c internal.Context) error {
	comment, err := v.authorize(c)
	if err != nil {
		return err
	}

	placeholder, err := v.store.Delete(c, comment.ID)
	if err != nil {
		return err
	}

	v.emit(c, notify.CommentDelete, comment.URI, comment)
	v.revoke(c, comment.ID)

	if placeholder == nil {
		return c.JSON(http.StatusOK, nil)
	}
	return c.JSON(http.StatusOK, newCommentResponse(*placeholder))
}

// vote answers null for an unknown comment, matching the voting widget.
func (v *Comments) vote(like bool) internal.HandlerFunc {
	return func(c internal.Context) error {
		id, ok := internal.ParamInt(c, "id")
		if !ok {
			return internal.ErrNotFound("")
		}

		votes, err := v.store.Vote(c, id, like, anonymize(c.RemoteAddr()))
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusOK, nil)
		}
		if err != nil {
			return err
		}

		v.emit(c, notify.CommentVote, "", storage.Comment{ID: id, Likes: votes.Likes, Dislikes: votes.Dislikes})
		return c.JSON(http.StatusOK, votes)
	}
}

func (v *Comments) count(c internal.Context) error {
	var uris []string
	if err := c.BindJSON(&uris); err != nil {
		return err
	}

	counts := make([]int, len(uris))
	if v.counts == nil {
		all, err := v.store.Count(c, uris...)
		if err != nil {
			return err
		}
		copy(counts, all)
		return c.JSON(http.StatusOK, counts)
	}

	for i, uri := range uris {
		n, err := v.counts.Get(c, uri, func(ctx context.Context) (int, error) {
			res, err := v.store.Count(ctx, uri)
			if err != nil {
				return 0, err
			}
			return res[0], nil
		})
		if err != nil {
			return err
		}
		counts[i] = n
	}
	return c.JSON(http.StatusOK, counts)
}

func (v *Comments) lookup(c internal.Context) (storage.Comment, error) {
	id, ok := internal.ParamInt(c, "id")
	if !ok {
		return storage.Comment{}, internal.ErrNotFound("")
	}
	comment, err := v.store.Get(c, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Comment{}, internal.ErrNotFound("", internal.WithError(err))
	}
	return comment, err
}

// authorize loads the comment named by the verified edit token and checks
// its text is still the one the token was issued for.
func (v *Comments) authorize(c internal.Context) (storage.Comment, error) {
	claims, ok := middlewares.GetEditClaims(c)
	if !ok {
		return storage.Comment{}, internal.ErrForbidden("missing edit token")
	}
	comment, err := v.lookup(c)
	if err != nil {
		return storage.Comment{}, err
	}
	if claims.Hash != digest(comment.Text) {
		return storage.Comment{}, internal.ErrForbidden("comment changed since the token was issued")
	}
	return comment, nil
}

// grant hands the author an edit token, both as a cookie and as the
// X-Set-Cookie header for cross-origin embeds.
func (v *Comments) grant(c internal.Context, comment storage.Comment) error {
	token, err := v.signer.Issue(middlewares.EditClaims{ID: comment.ID, Hash: digest(comment.Text)})
	if err != nil {
		return err
	}
	cookie := &http.Cookie{
		Name:   strconv.FormatInt(comment.ID, 10),
		Value:  token,
		Path:   "/",
		MaxAge: int(v.maxAge.Seconds()),
	}
	c.SetCookie(cookie)
	c.SetHeader("X-Set-Cookie", cookie.String())
	return nil
}

func (v *Comments) revoke(c internal.Context, id int64) {
	cookie := &http.Cookie{
		Name:   strconv.FormatInt(id, 10),
		Path:   "/",
		MaxAge: -1,
	}
	c.SetCookie(cookie)
	c.SetHeader("X-Set-Cookie", cookie.String())
}

func (v *Comments) emit(c internal.Context, name, uri string, comment storage.Comment) {
	v.signal.Emit(c, notify.Event{
		Name:    name,
		URI:     uri,
		Host:    c.Host(),
		Origin:  c.Origin(),
		Comment: comment,
	})
}
