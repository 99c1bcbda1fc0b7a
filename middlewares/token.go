package middlewares

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/dmitrymomot/isso/internal"
)

// EditClaims is the payload of a comment edit token: the comment id and a
// digest of the text the token was issued for. It is encoded as a two
// element JSON array.
type EditClaims struct {
	Hash string
	ID   int64
}

func (e EditClaims) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.ID, e.Hash})
}

func (e *EditClaims) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return errors.New("edit claims: want [id, hash]")
	}
	if err := json.Unmarshal(raw[0], &e.ID); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &e.Hash)
}

// TokenVerifier checks signed tokens. *signer.Signer implements it.
type TokenVerifier interface {
	Verify(token string, maxAge time.Duration, dst any) error
}

type editClaimsKey struct{}

// EditTokenConfig configures the EditToken middleware.
type EditTokenConfig struct {
	Extractor    internal.Extractor
	Param        string
	extractorSet bool
}

// EditTokenOption configures EditTokenConfig.
type EditTokenOption func(*EditTokenConfig)

// WithEditTokenExtractor sets a custom token extractor chain.
func WithEditTokenExtractor(ext internal.Extractor) EditTokenOption {
	return func(cfg *EditTokenConfig) {
		cfg.Extractor = ext
		cfg.extractorSet = true
	}
}

// EditToken guards routes that modify a comment. The token is read from the
// cookie named after the {id} parameter, must verify within maxAge and must
// name the same comment id. The verified claims are stored for the handler.
func EditToken(v TokenVerifier, maxAge time.Duration, opts ...EditTokenOption) internal.Middleware {
	cfg := &EditTokenConfig{Param: "id"}
	for _, opt := range opts {
		opt(cfg)
	}
	if !cfg.extractorSet {
		cfg.Extractor = internal.NewExtractor(internal.FromParamCookie(cfg.Param))
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			id, err := strconv.ParseInt(c.Param(cfg.Param), 10, 64)
			if err != nil {
				return internal.ErrNotFound("")
			}

			token, ok := cfg.Extractor.Extract(c)
			if !ok {
				return internal.ErrForbidden("missing edit token")
			}

			var claims EditClaims
			if err := v.Verify(token, maxAge, &claims); err != nil {
				return internal.ErrForbidden("invalid edit token", internal.WithError(err))
			}
			if claims.ID != id {
				return internal.ErrForbidden("token issued for another comment")
			}

			c.Set(editClaimsKey{}, claims)
			return next(c)
		}
	}
}

// GetEditClaims returns the claims stored by EditToken.
func GetEditClaims(c internal.Context) (EditClaims, bool) {
	claims, ok := c.Get(editClaimsKey{}).(EditClaims)
	return claims, ok
}
