package views

import (
	"net/http"

	"github.com/dmitrymomot/isso/internal"
)

// Info answers GET /info with the host and origin resolved for the request.
type Info struct {
	Moderation bool
}

type infoResponse struct {
	Host       string `json:"host"`
	Origin     string `json:"origin"`
	Moderation bool   `json:"moderation"`
}

func (v *Info) Routes(r internal.Router) {
	r.GET("/info", v.show)
}

func (v *Info) show(c internal.Context) error {
	return c.JSON(http.StatusOK, infoResponse{
		Host:       c.Host(),
		Origin:     c.Origin(),
		Moderation: v.Moderation,
	})
}
