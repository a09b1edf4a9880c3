// Package httpapi is the HTTP surface of the server: gin routing, session
// middleware and the account handlers.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/elnafo/internal/logging"
	"github.com/dmitrijs2005/elnafo/internal/server/metrics"
)

// RouterDeps are the collaborators the router wires together.
type RouterDeps struct {
	Handlers    *Handlers
	Sessions    *Sessions
	Metrics     *metrics.Metrics
	Logger      logging.Logger
	CORSOrigins []string
}

// NewRouter builds the gin engine. Account routes live under /api; avatar
// images and metrics are served from the root.
func NewRouter(d RouterDeps) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(Recovery(d.Logger), RequestLogger(d.Logger), CORS(d.CORSOrigins))
	if d.Metrics != nil {
		r.Use(Instrument(d.Metrics))
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	h := d.Handlers
	require := d.Sessions.RequireUser()
	optional := d.Sessions.OptionalUser()

	api := r.Group("/api")
	api.GET("/healthcheck", h.Healthcheck)

	user := api.Group("/user")
	user.POST("/register", h.Register)
	user.POST("/login", h.Login)
	user.GET("/logout", h.Logout)
	user.POST("/remove", h.Remove)
	user.GET("/current", require, h.Current)
	user.GET("/profile", require, h.CurrentProfile)
	user.GET("/all", optional, h.All)
	user.GET("/:login", optional, h.Profile)
	user.POST("/avatar", require, h.UploadAvatar)
	user.DELETE("/avatar", require, h.DeleteAvatar)
	user.POST("/password", require, h.ChangePassword)

	r.GET("/avatars/:id", h.Avatar)
	r.NoRoute(h.NotFound)

	return r
}
