package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hexavel/clientshare/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Clients   *ClientHandler
	Shares    *ShareHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/clients", deps.Clients.Create)
	authGroup.GET("/clients", deps.Clients.List)
	authGroup.GET("/clients/:id", deps.Clients.Get)
	authGroup.PUT("/clients/:id", deps.Clients.Update)
	authGroup.DELETE("/clients/:id", deps.Clients.Delete)

	authGroup.POST("/clients/:id/share-codes", deps.Shares.Generate)
	authGroup.DELETE("/clients/:id/share-codes", deps.Shares.RevokeAll)
	authGroup.GET("/clients/:id/sharing", deps.Shares.Stats)
	authGroup.DELETE("/clients/:id/access/:user_id", deps.Shares.RemoveAccess)
	authGroup.GET("/shared-clients", deps.Shares.ListSharedWithMe)

	// Outer brake on redemption probing; the authoritative issuing
	// quota lives in the service and is computed from the database.
	authGroup.POST("/share-codes/redeem", middleware.RateLimit(time.Second), deps.Shares.Redeem)
}
