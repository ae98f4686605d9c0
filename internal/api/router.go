package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/levishimwe/bookswap/internal/api/handlers"
	"github.com/levishimwe/bookswap/internal/config"
	"github.com/levishimwe/bookswap/internal/services"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database) *gin.Engine {
	tokenService := services.NewTokenService(db, cfg)

	r := gin.Default()

	actionHandler := handlers.NewActionHandler(tokenService)

	// The action link is deliberately unauthenticated: the token is the
	// credential. GET because the link lands in an email client; POST
	// accepted too for clients that prefetch-guard.
	r.GET("/action", actionHandler.HandleAction)
	r.POST("/action", actionHandler.HandleAction)

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.GET("/healthz", func(c *gin.Context) {
		if err := db.Client().Ping(c.Request.Context(), nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
