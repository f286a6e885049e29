package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"postable/handlers"
	"postable/middleware"
)

// Setup wires every route onto a gin engine. Sign-up and authentication are
// public; everything else sits behind the JWT middleware.
func Setup(users *handlers.UserHandler, posts *handlers.PostHandler, jwtSecret string, allowedOrigins []string) *gin.Engine {
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes (no auth required)
	router.POST("/users", users.Create)
	router.POST("/users/authenticate", users.Authenticate)

	// Protected routes
	protected := router.Group("/")
	protected.Use(middleware.JWTAuth(jwtSecret))

	protected.GET("/users/:id", users.Show)
	protected.PATCH("/users/:id", users.Update)
	protected.PATCH("/users/:id/password", users.UpdatePassword)
	protected.DELETE("/users/:id", users.Delete)
	protected.POST("/users/:id/image", users.UploadImage)

	protected.GET("/posts", posts.Index)
	protected.POST("/posts", posts.Create)
	protected.PATCH("/posts/:id", posts.Update)
	protected.DELETE("/posts/:id", posts.Delete)

	return router
}
