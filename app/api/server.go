package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkoval/feedsink/app/database"
)

const userKey = "user"

// NewServer creates the HTTP server with all routes configured. Every sync
// route sits behind the credential check; an unauthenticated request never
// reaches a core method.
func NewServer(handler *Handler, userRepo database.UserRepository) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	setupRoutes(r, handler, userRepo)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, userRepo database.UserRepository) {
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	syncGroup := r.Group("/sync")
	syncGroup.Use(authMiddleware(userRepo))
	{
		syncGroup.GET("/groups", handler.ListGroups)
		syncGroup.GET("/feeds", handler.ListFeeds)
		syncGroup.GET("/items", handler.ListItems)
		syncGroup.POST("/items/mark", handler.MarkItems)
		syncGroup.POST("/items/mark-read-before", handler.MarkReadBefore)
		syncGroup.GET("/counts", handler.GetCounts)
	}

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware validates HTTP Basic credentials against the user table
// and stores the authenticated user in the request context.
func authMiddleware(userRepo database.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="feedsink"`)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		user, err := userRepo.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			c.Header("WWW-Authenticate", `Basic realm="feedsink"`)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			c.Abort()
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *database.User {
	return c.MustGet(userKey).(*database.User)
}
