package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mangadome/internal/assistant"
	"mangadome/internal/catalog"
	"mangadome/internal/library"
	"mangadome/internal/logging"
)

// Catalog is the slice of the catalog client the handlers use.
type Catalog interface {
	SearchManga(ctx context.Context, q catalog.SearchQuery) (*catalog.MangaPage, error)
	GetManga(ctx context.Context, id int) (*catalog.Manga, error)
	TopManga(ctx context.Context, page, limit int) (*catalog.MangaPage, error)
	MangaRecommendations(ctx context.Context, id int) ([]catalog.Recommendation, error)
	Genres(ctx context.Context) ([]catalog.Genre, error)
}

// Streamer runs one assistant turn, forwarding chunks through emit.
type Streamer interface {
	Stream(ctx context.Context, req assistant.Request, emit func(string) error) (*assistant.Outcome, error)
}

// LibraryStore is the slice of the library store the handlers use.
type LibraryStore interface {
	UpsertItem(ctx context.Context, item library.Item) error
	ListItems(ctx context.Context, userID string) ([]library.Item, error)
	DeleteItem(ctx context.Context, userID string, malID int) error
	AddReview(ctx context.Context, r library.Review) (*library.Review, error)
	ListReviews(ctx context.Context, malID int) ([]library.Review, error)
}

// Deps holds the server's collaborators.
type Deps struct {
	Catalog Catalog
	Relay   Streamer
	Library LibraryStore
}

// Server is the HTTP surface.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	deps   Deps
}

// New assembles the engine and routes.
func New(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog())

	s := &Server{engine: engine, deps: deps}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	{
		api.POST("/assistant", s.handleAssistant)

		api.GET("/manga", s.handleSearchManga)
		api.GET("/manga/:id", s.handleGetManga)
		api.GET("/manga/:id/recommendations", s.handleRecommendations)
		api.GET("/top/manga", s.handleTopManga)
		api.GET("/genres", s.handleGenres)

		api.GET("/library", s.handleListLibrary)
		api.POST("/library", s.handleUpsertLibrary)
		api.DELETE("/library/:malId", s.handleDeleteLibrary)

		api.GET("/manga/:id/reviews", s.handleListReviews)
		api.POST("/manga/:id/reviews", s.handleAddReview)
	}

	return s
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until Shutdown. WriteTimeout stays zero so streaming
// responses are not cut off mid-flight.
func (s *Server) Run(addr string) error {
	s.http = &http.Server{
		Addr:        addr,
		Handler:     s.engine,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	logging.Server("listening on %s", addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.ServerDebug("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
