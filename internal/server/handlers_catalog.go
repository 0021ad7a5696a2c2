package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mangadome/internal/catalog"
	"mangadome/internal/logging"
)

// writeCatalogError maps a catalog failure to a status. Rate limiting is a
// distinct, user-actionable condition; upstream errors keep their status;
// undecodable upstream data is a bad gateway, never silently papered over.
func writeCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrRateLimited):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog rate limited, try again later"})
	case errors.Is(err, catalog.ErrInvalidPayload):
		logging.ServerWarn("catalog returned invalid data: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "invalid catalog response"})
	default:
		var ue *catalog.UpstreamError
		if errors.As(err, &ue) {
			c.JSON(ue.Status, gin.H{"error": ue.Message})
			return
		}
		logging.ServerError("catalog request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog unavailable"})
	}
}

func (s *Server) handleSearchManga(c *gin.Context) {
	q := catalog.SearchQuery{
		Query:   c.Query("q"),
		Genres:  c.Query("genres"),
		OrderBy: c.Query("order_by"),
		Sort:    c.Query("sort"),
		SFW:     c.Query("sfw") == "true",
	}
	q.Page, _ = strconv.Atoi(c.Query("page"))
	q.Limit, _ = strconv.Atoi(c.Query("limit"))

	page, err := s.deps.Catalog.SearchManga(c.Request.Context(), q)
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetManga(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid manga id"})
		return
	}
	m, err := s.deps.Catalog.GetManga(c.Request.Context(), id)
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": m})
}

func (s *Server) handleTopManga(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	res, err := s.deps.Catalog.TopManga(c.Request.Context(), page, limit)
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleRecommendations(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid manga id"})
		return
	}
	recs, err := s.deps.Catalog.MangaRecommendations(c.Request.Context(), id)
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recs})
}

func (s *Server) handleGenres(c *gin.Context) {
	genres, err := s.deps.Catalog.Genres(c.Request.Context())
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": genres})
}
