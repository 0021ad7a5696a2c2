package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mangadome/internal/library"
	"mangadome/internal/logging"
)

type upsertItemRequest struct {
	UserID   string `json:"userId" binding:"required"`
	MalID    int    `json:"malId" binding:"required,gt=0"`
	Title    string `json:"title" binding:"required"`
	Status   string `json:"status" binding:"required,oneof=reading completed plan_to_read"`
	Favorite bool   `json:"favorite"`
	Score    *int   `json:"score" binding:"omitempty,gte=1,lte=10"`
}

type addReviewRequest struct {
	UserID string `json:"userId" binding:"required"`
	Rating int    `json:"rating" binding:"required,gte=1,lte=10"`
	Body   string `json:"body" binding:"required"`
}

func (s *Server) handleListLibrary(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	items, err := s.deps.Library.ListItems(c.Request.Context(), userID)
	if err != nil {
		logging.LibraryError("list items failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "library unavailable"})
		return
	}
	if items == nil {
		items = []library.Item{}
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) handleUpsertLibrary(c *gin.Context) {
	var req upsertItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	item := library.Item{
		UserID:   req.UserID,
		MalID:    req.MalID,
		Title:    req.Title,
		Status:   library.Status(req.Status),
		Favorite: req.Favorite,
		Score:    req.Score,
	}
	if err := s.deps.Library.UpsertItem(c.Request.Context(), item); err != nil {
		logging.LibraryError("upsert item failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "library unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) handleDeleteLibrary(c *gin.Context) {
	userID := c.Query("userId")
	malID, err := strconv.Atoi(c.Param("malId"))
	if userID == "" || err != nil || malID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and a valid malId are required"})
		return
	}
	if err := s.deps.Library.DeleteItem(c.Request.Context(), userID, malID); err != nil {
		logging.LibraryError("delete item failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "library unavailable"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListReviews(c *gin.Context) {
	malID, err := strconv.Atoi(c.Param("id"))
	if err != nil || malID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid manga id"})
		return
	}
	reviews, err := s.deps.Library.ListReviews(c.Request.Context(), malID)
	if err != nil {
		logging.LibraryError("list reviews failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "library unavailable"})
		return
	}
	if reviews == nil {
		reviews = []library.Review{}
	}
	c.JSON(http.StatusOK, gin.H{"data": reviews})
}

func (s *Server) handleAddReview(c *gin.Context) {
	malID, err := strconv.Atoi(c.Param("id"))
	if err != nil || malID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid manga id"})
		return
	}
	var req addReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	review, err := s.deps.Library.AddReview(c.Request.Context(), library.Review{
		UserID: req.UserID,
		MalID:  malID,
		Rating: req.Rating,
		Body:   req.Body,
	})
	if err != nil {
		logging.LibraryError("add review failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "library unavailable"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": review})
}
