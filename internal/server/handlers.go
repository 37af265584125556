package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/amishk599/jobfeed/internal/ai"
	"github.com/amishk599/jobfeed/internal/letter"
	"github.com/amishk599/jobfeed/internal/model"
)

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok", "clients": s.hub.Len()}
	if n, err := s.store.Count(c.Request.Context()); err == nil {
		body["listings"] = n
	} else {
		s.logger.Error("health: counting listings", "error", err)
		body["status"] = "degraded"
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) listListings(c *gin.Context) {
	listings, err := s.store.GetAll(c.Request.Context())
	if err != nil {
		s.logger.Error("loading listings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load listings"})
		return
	}
	c.JSON(http.StatusOK, listings)
}

func (s *Server) getListing(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}
	l, err := s.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		return
	}
	if err != nil {
		s.logger.Error("loading listing", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load listing"})
		return
	}
	c.JSON(http.StatusOK, l)
}

type letterBody struct {
	Email string `json:"email" binding:"required"`
}

func (s *Server) createLetter(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}
	var body letterBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	res, err := s.runLetter(c.Request.Context(), id, body.Email)
	if err != nil {
		status, msg := letterFailure(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("creating letter", "listing_id", id, "error", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": letterMessage(res)})
}

// runLetter bounds the pipeline with the letter timeout. The caller going
// away does not abort a letter that is already being generated.
func (s *Server) runLetter(ctx context.Context, id int64, email string) (letter.Result, error) {
	if s.letters == nil {
		return letter.Result{}, errLettersUnavailable
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.LetterTimeout)
	defer cancel()
	return s.letters.Create(ctx, id, email)
}

var errLettersUnavailable = errors.New("letter service unavailable")

// letterFailure maps a letter pipeline error to an HTTP status and a
// client-facing message.
func letterFailure(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "listing not found"
	case errors.Is(err, letter.ErrInvalidEmail):
		return http.StatusBadRequest, "invalid email address"
	case errors.Is(err, ai.ErrDisabled), errors.Is(err, errLettersUnavailable):
		return http.StatusServiceUnavailable, "letter generation is disabled"
	default:
		return http.StatusInternalServerError, "failed to create letter"
	}
}

func letterMessage(res letter.Result) string {
	return fmt.Sprintf("letter for listing %d sent to %s", res.ListingID, res.Recipient)
}
