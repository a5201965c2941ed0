package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joescharf/vibejira/internal/models"
	"github.com/joescharf/vibejira/internal/store"
)

// commentInput has no author or created_date: both are assigned server side
// and any client value is dropped during decoding.
type commentInput struct {
	Ticket *int64  `json:"ticket" binding:"required"`
	Body   *string `json:"body" binding:"required,min=1"`
}

type commentUpdate struct {
	Body *string `json:"body" binding:"required,min=1"`
}

func (s *Server) listComments(c *gin.Context) {
	ticketID, ok := queryID(c, "ticket")
	if !ok {
		return
	}
	comments, err := s.store.ListComments(c.Request.Context(), store.CommentListFilter{TicketID: ticketID})
	if err != nil {
		s.storeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, comments)
}

func (s *Server) createComment(c *gin.Context) {
	var in commentInput
	if !bind(c, &in) {
		return
	}
	cm := &models.Comment{TicketID: *in.Ticket, Body: *in.Body}
	if err := s.store.CreateComment(c.Request.Context(), cm, currentUser(c)); err != nil {
		s.storeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, cm)
}

func (s *Server) getComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cm, err := s.store.GetComment(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, cm)
}

// updateComment serves PUT and PATCH. Only the body can change.
func (s *Server) updateComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	cm, err := s.store.GetComment(ctx, id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	var in commentUpdate
	if !bind(c, &in) {
		return
	}
	cm.Body = *in.Body
	if err := s.store.UpdateComment(ctx, cm); err != nil {
		s.storeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, cm)
}

func (s *Server) deleteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteComment(c.Request.Context(), id); err != nil {
		s.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
