package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joescharf/vibejira/internal/auth"
)

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// obtainToken exchanges a username and password for an API token.
func (s *Server) obtainToken(c *gin.Context) {
	var in tokenRequest
	if !bind(c, &in) {
		return
	}
	token, err := s.auth.Login(c.Request.Context(), in.Username, in.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.AbortWithStatusJSON(http.StatusBadRequest, fieldErrors{
			"non_field_errors": {"Unable to log in with provided credentials."},
		})
		return
	}
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "Internal server error.")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"token": token})
}
