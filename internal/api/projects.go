package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joescharf/vibejira/internal/models"
	"github.com/joescharf/vibejira/internal/store"
)

type projectInput struct {
	Name        *string `json:"name" binding:"required,min=1,max=255"`
	JiraKey     *string `json:"jira_key" binding:"required,min=1,max=100"`
	Description *string `json:"description"`
}

type projectPatch struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	JiraKey     *string `json:"jira_key" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
}

// apply copies the fields present in the request onto p.
func (in projectPatch) apply(p *models.Project) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.JiraKey != nil {
		p.JiraKey = *in.JiraKey
	}
	if in.Description != nil {
		p.Description = in.Description
	}
}

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, projects)
}

func (s *Server) getProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (s *Server) createProject(c *gin.Context) {
	var in projectInput
	if !bind(c, &in) {
		return
	}
	p := &models.Project{}
	projectPatch(in).apply(p)
	if err := s.store.CreateProject(c.Request.Context(), p); err != nil {
		s.storeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, p)
}

func (s *Server) updateProject(c *gin.Context) {
	s.saveProject(c, func() (projectPatch, bool) {
		var in projectInput
		if !bind(c, &in) {
			return projectPatch{}, false
		}
		return projectPatch(in), true
	})
}

func (s *Server) patchProject(c *gin.Context) {
	s.saveProject(c, func() (projectPatch, bool) {
		var in projectPatch
		ok := bind(c, &in)
		return in, ok
	})
}

// saveProject loads the project, binds the body through decode and stores
// the merged result.
func (s *Server) saveProject(c *gin.Context, decode func() (projectPatch, bool)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	patch, ok := decode()
	if !ok {
		return
	}
	patch.apply(p)
	if err := s.store.UpdateProject(ctx, p); err != nil {
		s.storeError(c, err)
		return
	}
	p, err = s.store.GetProject(ctx, id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (s *Server) deleteProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), id); err != nil {
		s.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// pathID parses an internal id path parameter. A malformed id cannot match
// any row, so it is reported as not found.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

// queryID parses an optional id filter. Absent means no filter.
func queryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, fieldErrors{name: {"Select a valid choice. That choice is not one of the available choices."}})
		return 0, false
	}
	return id, true
}

// storeError maps a store error onto a response. Unique and foreign key
// violations become field errors on the fields that caused them.
func (s *Server) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, "Not found.")
	case errors.Is(err, store.ErrConflict):
		field, msg := conflictField(c)
		c.AbortWithStatusJSON(http.StatusBadRequest, fieldErrors{field: {msg}})
	case errors.Is(err, store.ErrInvalidReference):
		field := referenceField(c)
		c.AbortWithStatusJSON(http.StatusBadRequest, fieldErrors{field: {"Invalid pk - object does not exist."}})
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, err.Error())
	}
}

func conflictField(c *gin.Context) (string, string) {
	switch resourceOf(c) {
	case "tickets":
		return "jira_id", "ticket with this jira id already exists."
	default:
		return "jira_key", "project with this jira key already exists."
	}
}

func referenceField(c *gin.Context) string {
	if resourceOf(c) == "comments" {
		return "ticket"
	}
	return "project"
}

// resourceOf returns the collection segment of the matched route.
func resourceOf(c *gin.Context) string {
	rest, _ := strings.CutPrefix(c.FullPath(), "/api/")
	resource, _, _ := strings.Cut(rest, "/")
	return resource
}
