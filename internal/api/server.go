// Package api serves the REST API over gin.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joescharf/vibejira/internal/auth"
	"github.com/joescharf/vibejira/internal/resolver"
	"github.com/joescharf/vibejira/internal/store"
)

// Server provides the REST API handlers.
type Server struct {
	store    store.Store
	resolver *resolver.Resolver
	auth     *auth.Authenticator
}

// NewServer creates a new API server.
func NewServer(s store.Store, r *resolver.Resolver, a *auth.Authenticator) *Server {
	return &Server{store: s, resolver: r, auth: a}
}

// Router returns the API handler. Every route answers with or without a
// trailing slash.
func (s *Server) Router() http.Handler {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.HandleMethodNotAllowed = true
	r.Use(Recovery(), RequestID(), Logger(), CORS())
	r.NoRoute(func(c *gin.Context) { writeError(c, http.StatusNotFound, "Not found.") })
	r.NoMethod(func(c *gin.Context) { writeError(c, http.StatusMethodNotAllowed, "Method not allowed.") })

	public := r.Group("/api")
	route(public, http.MethodPost, "/api-token-auth", s.obtainToken)

	api := r.Group("/api", s.RequireAuth())

	route(api, http.MethodGet, "/projects", s.listProjects)
	route(api, http.MethodPost, "/projects", s.createProject)
	route(api, http.MethodGet, "/projects/:id", s.getProject)
	route(api, http.MethodPut, "/projects/:id", s.updateProject)
	route(api, http.MethodPatch, "/projects/:id", s.patchProject)
	route(api, http.MethodDelete, "/projects/:id", s.deleteProject)

	route(api, http.MethodGet, "/tickets", s.listTickets)
	route(api, http.MethodPost, "/tickets", s.createTicket)
	route(api, http.MethodGet, "/tickets/:key", s.retrieveTicket)
	route(api, http.MethodPut, "/tickets/:key", s.updateTicket)
	route(api, http.MethodPatch, "/tickets/:key", s.patchTicket)
	route(api, http.MethodDelete, "/tickets/:key", s.deleteTicket)

	route(api, http.MethodGet, "/comments", s.listComments)
	route(api, http.MethodPost, "/comments", s.createComment)
	route(api, http.MethodGet, "/comments/:id", s.getComment)
	route(api, http.MethodPut, "/comments/:id", s.updateComment)
	route(api, http.MethodPatch, "/comments/:id", s.updateComment)
	route(api, http.MethodDelete, "/comments/:id", s.deleteComment)

	return r
}

func route(g *gin.RouterGroup, method, path string, h gin.HandlerFunc) {
	g.Handle(method, path, h)
	g.Handle(method, path+"/", h)
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
