package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workflow-dispatcher/internal/dispatch"
	"workflow-dispatcher/internal/githubapp"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": "1.0.0",
	})
}

// handleDispatch accepts a dispatch event and returns the result record.
// The HTTP status is always 200 for a processed event; the outcome lives in
// the record itself, as it does for the Lambda surface.
func (s *Server) handleDispatch(c *gin.Context) {
	if !s.RateLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	var event dispatch.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		s.Logger.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.validate.Struct(event); err != nil {
		s.Logger.Error().Err(err).Msg("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID, _ := c.Get("request_id")
	s.Logger.Info().
		Interface("request_id", requestID).
		Str("repo", event.RepoOwner+"/"+event.RepoName).
		Str("workflow_file", event.WorkflowFile).
		Msg("Dispatch requested")

	result := s.Dispatcher.Trigger(c.Request.Context(), event)
	c.JSON(http.StatusOK, result)
}

// handleWorkflows lists the workflows of a repository using the service's
// configured App credentials.
func (s *Server) handleWorkflows(c *gin.Context) {
	owner := c.Query("owner")
	repo := c.Query("repo")
	if owner == "" || repo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner and repo query parameters are required"})
		return
	}

	cfg := s.Config
	if cfg.AppID == "" || cfg.InstallationID == "" || cfg.SecretName == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "workflow listing requires configured App credentials"})
		return
	}

	ctx := c.Request.Context()

	source, err := s.Dispatcher.Secrets(ctx, cfg.Region)
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to create secret source")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	pem, err := source.PrivateKey(ctx, cfg.SecretName)
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to retrieve private key")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	token, err := s.Dispatcher.Auth.InstallationToken(ctx, githubapp.AppCredential{
		AppID:          cfg.AppID,
		InstallationID: cfg.InstallationID,
		PrivateKeyPEM:  pem,
	})
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to mint installation token")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	client, err := githubapp.NewInstallationClient(ctx, token, cfg.APIBaseURL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	workflows, err := githubapp.ListWorkflows(ctx, client, owner, repo)
	if err != nil {
		s.Logger.Error().Err(err).Str("repo", owner+"/"+repo).Msg("Failed to list workflows")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"workflows": workflows})
}
