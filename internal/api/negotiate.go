package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agentmarket/internal/negotiation"
)

// negotiate runs a complete two-party negotiation and returns the transcript
func (s *Server) negotiate(c echo.Context) error {
	var req negotiation.Request
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	res, err := s.deps.Engine.Negotiate(c.Request().Context(), req)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
