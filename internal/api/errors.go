package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/agentmarket/internal/market"
	"github.com/agentmarket/internal/negotiation"
	"github.com/agentmarket/internal/storage"
)

var statusByError = []struct {
	err    error
	status int
}{
	{negotiation.ErrInvalidRequest, http.StatusBadRequest},
	{market.ErrInvalidSession, http.StatusBadRequest},
	{market.ErrSameSeller, http.StatusBadRequest},
	{market.ErrSessionNotFound, http.StatusNotFound},
	{market.ErrNegotiationNotFound, http.StatusNotFound},
	{market.ErrPartyNotFound, http.StatusNotFound},
	{storage.ErrListingNotFound, http.StatusNotFound},
	{market.ErrPartyInactive, http.StatusConflict},
	{market.ErrNotInterested, http.StatusConflict},
	{market.ErrDuplicateNegotiation, http.StatusConflict},
	{market.ErrTurnInProgress, http.StatusConflict},
	{market.ErrSessionConflict, http.StatusConflict},
	{negotiation.ErrNotActive, http.StatusConflict},
}

// httpError maps domain errors onto HTTP status codes
func httpError(c echo.Context, err error) error {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return echo.NewHTTPError(m.status, err.Error())
		}
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
