package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/agentmarket/internal/market"
	"github.com/agentmarket/internal/negotiation"
)

// buyerInput and sellerInput default active to true when omitted
type buyerInput struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	MaxPrice            float64  `json:"max_price"`
	InterestedSellerIDs []string `json:"interested_seller_ids"`
	Patience            *int     `json:"patience"`
	Active              *bool    `json:"active"`
}

type sellerInput struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	ListingID    string              `json:"listing_id"`
	Product      negotiation.Product `json:"product"`
	MinPrice     float64             `json:"min_price"`
	OpeningOffer *float64            `json:"opening_offer"`
	Patience     *int                `json:"patience"`
	Active       *bool               `json:"active"`
}

type createSessionRequest struct {
	Buyers  []buyerInput  `json:"buyers"`
	Sellers []sellerInput `json:"sellers"`
}

func (r createSessionRequest) toMarket() market.CreateSessionRequest {
	out := market.CreateSessionRequest{}
	for _, b := range r.Buyers {
		out.Buyers = append(out.Buyers, market.BuyerConfig{
			ID:                  b.ID,
			Name:                b.Name,
			MaxPrice:            b.MaxPrice,
			InterestedSellerIDs: b.InterestedSellerIDs,
			Patience:            b.Patience,
			Active:              b.Active == nil || *b.Active,
		})
	}
	for _, sl := range r.Sellers {
		out.Sellers = append(out.Sellers, market.SellerConfig{
			ID:           sl.ID,
			Name:         sl.Name,
			ListingID:    sl.ListingID,
			Product:      sl.Product,
			MinPrice:     sl.MinPrice,
			OpeningOffer: sl.OpeningOffer,
			Patience:     sl.Patience,
			Active:       sl.Active == nil || *sl.Active,
		})
	}
	return out
}

type pairRequest struct {
	BuyerID  string `json:"buyer_id"`
	SellerID string `json:"seller_id"`
}

type switchRequest struct {
	NewSellerID string `json:"new_seller_id"`
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	sess, err := s.deps.Manager.CreateSession(c.Request().Context(), req.toMarket())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (s *Server) listSessions(c echo.Context) error {
	list, err := s.deps.Manager.ListSessions(c.Request().Context())
	if err != nil {
		return httpError(c, err)
	}
	if list == nil {
		list = []*market.Session{}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) getSession(c echo.Context) error {
	sess, err := s.deps.Manager.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) deleteSession(c echo.Context) error {
	if err := s.deps.Manager.DeleteSession(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) addInterest(c echo.Context) error {
	var req pairRequest
	if err := c.Bind(&req); err != nil || req.BuyerID == "" || req.SellerID == "" {
		return badRequest("buyer_id and seller_id are required")
	}
	if err := s.deps.Manager.AddSellerInterest(c.Request().Context(), c.Param("id"), req.BuyerID, req.SellerID); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) startNegotiation(c echo.Context) error {
	var req pairRequest
	if err := c.Bind(&req); err != nil || req.BuyerID == "" || req.SellerID == "" {
		return badRequest("buyer_id and seller_id are required")
	}
	st, err := s.deps.Manager.StartNegotiation(c.Request().Context(), c.Param("id"), req.BuyerID, req.SellerID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (s *Server) executeTurn(c echo.Context) error {
	res, err := s.deps.Manager.ExecuteTurn(c.Request().Context(), c.Param("id"), c.Param("nid"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) switchSeller(c echo.Context) error {
	var req switchRequest
	if err := c.Bind(&req); err != nil || req.NewSellerID == "" {
		return badRequest("new_seller_id is required")
	}

	ctx := c.Request().Context()
	sess, err := s.deps.Manager.GetSession(ctx, c.Param("id"))
	if err != nil {
		return httpError(c, err)
	}
	cur, ok := sess.ActiveNegotiations[c.Param("nid")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "negotiation not found or not active")
	}

	next, err := s.deps.Manager.SwitchSeller(ctx, sess.ID, cur.BuyerID, cur.SellerID, req.NewSellerID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, next)
}

func (s *Server) runSession(c echo.Context) error {
	sessionID := c.Param("id")
	ctx := c.Request().Context()

	async, _ := strconv.ParseBool(c.QueryParam("async"))
	if async {
		if s.deps.Queue == nil {
			return badRequest("async runs require a configured database")
		}
		if _, err := s.deps.Manager.GetSession(ctx, sessionID); err != nil {
			return httpError(c, err)
		}
		jobID, err := s.deps.Queue.QueueAutomatedSession(ctx, sessionID)
		if err != nil {
			return httpError(c, err)
		}
		return c.JSON(http.StatusAccepted, map[string]any{
			"session_id": sessionID,
			"job_id":     jobID,
		})
	}

	res, err := s.deps.Manager.ExecuteAutomatedSession(ctx, sessionID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
