package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amishk599/jobfeed/internal/broadcast"
	"github.com/amishk599/jobfeed/internal/model"
)

func (s *Server) serveWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := broadcast.NewClient(s.hub, conn, s.handleEvent, s.logger)
	client.Serve(c.Request.Context())
}

// handleEvent answers one inbound websocket event. Replies go to the sender
// only; new_listings pushes come from the hub.
func (s *Server) handleEvent(ctx context.Context, c *broadcast.Client, env broadcast.Envelope) {
	switch env.Event {
	case broadcast.EventGetListings:
		listings, err := s.store.GetAll(ctx)
		if err != nil {
			s.logger.Error("loading listings", "error", err)
			c.Send(broadcast.EventError, broadcast.ErrorPayload{Message: "failed to load listings"})
			return
		}
		c.Send(broadcast.EventListings, listings)

	case broadcast.EventGetListing:
		var req broadcast.ListingRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.Send(broadcast.EventError, broadcast.ErrorPayload{Message: "invalid get_listing payload"})
			return
		}
		l, err := s.store.GetByID(ctx, req.ID)
		if errors.Is(err, model.ErrNotFound) {
			c.Send(broadcast.EventError, broadcast.ErrorPayload{Message: "listing not found"})
			return
		}
		if err != nil {
			s.logger.Error("loading listing", "id", req.ID, "error", err)
			c.Send(broadcast.EventError, broadcast.ErrorPayload{Message: "failed to load listing"})
			return
		}
		c.Send(broadcast.EventListing, l)

	case broadcast.EventCreateLetter:
		var req broadcast.LetterRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.Email == "" {
			c.Send(broadcast.EventLetterError, broadcast.LetterError{Error: "listing_id and email are required"})
			return
		}
		// Generation takes seconds; keep reading other events meanwhile.
		go func() {
			res, err := s.runLetter(ctx, req.ListingID, req.Email)
			if err != nil {
				status, msg := letterFailure(err)
				if status == http.StatusInternalServerError {
					s.logger.Error("creating letter", "listing_id", req.ListingID, "error", err)
				}
				c.Send(broadcast.EventLetterError, broadcast.LetterError{Error: msg})
				return
			}
			c.Send(broadcast.EventLetterSuccess, broadcast.LetterSuccess{Message: letterMessage(res)})
		}()

	case broadcast.EventKeepalive:
		c.Send(broadcast.EventKeepalive, broadcast.KeepaliveReply{Status: "ok"})

	default:
		c.Send(broadcast.EventError, broadcast.ErrorPayload{Message: "unknown event " + env.Event})
	}
}
