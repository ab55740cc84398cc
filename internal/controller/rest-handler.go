package controller

import (
	"net/http"

	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/rest"
)

type getRoomsQuery struct {
	Location string `json:"location" validate:"required,max=64"`
}

// getRooms lists the open rooms associated with a location key.
func (c *controller) getRooms(w http.ResponseWriter, r *http.Request) {
	query := getRoomsQuery{
		Location: r.URL.Query().Get("location"),
	}

	if validationErrors, ok := c.validate.Validate(query); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.roomService.GetRoomsByLocation(r.Context(), &room.GetRoomsByLocationParams{
		Location: query.Location,
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to get rooms", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": resp.Rooms})
}
