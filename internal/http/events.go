package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/mkarimov/event-gateway/internal/repository"
)

// listEventsHandler serves the public open-event listing with a name
// filter and event_time ordering. Place names come joined from the
// repository, so no per-row lookups happen here.
func listEventsHandler(eventsRepo repository.EventsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := repository.EventsFilter{
			Name:      strings.TrimSpace(c.QueryParam("name")),
			OrderDesc: strings.EqualFold(c.QueryParam("order"), "desc"),
			Limit:     50,
		}

		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				f.Limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				f.Offset = n
			}
		}

		events, err := eventsRepo.ListOpen(c.Request().Context(), f)
		if err != nil {
			c.Logger().Errorf("list events failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"count":   len(events),
			"results": events,
		})
	}
}
