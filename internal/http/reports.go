package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/mkarimov/event-gateway/internal/repository"
)

func limitOffset(c echo.Context) (int, int) {
	limit := 50
	offset := 0
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// listSyncResultsHandler exposes the reconciliation audit log (MySQL).
func listSyncResultsHandler(syncsRepo repository.SyncResultsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := limitOffset(c)

		rows, err := syncsRepo.List(c.Request().Context(), limit, offset)
		if err != nil {
			c.Logger().Errorf("sync results list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}

// listDeliveriesHandler exposes the delivery-attempt audit log (ClickHouse).
func listDeliveriesHandler(dlogRepo repository.DeliveryLogRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := limitOffset(c)

		messageID := strings.TrimSpace(c.QueryParam("message_id"))

		outcome := strings.TrimSpace(c.QueryParam("outcome"))
		switch outcome {
		case "", "sent", "retry", "failed":
		default:
			outcome = ""
		}

		rows, err := dlogRepo.List(c.Request().Context(), messageID, outcome, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
