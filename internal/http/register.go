package http

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/mkarimov/event-gateway/internal/metrics"
	"github.com/mkarimov/event-gateway/internal/service/register"
)

type registrar interface {
	Register(ctx context.Context, eventID, fullName, email string) (*register.Result, error)
}

type registerReq struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// registerHandler is the registration intake. Validation happens here;
// on success the service commits the registration and its outbox row as
// one unit. Delivery outcome is invisible to the caller.
func registerHandler(svc registrar) echo.HandlerFunc {
	return func(c echo.Context) error {
		eventID := strings.TrimSpace(c.Param("id"))
		if eventID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing event id"})
		}

		var req registerReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.FullName = strings.TrimSpace(req.FullName)
		req.Email = strings.TrimSpace(req.Email)

		if req.FullName == "" || req.Email == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "full_name and email are required"})
		}
		if utf8.RuneCountInString(req.FullName) > 128 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "full_name too long"})
		}
		if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid email"})
		}

		res, err := svc.Register(c.Request().Context(), eventID, req.FullName, req.Email)
		if err != nil {
			switch {
			case errors.Is(err, register.ErrEventNotFound):
				metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
				return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
			case errors.Is(err, register.ErrEventClosed):
				metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "event is closed for registration"})
			case errors.Is(err, register.ErrAlreadyRegistered):
				metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
				return c.JSON(http.StatusConflict, map[string]string{"error": "already registered for this event"})
			}

			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
			log.Errorf("register failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		metrics.RegistrationsTotal.WithLabelValues("created").Inc()

		return c.JSON(http.StatusCreated, map[string]any{
			"registration_id":   res.Registration.ID,
			"confirmation_code": res.Registration.ConfirmationCode,
			"event_id":          res.Registration.EventID,
		})
	}
}
