package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarimov/event-gateway/internal/model"
	"github.com/mkarimov/event-gateway/internal/service/register"
)

type fakeRegistrar struct {
	res *register.Result
	err error

	gotEventID  string
	gotFullName string
	gotEmail    string
}

func (f *fakeRegistrar) Register(ctx context.Context, eventID, fullName, email string) (*register.Result, error) {
	f.gotEventID = eventID
	f.gotFullName = fullName
	f.gotEmail = email
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func doRegister(svc registrar, eventID, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/events/"+eventID+"/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	c.SetPath("/v1/events/:id/register")
	c.SetParamNames("id")
	c.SetParamValues(eventID)

	_ = registerHandler(svc)(c)
	return rec
}

func TestRegisterHandlerCreated(t *testing.T) {
	svc := &fakeRegistrar{res: &register.Result{
		Registration: model.Registration{
			ID:               "reg-1",
			EventID:          "ev-1",
			FullName:         "Dana Scott",
			Email:            "dana@example.com",
			ConfirmationCode: "A1B2C3",
		},
	}}

	rec := doRegister(svc, "ev-1", `{"full_name":"  Dana Scott ","email":"dana@example.com"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ev-1", svc.gotEventID)
	assert.Equal(t, "Dana Scott", svc.gotFullName, "full name is trimmed before the service sees it")
	assert.Equal(t, "dana@example.com", svc.gotEmail)

	assert.Contains(t, rec.Body.String(), `"registration_id":"reg-1"`)
	assert.Contains(t, rec.Body.String(), `"confirmation_code":"A1B2C3"`)
}

func TestRegisterHandlerValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing full name", `{"email":"a@b.com"}`},
		{"missing email", `{"full_name":"Dana"}`},
		{"invalid email", `{"full_name":"Dana","email":"not-an-email"}`},
		{"email with display name", `{"full_name":"Dana","email":"Dana <dana@example.com>"}`},
		{"full name too long", `{"full_name":"` + strings.Repeat("x", 129) + `","email":"a@b.com"}`},
		{"malformed body", `{"full_name":`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeRegistrar{}
			rec := doRegister(svc, "ev-1", tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.gotEventID, "service must not be called on invalid input")
		})
	}
}

func TestRegisterHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"event not found", register.ErrEventNotFound, http.StatusNotFound},
		{"event closed", register.ErrEventClosed, http.StatusBadRequest},
		{"already registered", register.ErrAlreadyRegistered, http.StatusConflict},
		{"storage error", errors.New("mysql gone away"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeRegistrar{err: tc.err}
			rec := doRegister(svc, "ev-1", `{"full_name":"Dana","email":"dana@example.com"}`)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
