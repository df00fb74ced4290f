package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jampad-booking/internal/model"
)

// ContactStore persists contact messages.
type ContactStore interface {
	Insert(ctx context.Context, m *model.ContactMessage) error
	List(ctx context.Context) ([]model.ContactMessage, error)
}

// ContactHandler serves the contact form.
type ContactHandler struct {
	Store ContactStore
	Now   func() time.Time
}

type contactReq struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Submit handles POST /v1/contact.  Every field is required.
func (h *ContactHandler) Submit(c echo.Context) error {
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	fields := map[string]string{}
	for name, v := range map[string]string{
		"name": req.Name, "email": req.Email, "phone": req.Phone, "subject": req.Subject, "message": req.Message,
	} {
		if strings.TrimSpace(v) == "" {
			fields[name] = "is required"
		}
	}
	if len(fields) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "all fields are required", "fields": fields})
	}

	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now()
	}
	m := &model.ContactMessage{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		Date:      now.Format("2006-01-02"),
		CreatedAt: now,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Store.Insert(ctx, m); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "message received", "id": m.ID})
}
