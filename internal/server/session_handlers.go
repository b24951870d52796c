package server

import (
	"net/http"
	"strings"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginRequestPayload struct {
	Phone string `json:"phone"`
}

type registerRequestPayload struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type recordRequestPayload struct {
	Action string `json:"action"`
	Slot   string `json:"slot"`
	Date   string `json:"date"`
}

type recordResponsePayload struct {
	Date string `json:"date"`
	Meal string `json:"meal"`
	statusPayload
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Phone) == "" {
		abortBadRequest(c, "invalid_request")
		return
	}
	person, found, err := h.people.Lookup(c.Request.Context(), request.Phone)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "registration_required"})
		return
	}
	if err := h.setSessionCookie(c, person); err != nil {
		h.logger.Error("failed to issue session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_issue_failed"})
		return
	}
	c.JSON(http.StatusOK, newPersonPayload(person))
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid_request")
		return
	}
	person, err := h.people.Register(c.Request.Context(), request.Phone, request.Name)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveRegistration()
	}
	h.board.Publish(BoardMessage{EventType: BoardEventRosterChanged, Phone: person.Phone, Timestamp: h.clock().UTC()})
	if err := h.setSessionCookie(c, person); err != nil {
		h.logger.Error("failed to issue session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_issue_failed"})
		return
	}
	c.JSON(http.StatusCreated, newPersonPayload(person))
}

func (h *httpHandler) handleMe(c *gin.Context) {
	h.respondDay(c, "")
}

func (h *httpHandler) handleMyMeals(c *gin.Context) {
	h.respondDay(c, c.Query("date"))
}

func (h *httpHandler) respondDay(c *gin.Context, rawDate string) {
	session, ok := currentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	date, err := h.requestDate(rawDate)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	statuses, err := h.meals.DayStatus(c.Request.Context(), session, date)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	person, found, err := h.people.Get(c.Request.Context(), session.Identity)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "registration_required"})
		return
	}
	c.JSON(http.StatusOK, newDayPayload(h.meals.Schedule(), newPersonPayload(person), date, h.clock(), statuses))
}

func (h *httpHandler) handleRecordMeal(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	meal, err := meals.ParseMealType(c.Param("meal"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	var request recordRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid_request")
		return
	}
	action, err := parseRequestedAction(request.Action, request.Slot)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	date, err := h.requestDate(request.Date)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	status, err := h.meals.RecordAction(c.Request.Context(), session, meal, date, action)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, recordResponsePayload{
		Date:          meals.FormatDate(date),
		Meal:          meal.String(),
		statusPayload: newStatusPayload(status),
	})
}

// parseRequestedAction accepts the stored tokens plus a bare LATE carrying its slot separately.
func parseRequestedAction(raw, slot string) (meals.Action, error) {
	if strings.EqualFold(strings.TrimSpace(raw), "LATE") {
		return meals.Late(slot)
	}
	return meals.ParseAction(raw)
}
