package server

import (
	"errors"
	"net/http"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/people"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type codedError interface {
	Code() string
}

type errorMapping struct {
	target error
	status int
	label  string
}

var errorMappings = []errorMapping{
	{target: people.ErrPersonExists, status: http.StatusConflict, label: "person_exists"},
	{target: people.ErrNameExists, status: http.StatusConflict, label: "name_exists"},
	{target: people.ErrPersonNotFound, status: http.StatusNotFound, label: "person_not_found"},
	{target: people.ErrInvalidIdentity, status: http.StatusBadRequest, label: "invalid_phone"},
	{target: people.ErrInvalidName, status: http.StatusBadRequest, label: "invalid_name"},
	{target: people.ErrInvalidLeaveState, status: http.StatusBadRequest, label: "invalid_status"},
	{target: meals.ErrDeadlinePassed, status: http.StatusLocked, label: "deadline_passed"},
	{target: meals.ErrSlotNotAllowed, status: http.StatusBadRequest, label: "slot_not_allowed"},
	{target: meals.ErrInvalidSlot, status: http.StatusBadRequest, label: "invalid_slot"},
	{target: meals.ErrInvalidAction, status: http.StatusBadRequest, label: "invalid_action"},
	{target: meals.ErrInvalidMealType, status: http.StatusBadRequest, label: "invalid_meal_type"},
	{target: meals.ErrInvalidDate, status: http.StatusBadRequest, label: "invalid_date"},
	{target: meals.ErrMissingIdentity, status: http.StatusUnauthorized, label: "unauthorized"},
}

// abortWithError maps a domain error to its status. Anything unmapped is a store failure:
// it is logged and reported as unavailable, never fatal.
func (h *httpHandler) abortWithError(c *gin.Context, err error) {
	payload := gin.H{}
	var coded codedError
	if errors.As(err, &coded) {
		payload["code"] = coded.Code()
	}
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.target) {
			payload["error"] = mapping.label
			c.AbortWithStatusJSON(mapping.status, payload)
			return
		}
	}
	h.logger.Error("request failed",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	payload["error"] = "store_unavailable"
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, payload)
}

func abortBadRequest(c *gin.Context, label string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": label})
}
