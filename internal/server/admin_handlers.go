package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/people"
	"github.com/659954771/meal-app/internal/reports"
	"github.com/659954771/meal-app/internal/sheets"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	monthLayout       = "2006-01"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxImportBytes    = 16 << 20
	importFormField   = "file"
	formatQueryParam  = "format"
	workbookFormatKey = "xlsx"
)

type leaveStateRequestPayload struct {
	Status string `json:"status"`
}

func (h *httpHandler) handleDaily(c *gin.Context) {
	date, err := h.requestDate(c.Query("date"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	counts, err := h.reports.Daily(c.Request.Context(), date)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDayCountsPayload(counts))
}

func (h *httpHandler) handleRoster(c *gin.Context) {
	date, err := h.requestDate(c.Query("date"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	roster, err := h.reports.Roster(c.Request.Context(), date)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRosterPayload(roster))
}

// handleLateBoard returns the board of one meal, or of both when no meal is named.
func (h *httpHandler) handleLateBoard(c *gin.Context) {
	date, err := h.requestDate(c.Query("date"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	selected := meals.MealTypes
	if raw := c.Query("meal"); raw != "" {
		meal, err := meals.ParseMealType(raw)
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		selected = []meals.MealType{meal}
	}
	boards := make([]lateBoardPayload, 0, len(selected))
	for _, meal := range selected {
		board, err := h.reports.LateBoard(c.Request.Context(), date, meal)
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		boards = append(boards, newLateBoardPayload(board))
	}
	c.JSON(http.StatusOK, gin.H{"date": meals.FormatDate(date), "boards": boards})
}

func (h *httpHandler) handleMonthly(c *gin.Context) {
	location := h.reports.Location()
	month := time.Date(h.clock().In(location).Year(), h.clock().In(location).Month(), 1, 0, 0, 0, 0, location)
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		parsed, err := time.ParseInLocation(monthLayout, raw, location)
		if err != nil {
			abortBadRequest(c, "invalid_month")
			return
		}
		month = parsed
	}
	report, err := h.reports.Monthly(c.Request.Context(), month.Year(), month.Month())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if strings.EqualFold(c.Query(formatQueryParam), workbookFormatKey) {
		var buffer bytes.Buffer
		if err := reports.WriteMonthlyWorkbook(&buffer, report); err != nil {
			h.logger.Error("failed to render monthly workbook", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "render_failed"})
			return
		}
		filename := fmt.Sprintf("meals-%s.xlsx", month.Format(monthLayout))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, xlsxContentType, buffer.Bytes())
		return
	}
	c.JSON(http.StatusOK, newMonthlyPayload(report))
}

func (h *httpHandler) handleListPeople(c *gin.Context) {
	roster, err := h.people.List(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	payload := make([]personPayload, 0, len(roster))
	for _, person := range roster {
		payload = append(payload, newPersonPayload(person))
	}
	c.JSON(http.StatusOK, gin.H{"people": payload})
}

func (h *httpHandler) handleSetLeaveState(c *gin.Context) {
	identity := people.NormalizeIdentity(c.Param("phone"))
	if identity.IsZero() {
		abortBadRequest(c, "invalid_phone")
		return
	}
	var request leaveStateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid_request")
		return
	}
	state, err := people.ParseLeaveState(request.Status)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	person, err := h.people.SetLeaveState(c.Request.Context(), identity, state)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	h.board.Publish(BoardMessage{EventType: BoardEventRosterChanged, Phone: person.Phone, Timestamp: h.clock().UTC()})
	c.JSON(http.StatusOK, newPersonPayload(person))
}

func (h *httpHandler) handleRemovePerson(c *gin.Context) {
	identity := people.NormalizeIdentity(c.Param("phone"))
	if identity.IsZero() {
		abortBadRequest(c, "invalid_phone")
		return
	}
	if err := h.people.Remove(c.Request.Context(), identity); err != nil {
		h.abortWithError(c, err)
		return
	}
	h.board.Publish(BoardMessage{EventType: BoardEventRosterChanged, Phone: identity.String(), Timestamp: h.clock().UTC()})
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAudit(c *gin.Context) {
	query := meals.AuditQuery{Phone: c.Query("phone")}
	if raw := c.Query("date"); raw != "" {
		date, err := meals.ParseDate(raw, h.meals.Schedule().Location())
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		query.Date = meals.FormatDate(date)
	}
	if raw := c.Query("meal"); raw != "" {
		meal, err := meals.ParseMealType(raw)
		if err != nil {
			h.abortWithError(c, err)
			return
		}
		query.Meal = meal
	}
	rows, err := h.meals.Audit(c.Request.Context(), query)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	payload := make([]actionPayload, 0, len(rows))
	for _, row := range rows {
		payload = append(payload, newActionPayload(row))
	}
	c.JSON(http.StatusOK, gin.H{"actions": payload})
}

func (h *httpHandler) handleImport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	header, err := c.FormFile(importFormField)
	if err != nil {
		abortBadRequest(c, "missing_file")
		return
	}
	file, err := header.Open()
	if err != nil {
		abortBadRequest(c, "unreadable_file")
		return
	}
	defer func() { _ = file.Close() }()

	workbook, err := sheets.ReadWorkbook(file, header.Filename)
	if err != nil {
		h.logger.Info("workbook rejected", zap.String("filename", header.Filename), zap.Error(err))
		abortBadRequest(c, "invalid_workbook")
		return
	}
	summary, err := h.importer.Import(c.Request.Context(), workbook)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	h.board.Publish(BoardMessage{EventType: BoardEventRosterChanged, Timestamp: h.clock().UTC()})
	c.JSON(http.StatusOK, summary)
}

func (h *httpHandler) handleExport(c *gin.Context) {
	roster, err := h.people.List(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	actions, err := h.meals.Audit(c.Request.Context(), meals.AuditQuery{})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	var buffer bytes.Buffer
	if err := sheets.WriteWorkbook(&buffer, roster, actions); err != nil {
		h.logger.Error("failed to render export workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render_failed"})
		return
	}
	filename := fmt.Sprintf("meals-export-%s.xlsx", meals.FormatDate(h.meals.Schedule().Today(h.clock())))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buffer.Bytes())
}
