package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-skill/internal/dto"
	"github.com/noah-isme/timetable-skill/internal/models"
	"github.com/noah-isme/timetable-skill/internal/service"
	appErrors "github.com/noah-isme/timetable-skill/pkg/errors"
	"github.com/noah-isme/timetable-skill/pkg/response"
)

type timetableService interface {
	Days() []models.Weekday
	MaxPeriod() int
	GetSchedule(ctx context.Context, uid string) (models.Schedule, error)
	Replace(ctx context.Context, uid string, req dto.ReplaceTimetableRequest) (models.Schedule, error)
	Answer(ctx context.Context, uid string, query service.AnswerQuery) (*service.AnswerResult, error)
	Export(ctx context.Context, uid, format string) (*service.ExportFile, error)
}

// TimetableHandler exposes the timetable JSON API.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler builds a new handler.
func NewTimetableHandler(service timetableService) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// Get godoc
// @Summary Get a timetable
// @Tags Timetable
// @Produce json
// @Param uid path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{uid} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	uid := c.Param("uid")
	schedule, err := h.service.GetSchedule(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.toResponse(uid, schedule))
}

// Replace godoc
// @Summary Replace a timetable
// @Tags Timetable
// @Accept json
// @Produce json
// @Param uid path string true "Timetable ID"
// @Param payload body dto.ReplaceTimetableRequest true "Whole timetable"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetables/{uid} [put]
func (h *TimetableHandler) Replace(c *gin.Context) {
	var req dto.ReplaceTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	uid := c.Param("uid")
	schedule, err := h.service.Replace(c.Request.Context(), uid, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.toResponse(uid, schedule))
}

// Answer godoc
// @Summary Preview the spoken answer for a query
// @Tags Timetable
// @Produce json
// @Param uid path string true "Timetable ID"
// @Param when query string false "Relative day: today, tomorrow, day after tomorrow"
// @Param day query string false "Weekday name"
// @Param period query string false "Period, e.g. 3 or 3rd period"
// @Success 200 {object} response.Envelope
// @Router /timetables/{uid}/answer [get]
func (h *TimetableHandler) Answer(c *gin.Context) {
	uid := c.Param("uid")
	result, err := h.service.Answer(c.Request.Context(), uid, service.AnswerQuery{
		When:   c.Query("when"),
		Day:    c.Query("day"),
		Period: c.Query("period"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := dto.AnswerResponse{UID: uid, Day: result.Resolution.DayLabel, Speech: result.Speech}
	if result.Resolution.HasPeriod {
		period := result.Resolution.Period
		resp.Period = &period
	}
	response.JSON(c, http.StatusOK, resp)
}

// Export godoc
// @Summary Download a timetable
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param uid path string true "Timetable ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetables/{uid}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Param("uid"), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

func (h *TimetableHandler) toResponse(uid string, schedule models.Schedule) dto.TimetableResponse {
	days := h.service.Days()
	keys := make([]string, 0, len(days))
	for _, wd := range days {
		keys = append(keys, wd.Key)
	}
	return dto.TimetableResponse{UID: uid, Days: keys, MaxPeriod: h.service.MaxPeriod(), Schedule: schedule}
}
