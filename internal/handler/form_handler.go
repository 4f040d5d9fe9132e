package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-skill/internal/middleware"
	"github.com/noah-isme/timetable-skill/internal/models"
	"github.com/noah-isme/timetable-skill/internal/service"
	"github.com/noah-isme/timetable-skill/internal/web"
	appErrors "github.com/noah-isme/timetable-skill/pkg/errors"
)

const messageSaved = "Timetable saved."

type formService interface {
	Days() []models.Weekday
	MaxPeriod() int
	GetSchedule(ctx context.Context, uid string) (models.Schedule, error)
	ApplyCells(ctx context.Context, uid string, cells map[string]string) (models.Schedule, error)
}

type formView struct {
	UID     string
	Action  string
	Days    []models.Weekday
	Rows    []formRow
	Message string
	Error   string
}

type formRow struct {
	Period int
	Cells  []formCell
}

type formCell struct {
	Name  string
	Label string
	Value string
}

type statusView struct {
	Title   string
	Message string
}

// FormHandler serves the HTML registration form.
type FormHandler struct {
	service  formService
	verifier middleware.TokenVerifier
}

// NewFormHandler builds the handler. A nil verifier leaves the form unguarded.
func NewFormHandler(service formService, verifier middleware.TokenVerifier) *FormHandler {
	return &FormHandler{service: service, verifier: verifier}
}

// Show renders the timetable grid.
func (h *FormHandler) Show(c *gin.Context) {
	uid, ok := h.authorize(c)
	if !ok {
		return
	}
	schedule, err := h.service.GetSchedule(c.Request.Context(), uid)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, web.TimetableTemplate, h.view(c, uid, schedule))
}

// Save applies submitted cells and re-renders the grid.
func (h *FormHandler) Save(c *gin.Context) {
	uid, ok := h.authorize(c)
	if !ok {
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		h.renderStatus(c, http.StatusBadRequest, "Bad request", "The form could not be read.")
		return
	}
	cells := make(map[string]string, len(c.Request.PostForm))
	for name, values := range c.Request.PostForm {
		if len(values) > 0 {
			cells[name] = values[0]
		}
	}

	schedule, err := h.service.ApplyCells(c.Request.Context(), uid, cells)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Status == http.StatusBadRequest {
			current, getErr := h.service.GetSchedule(c.Request.Context(), uid)
			if getErr != nil {
				h.renderError(c, getErr)
				return
			}
			view := h.view(c, uid, current)
			view.Error = appErr.Message
			c.HTML(http.StatusBadRequest, web.TimetableTemplate, view)
			return
		}
		h.renderError(c, err)
		return
	}

	view := h.view(c, uid, schedule)
	view.Message = messageSaved
	c.HTML(http.StatusOK, web.TimetableTemplate, view)
}

func (h *FormHandler) authorize(c *gin.Context) (string, bool) {
	uid := c.Param("uid")
	if !service.ValidUID(uid) {
		h.renderStatus(c, http.StatusNotFound, "Not found", "No timetable exists at this address.")
		return "", false
	}
	if h.verifier != nil && h.verifier.Enabled() {
		if err := h.verifier.Verify(middleware.TokenFromRequest(c), uid); err != nil {
			_ = c.Error(err)
			h.renderStatus(c, http.StatusForbidden, "Link expired", "This link is invalid or has expired. Ask the skill for a new registration link.")
			return "", false
		}
	}
	return uid, true
}

func (h *FormHandler) view(c *gin.Context, uid string, schedule models.Schedule) formView {
	action := "/timetable/" + url.PathEscape(uid)
	if token := middleware.TokenFromRequest(c); token != "" {
		action += "?token=" + url.QueryEscape(token)
	}
	days := h.service.Days()
	view := formView{UID: uid, Action: action, Days: days}
	for period := 1; period <= h.service.MaxPeriod(); period++ {
		row := formRow{Period: period}
		for _, wd := range days {
			row.Cells = append(row.Cells, formCell{
				Name:  service.CellName(wd.Key, period),
				Label: wd.Name + " period " + strconv.Itoa(period),
				Value: schedule.Subject(wd.Key, period),
			})
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

func (h *FormHandler) renderError(c *gin.Context, err error) {
	_ = c.Error(err)
	appErr := appErrors.FromError(err)
	if appErr.Status == http.StatusNotFound {
		h.renderStatus(c, http.StatusNotFound, "Not found", "No timetable exists at this address.")
		return
	}
	h.renderStatus(c, http.StatusInternalServerError, "Something went wrong", "Your timetable could not be processed. Please try again later.")
}

func (h *FormHandler) renderStatus(c *gin.Context, status int, title, message string) {
	c.HTML(status, web.StatusTemplate, statusView{Title: title, Message: message})
}
