package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-skill/internal/dto"
	"github.com/noah-isme/timetable-skill/internal/models"
	"github.com/noah-isme/timetable-skill/internal/service"
	"github.com/noah-isme/timetable-skill/internal/web"
)

type timetableServiceMock struct {
	schedule  models.Schedule
	getErr    error
	applyErr  error
	replace   *dto.ReplaceTimetableRequest
	cells     map[string]string
	answer    *service.AnswerResult
	lastQuery service.AnswerQuery
	file      *service.ExportFile
	exportErr error
}

func (m *timetableServiceMock) Days() []models.Weekday { return models.Weekdays[:2] }

func (m *timetableServiceMock) MaxPeriod() int { return 2 }

func (m *timetableServiceMock) GetSchedule(ctx context.Context, uid string) (models.Schedule, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.schedule == nil {
		return models.Schedule{}, nil
	}
	return m.schedule, nil
}

func (m *timetableServiceMock) ApplyCells(ctx context.Context, uid string, cells map[string]string) (models.Schedule, error) {
	m.cells = cells
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	updated := m.schedule.Clone()
	for _, wd := range m.Days() {
		for period := 1; period <= m.MaxPeriod(); period++ {
			if value, ok := cells[service.CellName(wd.Key, period)]; ok {
				updated.Set(wd.Key, period, value)
			}
		}
	}
	m.schedule = updated
	return updated, nil
}

func (m *timetableServiceMock) Replace(ctx context.Context, uid string, req dto.ReplaceTimetableRequest) (models.Schedule, error) {
	m.replace = &req
	schedule := models.Schedule{}
	for day, periods := range req.Schedule {
		for period, subject := range periods {
			schedule.Set(day, period, subject)
		}
	}
	return schedule, nil
}

func (m *timetableServiceMock) Answer(ctx context.Context, uid string, query service.AnswerQuery) (*service.AnswerResult, error) {
	m.lastQuery = query
	return m.answer, nil
}

func (m *timetableServiceMock) Export(ctx context.Context, uid, format string) (*service.ExportFile, error) {
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	return m.file, nil
}

func newTestContext(t *testing.T, method, target string, body io.Reader) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	engine.SetHTMLTemplate(web.Templates())
	req := httptest.NewRequest(method, target, body)
	c.Request = req
	return c, w
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
