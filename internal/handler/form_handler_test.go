package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-skill/internal/models"
	"github.com/noah-isme/timetable-skill/internal/web"
	appErrors "github.com/noah-isme/timetable-skill/pkg/errors"
)

type verifierMock struct {
	token string
}

func (v verifierMock) Enabled() bool { return true }

func (v verifierMock) Verify(token, uid string) error {
	if token != v.token {
		return errors.New("bad token")
	}
	return nil
}

func newFormRouter(svc *timetableServiceMock, verifier *verifierMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	var h *FormHandler
	if verifier != nil {
		h = NewFormHandler(svc, *verifier)
	} else {
		h = NewFormHandler(svc, nil)
	}
	r := gin.New()
	r.SetHTMLTemplate(web.Templates())
	r.GET("/timetable/:uid", h.Show)
	r.POST("/timetable/:uid", h.Save)
	return r
}

func postForm(target string, values url.Values) *http.Request {
	req, _ := http.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestFormHandlerShow(t *testing.T) {
	svc := &timetableServiceMock{schedule: models.Schedule{"Tue": {1: "Math"}}}
	w := serve(newFormRouter(svc, nil), getRequest("/timetable/123456"))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `name="Tue_1" value="Math"`)
	assert.Contains(t, body, `name="Mon_2" value=""`)
	assert.Contains(t, body, "<th>Monday</th>")
}

func TestFormHandlerMalformedUID(t *testing.T) {
	r := newFormRouter(&timetableServiceMock{}, nil)
	for _, target := range []string{"/timetable/abc", "/timetable/12"} {
		assert.Equal(t, http.StatusNotFound, serve(r, getRequest(target)).Code, target)
	}
}

func TestFormHandlerSave(t *testing.T) {
	svc := &timetableServiceMock{schedule: models.Schedule{"Tue": {1: "Math", 2: "Art"}}}
	r := newFormRouter(svc, nil)

	w := serve(r, postForm("/timetable/123456", url.Values{"Tue_1": {""}, "Mon_1": {"Logic"}}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Timetable saved.")
	assert.Contains(t, w.Body.String(), `name="Mon_1" value="Logic"`)
	assert.Equal(t, map[string]string{"Tue_1": "", "Mon_1": "Logic"}, svc.cells)
	assert.Equal(t, models.Schedule{"Tue": {2: "Art"}, "Mon": {1: "Logic"}}, svc.schedule)
}

func TestFormHandlerSaveErrors(t *testing.T) {
	svc := &timetableServiceMock{applyErr: appErrors.Clone(appErrors.ErrValidation, "Monday period 1: subject is too long")}
	w := serve(newFormRouter(svc, nil), postForm("/timetable/123456", url.Values{"Mon_1": {"x"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "subject is too long")

	svc = &timetableServiceMock{applyErr: appErrors.Wrap(errors.New("disk full"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")}
	w = serve(newFormRouter(svc, nil), postForm("/timetable/123456", url.Values{"Mon_1": {"x"}}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")

	svc = &timetableServiceMock{getErr: appErrors.Clone(appErrors.ErrMalformedRecord, "")}
	w = serve(newFormRouter(svc, nil), getRequest("/timetable/123456"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFormHandlerRequiresToken(t *testing.T) {
	r := newFormRouter(&timetableServiceMock{}, &verifierMock{token: "good"})

	assert.Equal(t, http.StatusForbidden, serve(r, getRequest("/timetable/123456")).Code)
	w := serve(r, getRequest("/timetable/123456?token=good"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/timetable/123456?token=good"`)
	assert.Equal(t, http.StatusOK, serve(r, postForm("/timetable/123456?token=good", url.Values{"Mon_1": {"Art"}})).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, postForm("/timetable/123456", url.Values{"Mon_1": {"Art"}})).Code)
}

func getRequest(target string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, target, nil)
	return req
}
