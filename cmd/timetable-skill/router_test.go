package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-skill/internal/dto"
	"github.com/noah-isme/timetable-skill/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api/v1",
		BaseURL:   "https://timetable.example.test",
		Store:     config.StoreConfig{Driver: config.StoreMemory},
		Timetable: config.TimetableConfig{Days: []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, MaxPeriod: 6, UIDLength: 6},
		FormLink:  config.FormLinkConfig{TTL: time.Hour},
		Metrics:   config.MetricsConfig{Enabled: true},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	deps, err := newDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(deps.Close)
	return newRouter(cfg, deps, zap.NewNop())
}

func skillRequest(intent string, slots map[string]string) *http.Request {
	slotJSON := make([]string, 0, len(slots))
	for name, value := range slots {
		slotJSON = append(slotJSON, fmt.Sprintf(`%q: {"name": %q, "value": %q}`, name, name, value))
	}
	body := fmt.Sprintf(`{
		"version": "1.0",
		"session": {"application": {"applicationId": "skill"}, "user": {"userId": "amzn1.ask.account.alice"}},
		"request": {"type": "IntentRequest", "intent": {"name": %q, "slots": {%s}}}
	}`, intent, strings.Join(slotJSON, ","))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func speak(t *testing.T, r *gin.Engine, req *http.Request) dto.SkillResponse {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.SkillResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

var linkPattern = regexp.MustCompile(`https://timetable\.example\.test(/timetable/(\d{6})\S*)`)

func TestSkillRegistrationRoundTrip(t *testing.T) {
	r := newTestRouter(t, testConfig())

	linkResp := speak(t, r, skillRequest("GetRegistrationLinkIntent", nil))
	require.NotNil(t, linkResp.Response.Card)
	match := linkPattern.FindStringSubmatch(linkResp.Response.Card.Content)
	require.Len(t, match, 3)
	formPath, uid := match[1], match[2]

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, formPath, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="Tue_1"`)

	form := url.Values{"Tue_1": {"Math"}, "Tue_3": {"Logic"}}
	req := httptest.NewRequest(http.MethodPost, formPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Timetable saved.")

	answer := speak(t, r, skillRequest("GetDayTimetableIntent", map[string]string{"day": "Tuesday"}))
	assert.Equal(t, "Tuesday's schedule is: period 1 is Math, period 3 is Logic.", answer.Response.OutputSpeech.Text)

	answer = speak(t, r, skillRequest("GetSpecificPeriodIntent", map[string]string{"day": "Tuesday", "period": "2"}))
	assert.Equal(t, "Tuesday's period 2 is not registered.", answer.Response.OutputSpeech.Text)

	answer = speak(t, r, skillRequest("GetSpecificPeriodIntent", map[string]string{"day": "Tuesday", "period": "9"}))
	assert.Equal(t, "Tuesday's period 9 does not exist.", answer.Response.OutputSpeech.Text)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/timetables/"+uid, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Tue":{"1":"Math","3":"Logic"}`)
}

func TestUnknownIntentApologises(t *testing.T) {
	r := newTestRouter(t, testConfig())
	resp := speak(t, r, skillRequest("OrderPizzaIntent", nil))
	assert.Equal(t, "Sorry, I couldn't answer that. Please try again.", resp.Response.OutputSpeech.Text)
	require.NotNil(t, resp.Response.ShouldEndSession)
	assert.True(t, *resp.Response.ShouldEndSession)
}

func TestSignedLinksGuardForm(t *testing.T) {
	cfg := testConfig()
	cfg.FormLink.Secret = "s3cret"
	r := newTestRouter(t, cfg)

	linkResp := speak(t, r, skillRequest("GetRegistrationLinkIntent", nil))
	match := linkPattern.FindStringSubmatch(linkResp.Response.Card.Content)
	require.Len(t, match, 3)
	formPath, uid := match[1], match[2]
	assert.Contains(t, formPath, "?token=")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/timetable/"+uid, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, formPath, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/timetables/"+uid, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOperationalRoutes(t *testing.T) {
	r := newTestRouter(t, testConfig())
	for path, status := range map[string]int{"/health": http.StatusOK, "/ready": http.StatusOK, "/metrics": http.StatusOK, "/timetable/abc": http.StatusNotFound} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, w.Code, path)
	}
}

func TestUnknownStoreDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "cassandra"
	_, err := newDependencies(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestServeReturnsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	srv := &http.Server{Addr: busy.Addr().String(), Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	err = serve(context.Background(), srv, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	assert.NoError(t, serve(ctx, srv, zap.NewNop()))
}
