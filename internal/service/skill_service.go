package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-skill/internal/models"
)

// Intent names served by the skill.
const (
	IntentTodayTimetable    = "GetTodayTimetableIntent"
	IntentTomorrowTimetable = "GetTomorrowTimetableIntent"
	IntentDayTimetable      = "GetDayTimetableIntent"
	IntentSpecificPeriod    = "GetSpecificPeriodIntent"
	IntentTodayPeriod       = "GetTodayPeriodIntent"
	IntentTomorrowPeriod    = "GetTomorrowPeriodIntent"
	IntentTimetable         = "GetTimetableIntent"
	IntentRegistrationLink  = "GetRegistrationLinkIntent"
	IntentHelp              = "AMAZON.HelpIntent"
	IntentStop              = "AMAZON.StopIntent"
	IntentCancel            = "AMAZON.CancelIntent"
)

// Slot names read from intents.
const (
	SlotWhen   = "when"
	SlotDay    = "day"
	SlotPeriod = "period"
)

// Outcomes recorded per voice request.
const (
	OutcomeAnswered = "answered"
	OutcomeUnknown  = "unknown_intent"
	OutcomeError    = "error"
)

const (
	speechWelcome  = "Welcome to your class timetable. Ask me for today's schedule, or for a period on a given day."
	speechHelp     = "You can say: what is today's schedule, what is tomorrow's schedule, or what is period 3 on Tuesday. To edit your timetable, ask for the registration link."
	speechGoodbye  = "Goodbye."
	speechApology  = "Sorry, I couldn't answer that. Please try again."
	speechLink     = "Your timetable ID is %s. I've sent a link for editing your timetable to your app."
	cardTitleLink  = "Edit your timetable"
	cardTitleHelp  = "Timetable help"
	metricsUnknown = "unknown"
)

type timetableAnswerer interface {
	GetUID(ctx context.Context, externalID string) (string, error)
	Answer(ctx context.Context, uid string, query AnswerQuery) (*AnswerResult, error)
}

type linkIssuer interface {
	Enabled() bool
	Issue(uid string) (string, time.Time, error)
}

// timetableRoute fixes the defaults of one timetable intent.
type timetableRoute struct {
	when   string
	period bool
}

var timetableRoutes = map[string]timetableRoute{
	IntentTodayTimetable:    {when: "today"},
	IntentTomorrowTimetable: {when: "tomorrow"},
	IntentDayTimetable:      {},
	IntentSpecificPeriod:    {period: true},
	IntentTodayPeriod:       {when: "today", period: true},
	IntentTomorrowPeriod:    {when: "tomorrow", period: true},
	IntentTimetable:         {period: true},
}

type intentHandler func(ctx context.Context, q models.SkillQuery) (models.SkillAnswer, error)

// SkillService dispatches voice requests to timetable answers.
type SkillService struct {
	timetables timetableAnswerer
	links      linkIssuer
	baseURL    string
	metrics    *MetricsService
	logger     *zap.Logger
	intents    map[string]intentHandler
}

// NewSkillService constructs the dispatcher. baseURL is the public origin the
// registration form is served from.
func NewSkillService(timetables timetableAnswerer, links linkIssuer, baseURL string, metrics *MetricsService, logger *zap.Logger) *SkillService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SkillService{
		timetables: timetables,
		links:      links,
		baseURL:    strings.TrimRight(baseURL, "/"),
		metrics:    metrics,
		logger:     logger,
	}
	svc.intents = map[string]intentHandler{
		IntentRegistrationLink: svc.registrationLink,
		IntentHelp:             svc.help,
		IntentStop:             svc.goodbye,
		IntentCancel:           svc.goodbye,
	}
	for name, route := range timetableRoutes {
		svc.intents[name] = svc.timetable(route)
	}
	return svc
}

// Handle answers one voice request. It never fails: unknown intents and
// internal errors produce the apology.
func (s *SkillService) Handle(ctx context.Context, q models.SkillQuery) (answer models.SkillAnswer) {
	label := q.RequestType
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("skill request panicked", zap.Any("panic", r), zap.String("intent", q.IntentName))
			answer = apology(OutcomeError)
		}
		s.metrics.RecordIntent(label, answer.Outcome)
	}()

	switch q.RequestType {
	case models.RequestTypeLaunch:
		return models.SkillAnswer{Speech: speechWelcome, KeepSessionOpen: true, Outcome: OutcomeAnswered}
	case models.RequestTypeSessionEnded:
		return models.SkillAnswer{Outcome: OutcomeAnswered}
	case models.RequestTypeIntent:
	default:
		label = metricsUnknown
		s.logger.Warn("unsupported request type", zap.String("type", q.RequestType))
		return apology(OutcomeUnknown)
	}

	handler, ok := s.intents[q.IntentName]
	if !ok {
		label = metricsUnknown
		s.logger.Warn("unknown intent", zap.String("intent", q.IntentName))
		return apology(OutcomeUnknown)
	}
	label = q.IntentName

	answer, err := handler(ctx, q)
	if err != nil {
		s.logger.Error("failed to answer intent", zap.String("intent", q.IntentName), zap.Error(err))
		return apology(OutcomeError)
	}
	answer.Outcome = OutcomeAnswered
	return answer
}

func (s *SkillService) timetable(route timetableRoute) intentHandler {
	return func(ctx context.Context, q models.SkillQuery) (models.SkillAnswer, error) {
		query := AnswerQuery{When: q.Slot(SlotWhen), Day: q.Slot(SlotDay)}
		if query.When == "" {
			query.When = route.when
		}
		if route.period {
			query.Period = q.Slot(SlotPeriod)
		}

		uid, err := s.timetables.GetUID(ctx, q.UserID)
		if err != nil {
			return models.SkillAnswer{}, err
		}
		result, err := s.timetables.Answer(ctx, uid, query)
		if err != nil {
			return models.SkillAnswer{}, err
		}
		return models.SkillAnswer{Speech: result.Speech}, nil
	}
}

func (s *SkillService) registrationLink(ctx context.Context, q models.SkillQuery) (models.SkillAnswer, error) {
	uid, err := s.timetables.GetUID(ctx, q.UserID)
	if err != nil {
		return models.SkillAnswer{}, err
	}
	link, err := s.FormLink(uid)
	if err != nil {
		return models.SkillAnswer{}, err
	}
	return models.SkillAnswer{
		Speech:      fmt.Sprintf(speechLink, spellDigits(uid)),
		CardTitle:   cardTitleLink,
		CardContent: fmt.Sprintf("Timetable ID: %s\n%s", uid, link),
	}, nil
}

func (s *SkillService) help(context.Context, models.SkillQuery) (models.SkillAnswer, error) {
	return models.SkillAnswer{Speech: speechHelp, CardTitle: cardTitleHelp, CardContent: speechHelp, KeepSessionOpen: true}, nil
}

func (s *SkillService) goodbye(context.Context, models.SkillQuery) (models.SkillAnswer, error) {
	return models.SkillAnswer{Speech: speechGoodbye}, nil
}

// FormLink builds the registration form URL for uid, signed when link signing is enabled.
func (s *SkillService) FormLink(uid string) (string, error) {
	link := s.baseURL + "/timetable/" + url.PathEscape(uid)
	if s.links == nil || !s.links.Enabled() {
		return link, nil
	}
	token, _, err := s.links.Issue(uid)
	if err != nil {
		return "", err
	}
	return link + "?token=" + url.QueryEscape(token), nil
}

func apology(outcome string) models.SkillAnswer {
	return models.SkillAnswer{Speech: speechApology, Outcome: outcome}
}

// spellDigits separates digits so speech synthesis reads them one by one.
func spellDigits(uid string) string {
	return strings.Join(strings.Split(uid, ""), " ")
}
