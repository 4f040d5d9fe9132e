package dto

import "github.com/noah-isme/timetable-skill/internal/models"

const (
	skillEnvelopeVersion = "1.0"
	resolutionMatched    = "ER_SUCCESS_MATCH"
)

// SkillRequest is the voice platform request envelope. Only the fields the
// skill reads are modelled.
type SkillRequest struct {
	Version string             `json:"version"`
	Session *SkillSession      `json:"session,omitempty"`
	Context *SkillContext      `json:"context,omitempty"`
	Request SkillRequestDetail `json:"request" binding:"required"`
}

// SkillSession identifies the conversation.
type SkillSession struct {
	SessionID   string           `json:"sessionId"`
	New         bool             `json:"new"`
	Application SkillApplication `json:"application"`
	User        SkillUser        `json:"user"`
}

// SkillContext carries device and system state.
type SkillContext struct {
	System struct {
		Application SkillApplication `json:"application"`
		User        SkillUser        `json:"user"`
	} `json:"System"`
}

// SkillApplication names the skill the request targets.
type SkillApplication struct {
	ApplicationID string `json:"applicationId"`
}

// SkillUser identifies the platform account.
type SkillUser struct {
	UserID string `json:"userId"`
}

// SkillRequestDetail describes what the user asked.
type SkillRequestDetail struct {
	Type      string       `json:"type" binding:"required"`
	RequestID string       `json:"requestId"`
	Timestamp string       `json:"timestamp"`
	Locale    string       `json:"locale"`
	Reason    string       `json:"reason,omitempty"`
	Intent    *SkillIntent `json:"intent,omitempty"`
}

// SkillIntent is a matched intent with its slots.
type SkillIntent struct {
	Name  string               `json:"name"`
	Slots map[string]SkillSlot `json:"slots,omitempty"`
}

// SkillSlot is one slot value plus optional entity resolutions.
type SkillSlot struct {
	Name        string           `json:"name"`
	Value       string           `json:"value"`
	Resolutions *SlotResolutions `json:"resolutions,omitempty"`
}

// SlotResolutions lists entity resolution results per authority.
type SlotResolutions struct {
	PerAuthority []struct {
		Authority string `json:"authority"`
		Status    struct {
			Code string `json:"code"`
		} `json:"status"`
		Values []struct {
			Value struct {
				Name string `json:"name"`
				ID   string `json:"id"`
			} `json:"value"`
		} `json:"values"`
	} `json:"resolutionsPerAuthority"`
}

// Resolved returns the canonical slot value when entity resolution matched,
// otherwise the raw spoken value.
func (s SkillSlot) Resolved() string {
	if s.Resolutions != nil {
		for _, authority := range s.Resolutions.PerAuthority {
			if authority.Status.Code == resolutionMatched && len(authority.Values) > 0 && authority.Values[0].Value.Name != "" {
				return authority.Values[0].Value.Name
			}
		}
	}
	return s.Value
}

// UserID prefers the system context over the session.
func (r SkillRequest) UserID() string {
	if r.Context != nil && r.Context.System.User.UserID != "" {
		return r.Context.System.User.UserID
	}
	if r.Session != nil {
		return r.Session.User.UserID
	}
	return ""
}

// ApplicationID returns the skill id the request was sent for.
func (r SkillRequest) ApplicationID() string {
	if r.Context != nil && r.Context.System.Application.ApplicationID != "" {
		return r.Context.System.Application.ApplicationID
	}
	if r.Session != nil {
		return r.Session.Application.ApplicationID
	}
	return ""
}

// Query converts the envelope into the platform-neutral query.
func (r SkillRequest) Query() models.SkillQuery {
	q := models.SkillQuery{
		RequestType: r.Request.Type,
		UserID:      r.UserID(),
		Locale:      r.Request.Locale,
	}
	if r.Request.Intent != nil {
		q.IntentName = r.Request.Intent.Name
		q.Slots = make(map[string]string, len(r.Request.Intent.Slots))
		for name, slot := range r.Request.Intent.Slots {
			if value := slot.Resolved(); value != "" {
				q.Slots[name] = value
			}
		}
	}
	return q
}

// SkillResponse is the voice platform response envelope.
type SkillResponse struct {
	Version  string              `json:"version"`
	Response SkillResponseDetail `json:"response"`
}

// SkillResponseDetail holds what the device says and shows.
type SkillResponseDetail struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech,omitempty"`
	Card             *SkillCard    `json:"card,omitempty"`
	ShouldEndSession *bool         `json:"shouldEndSession,omitempty"`
}

// OutputSpeech is plain spoken text.
type OutputSpeech struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SkillCard is a simple companion app card.
type SkillCard struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NewSkillResponse renders an answer into the response envelope. An answer
// without speech (session end) produces an empty response body.
func NewSkillResponse(answer models.SkillAnswer) SkillResponse {
	resp := SkillResponse{Version: skillEnvelopeVersion}
	if answer.Speech == "" {
		return resp
	}
	resp.Response.OutputSpeech = &OutputSpeech{Type: "PlainText", Text: answer.Speech}
	if answer.CardTitle != "" {
		resp.Response.Card = &SkillCard{Type: "Simple", Title: answer.CardTitle, Content: answer.CardContent}
	}
	end := !answer.KeepSessionOpen
	resp.Response.ShouldEndSession = &end
	return resp
}
