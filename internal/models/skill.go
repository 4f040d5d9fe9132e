package models

// Voice request types handled by the skill.
const (
	RequestTypeLaunch       = "LaunchRequest"
	RequestTypeIntent       = "IntentRequest"
	RequestTypeSessionEnded = "SessionEndedRequest"
)

// SkillQuery is the platform-neutral view of an inbound voice request.
type SkillQuery struct {
	RequestType string
	IntentName  string
	Slots       map[string]string
	UserID      string
	Locale      string
}

// Slot returns the raw value of a slot, empty when missing.
func (q SkillQuery) Slot(name string) string {
	if q.Slots == nil {
		return ""
	}
	return q.Slots[name]
}

// SkillAnswer is what the skill says back.
type SkillAnswer struct {
	Speech          string
	CardTitle       string
	CardContent     string
	KeepSessionOpen bool
	Outcome         string
}
