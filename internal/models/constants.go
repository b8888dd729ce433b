package models

import "strings"

// Interview rounds as the clients send them.
const (
	RoundHR       = "HR面"
	RoundTech1    = "技术一面"
	RoundTech2    = "技术二面"
	RoundTech3    = "技术三面"
	RoundDirector = "总监面"
	RoundFinal    = "终面"
)

var Rounds = []string{RoundHR, RoundTech1, RoundTech2, RoundTech3, RoundDirector, RoundFinal}

var roundAliases = map[string]string{
	"hr":          RoundHR,
	"technical-1": RoundTech1,
	"technical-2": RoundTech2,
	"technical-3": RoundTech3,
	"director":    RoundDirector,
	"final":       RoundFinal,
}

// NormalizeRound maps a round (canonical or English alias) to its canonical form.
func NormalizeRound(round string) (string, bool) {
	round = strings.TrimSpace(round)
	for _, r := range Rounds {
		if r == round {
			return r, true
		}
	}
	canonical, ok := roundAliases[strings.ToLower(round)]
	return canonical, ok
}

// Interviewer styles
const (
	StyleFriendly     = "friendly"
	StyleProfessional = "professional"
	StyleChallenging  = "challenging"
	StyleMentor       = "mentor"
)

var Styles = []string{StyleFriendly, StyleProfessional, StyleChallenging, StyleMentor}

func IsValidStyle(style string) bool {
	for _, s := range Styles {
		if s == style {
			return true
		}
	}
	return false
}

// Transcript roles
const (
	RoleInterviewer = "interviewer"
	RoleCandidate   = "candidate"
)

// Session states
const (
	StateCreated        = "created"
	StateAwaitingAnswer = "awaiting_answer"
	StateScoring        = "scoring"
	StateFinished       = "finished"
)

// Report dimensions, in report order.
const (
	DimensionTechnicalSkill    = "technical_skill"
	DimensionCommunication     = "communication"
	DimensionLogicThinking     = "logic_thinking"
	DimensionProblemSolving    = "problem_solving"
	DimensionProjectExperience = "project_experience"
)

var Dimensions = []string{
	DimensionTechnicalSkill,
	DimensionCommunication,
	DimensionLogicThinking,
	DimensionProblemSolving,
	DimensionProjectExperience,
}

func IsValidDimension(dim string) bool {
	for _, d := range Dimensions {
		if d == dim {
			return true
		}
	}
	return false
}

// VIP tiers
const (
	TierNone   = "none"
	TierNormal = "normal"
	TierSuper  = "super"
)

// Reservation sources and statuses
const (
	ReservationSourceDaily     = "daily"
	ReservationSourceCredit    = "credit"
	ReservationSourceUnlimited = "unlimited"

	ReservationReserved  = "reserved"
	ReservationCommitted = "committed"
	ReservationReleased  = "released"
)

// Payment types accepted from the payment collaborator.
const (
	PaymentSingle = "single"

	PaymentPending = "pending"
	PaymentApplied = "applied"
)
