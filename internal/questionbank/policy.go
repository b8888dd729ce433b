package questionbank

// Progress is what a termination policy sees after an answer has been accepted.
type Progress struct {
	Answered   int
	TopicIndex int
	TopicCount int
	LastScore  *float64
}

// Covered reports whether the last topic of the plan has been reached.
func (p Progress) Covered() bool {
	return p.TopicIndex >= p.TopicCount-1
}

// TerminationPolicy decides whether the interview should end instead of asking another question.
type TerminationPolicy interface {
	ShouldEnd(p Progress) bool
}

// MaxQuestions ends the interview once Max questions have been answered.
type MaxQuestions struct {
	Max int
}

func (m MaxQuestions) ShouldEnd(p Progress) bool {
	return p.Answered >= m.Max
}

// Coverage ends the interview once every topic has been asked and at least Min answers were given.
type Coverage struct {
	Min int
}

func (c Coverage) ShouldEnd(p Progress) bool {
	return p.Covered() && p.Answered >= c.Min
}

type anyOf []TerminationPolicy

// AnyOf ends the interview as soon as one of the policies does.
func AnyOf(policies ...TerminationPolicy) TerminationPolicy {
	return anyOf(policies)
}

func (a anyOf) ShouldEnd(p Progress) bool {
	for _, policy := range a {
		if policy.ShouldEnd(p) {
			return true
		}
	}
	return false
}

// DefaultPolicy is AnyOf(MaxQuestions(max), Coverage(min)).
func DefaultPolicy(max, min int) TerminationPolicy {
	return AnyOf(MaxQuestions{Max: max}, Coverage{Min: min})
}
