package conversation

import (
	"regexp"
	"strings"
)

// Normalizer maps ambiguous operator input to a concrete, step-appropriate
// value. It is a pluggable strategy so phrasings and locales can be
// extended without touching the state machine.
type Normalizer interface {
	Normalize(raw string, step StepID, context map[string]string) string
}

var (
	affirmationPattern = regexp.MustCompile(`(?i)^(yes|yeah|yep|yup|ok|okay|sure|correct|right|sounds good|fine|go ahead|please do|y)[\s.!,]*$`)
	negationPattern    = regexp.MustCompile(`(?i)^(no|nope|nah|not yet|hold on|wait|change|n)[\s.!,]*$`)
)

func isAffirmation(s string) bool {
	return affirmationPattern.MatchString(strings.TrimSpace(s))
}

func isNegation(s string) bool {
	return negationPattern.MatchString(strings.TrimSpace(s))
}

// ConfirmedPrefix marks an affirmation that had no step-specific mapping,
// so validators can still tell it apart from a first-time answer.
const ConfirmedPrefix = "confirmed:"

// AffirmationNormalizer substitutes context-derived defaults for short
// acknowledgements like "yes" or "sure".
type AffirmationNormalizer struct{}

// NewNormalizer returns the default normalization strategy.
func NewNormalizer() Normalizer {
	return AffirmationNormalizer{}
}

// Normalize returns the effective input for the current step. Short
// affirmations become a concrete value where the step has one; other
// input passes through trimmed.
func (AffirmationNormalizer) Normalize(raw string, step StepID, context map[string]string) string {
	trimmed := strings.TrimSpace(raw)
	if !isAffirmation(trimmed) {
		return trimmed
	}

	switch step {
	case StepProjectType:
		if v := context[ctxSuggestedProjectType]; v != "" {
			return v
		}
		return "interior"
	case StepPaintQuality:
		if v := context[ctxSuggestedPaintQuality]; v != "" {
			return v
		}
		return "standard"
	case StepConfirmation, StepSpecialRequests:
		// These steps accept a bare yes; keep it.
		return trimmed
	default:
		return ConfirmedPrefix + trimmed
	}
}
