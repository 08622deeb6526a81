package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paintquote-ai/quote-platform/internal/model"
	"github.com/paintquote-ai/quote-platform/internal/sanitize"
)

// Room-surface split ratios: the fraction of a room's stated square
// footage attributed to each surface. Kept as configurable constants;
// the ratios come from the estimating team and are pending review.
var (
	wallsRatio    = 0.80
	ceilingsRatio = 0.90
	trimRatio     = 0.20
)

const (
	defaultRoomName = "Main Area"
	assumedRoomSqft = 400.0
)

var (
	nameLeadInPattern = regexp.MustCompile(`(?i)^(hi|hello|hey)[,!. ]*\s*`)
	nameIntroPattern  = regexp.MustCompile(`(?i)^(my name is|my name's|name is|i am|i'm|im|this is|it's|its|call me)\s+`)
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern      = regexp.MustCompile(`\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)

	roomPattern = regexp.MustCompile(`(?i)\b(master bedroom|living room|dining room|family room|laundry room|great room|guest room|bed\s?room|bath\s?room|kitchen|hallway|hall|office|study|den|basement|garage|attic|nursery|closet|foyer|entryway|stairwell|sunroom|porch|deck|main area|whole house|room|area)\b[^0-9]{0,24}?(\d{2,5})(?:\s*(?:sq\.?\s*ft\.?|sqft|square\s+(?:feet|foot)|sf))?`)
	barePattern = regexp.MustCompile(`\b(\d{2,5})\s*(?:sq\.?\s*ft\.?|sqft|square\s+(?:feet|foot)|sf)\b`)

	roomKeywordPattern = regexp.MustCompile(`(?i)\b(room|kitchen|hall|bath|basement|garage|office|den|attic|closet|foyer|porch|deck|house|area|wall|ceiling)\w*\b`)
)

// Extractor turns validated free text into structured quote fields.
// Extraction never gates progress; validators do.
type Extractor struct{}

// NewExtractor creates the default extraction heuristics.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract applies the heuristics for a step to the session's quote and
// context. Ambiguous input degrades to best-effort defaults.
func (e *Extractor) Extract(step StepID, input string, state *model.ConversationState) {
	q := state.QuoteData

	switch step {
	case StepWelcome:
		if name := extractName(input); name != "" {
			q.CustomerName = name
		}
		if contact := extractContact(input); contact != "" {
			q.CustomerContact = contact
		}
		// A welcome like "hi, I need my house exterior painted" already
		// hints the scope; remember it so a later "yes" resolves.
		if pt := matchProjectType(input); pt != "" {
			state.Context[ctxSuggestedProjectType] = string(pt)
		}

	case StepProjectType:
		if pt := matchProjectType(input); pt != "" {
			q.ProjectType = pt
		}

	case StepAddress:
		q.Address = sanitize.Address(input)

	case StepRooms:
		q.Rooms = parseRooms(input)

	case StepPaintQuality:
		if pq := matchPaintQuality(input); pq != "" {
			q.PaintQuality = pq
		} else {
			q.PaintQuality = model.PaintQualityStandard
		}

	case StepSpecialRequests:
		q.SpecialRequests = extractNotes(input)

	case StepConfirmation:
		if isNegation(input) {
			state.Context[ctxConfirmed] = "false"
		} else {
			state.Context[ctxConfirmed] = "true"
		}
	}
}

func extractName(input string) string {
	s := nameLeadInPattern.ReplaceAllString(strings.TrimSpace(input), "")
	s = nameIntroPattern.ReplaceAllString(s, "")
	s = emailPattern.ReplaceAllString(s, "")
	s = phonePattern.ReplaceAllString(s, "")
	name := sanitize.Name(s)
	// Keep names to a handful of words; the rest is usually narration.
	words := strings.Fields(name)
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.Join(words, " ")
}

func extractContact(input string) string {
	if m := emailPattern.FindString(input); m != "" {
		return m
	}
	return phonePattern.FindString(input)
}

func validName(input string) bool {
	if strings.HasPrefix(input, ConfirmedPrefix) {
		return false
	}
	name := extractName(input)
	if len(name) < 2 || len(name) > 80 {
		return false
	}
	for _, r := range name {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			return true
		}
	}
	return false
}

func matchProjectType(input string) model.ProjectType {
	s := strings.ToLower(input)
	hasInterior := strings.Contains(s, "interior") || strings.Contains(s, "inside") || strings.Contains(s, "indoor")
	hasExterior := strings.Contains(s, "exterior") || strings.Contains(s, "outside") || strings.Contains(s, "outdoor") || strings.Contains(s, "siding")

	switch {
	case strings.Contains(s, "both") || strings.Contains(s, "entire") || strings.Contains(s, "everything"):
		return model.ProjectTypeBoth
	case hasInterior && hasExterior:
		return model.ProjectTypeBoth
	case hasExterior:
		return model.ProjectTypeExterior
	case hasInterior:
		return model.ProjectTypeInterior
	default:
		return ""
	}
}

func validAddress(input string) bool {
	if strings.HasPrefix(input, ConfirmedPrefix) {
		return false
	}
	addr := sanitize.Address(input)
	if len(addr) < 5 || len(addr) > 200 {
		return false
	}
	hasLetter := strings.ContainsFunc(addr, func(r rune) bool {
		return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
	})
	hasDigit := strings.ContainsAny(addr, "0123456789")
	return hasLetter && (hasDigit || len(strings.Fields(addr)) >= 2)
}

func roomsPlausible(input string) bool {
	if strings.HasPrefix(input, ConfirmedPrefix) {
		return false
	}
	if roomPattern.MatchString(input) || barePattern.MatchString(input) {
		return true
	}
	return roomKeywordPattern.MatchString(input)
}

// parseRooms pulls named rooms with square footage out of free text.
// When nothing explicit matches it degrades to a single synthetic room
// at an assumed size rather than blocking progress.
func parseRooms(input string) []model.Room {
	var rooms []model.Room
	for _, m := range roomPattern.FindAllStringSubmatch(input, -1) {
		sqft, err := strconv.ParseFloat(m[2], 64)
		if err != nil || sqft <= 0 {
			continue
		}
		rooms = append(rooms, makeRoom(normalizeRoomName(m[1]), sqft))
	}
	if len(rooms) > 0 {
		return rooms
	}

	if m := barePattern.FindStringSubmatch(input); m != nil {
		if sqft, err := strconv.ParseFloat(m[1], 64); err == nil && sqft > 0 {
			return []model.Room{makeRoom(defaultRoomName, sqft)}
		}
	}

	return []model.Room{defaultRoom()}
}

func makeRoom(name string, sqft float64) model.Room {
	return model.Room{
		Name:                  name,
		WallsSquareFootage:    sqft * wallsRatio,
		CeilingsSquareFootage: sqft * ceilingsRatio,
		TrimSquareFootage:     sqft * trimRatio,
	}
}

func defaultRoom() model.Room {
	return makeRoom(defaultRoomName, assumedRoomSqft)
}

func normalizeRoomName(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

func matchPaintQuality(input string) model.PaintQuality {
	s := strings.ToLower(input)
	switch {
	case containsAny(s, "luxury", "designer", "top of the line", "the best", "best"):
		return model.PaintQualityLuxury
	case containsAny(s, "premium", "high end", "high-end", "upgraded"):
		return model.PaintQualityPremium
	case containsAny(s, "economy", "budget", "cheap", "basic", "value"):
		return model.PaintQualityEconomy
	case containsAny(s, "standard", "normal", "regular", "mid", "average", "middle"):
		return model.PaintQualityStandard
	default:
		return ""
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var nonePattern = regexp.MustCompile(`(?i)^(none|nothing|no|nope|n/a|na|nah)[\s.!,]*$`)

func extractNotes(input string) string {
	if nonePattern.MatchString(input) || strings.HasPrefix(input, ConfirmedPrefix) || isAffirmation(input) {
		return ""
	}
	return sanitize.Notes(input)
}
