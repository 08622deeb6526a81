package conversation

import (
	"math"
	"testing"

	"github.com/paintquote-ai/quote-platform/internal/model"
)

func extractorState() *model.ConversationState {
	return &model.ConversationState{
		Context:   make(map[string]string),
		QuoteData: &model.QuoteData{},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestExtractor_WelcomeNames(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jane Doe", "Jane Doe"},
		{"hi, I'm Jane Doe", "Jane Doe"},
		{"Hello! My name is Robert Smith", "Robert Smith"},
		{"this is maria", "maria"},
		{"Jane Doe, jane@example.com", "Jane Doe"},
	}
	e := NewExtractor()
	for _, tt := range tests {
		state := extractorState()
		e.Extract(StepWelcome, tt.input, state)
		if got := state.QuoteData.CustomerName; got != tt.want {
			t.Errorf("Extract(welcome, %q) name = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExtractor_WelcomeContactAndScopeHint(t *testing.T) {
	e := NewExtractor()
	state := extractorState()
	e.Extract(StepWelcome, "I'm Jane Doe, jane@example.com, need the exterior painted", state)

	if state.QuoteData.CustomerContact != "jane@example.com" {
		t.Errorf("contact = %q", state.QuoteData.CustomerContact)
	}
	if state.Context[ctxSuggestedProjectType] != "exterior" {
		t.Errorf("suggested project type = %q", state.Context[ctxSuggestedProjectType])
	}
}

func TestExtractor_ProjectTypes(t *testing.T) {
	tests := []struct {
		input string
		want  model.ProjectType
	}{
		{"interior please", model.ProjectTypeInterior},
		{"just the inside", model.ProjectTypeInterior},
		{"exterior", model.ProjectTypeExterior},
		{"the outside of the house", model.ProjectTypeExterior},
		{"both inside and outside", model.ProjectTypeBoth},
		{"interior and exterior", model.ProjectTypeBoth},
		{"the entire house", model.ProjectTypeBoth},
	}
	e := NewExtractor()
	for _, tt := range tests {
		state := extractorState()
		e.Extract(StepProjectType, tt.input, state)
		if got := state.QuoteData.ProjectType; got != tt.want {
			t.Errorf("Extract(project_type, %q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExtractor_RoomSurfaceSplit(t *testing.T) {
	e := NewExtractor()
	state := extractorState()
	e.Extract(StepRooms, "living room 400 sq ft", state)

	rooms := state.QuoteData.Rooms
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(rooms))
	}
	r := rooms[0]
	if r.Name != "living room" {
		t.Errorf("name = %q", r.Name)
	}
	if !almostEqual(r.WallsSquareFootage, 320) {
		t.Errorf("walls = %v, want 320", r.WallsSquareFootage)
	}
	if !almostEqual(r.CeilingsSquareFootage, 360) {
		t.Errorf("ceilings = %v, want 360", r.CeilingsSquareFootage)
	}
	if !almostEqual(r.TrimSquareFootage, 80) {
		t.Errorf("trim = %v, want 80", r.TrimSquareFootage)
	}
}

func TestExtractor_MultipleRooms(t *testing.T) {
	e := NewExtractor()
	state := extractorState()
	e.Extract(StepRooms, "living room 400 sq ft and the kitchen, about 200 sqft", state)

	rooms := state.QuoteData.Rooms
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d: %+v", len(rooms), rooms)
	}
	if rooms[0].Name != "living room" || rooms[1].Name != "kitchen" {
		t.Errorf("room names = %q, %q", rooms[0].Name, rooms[1].Name)
	}
}

func TestExtractor_BareFootageGetsDefaultName(t *testing.T) {
	e := NewExtractor()
	state := extractorState()
	e.Extract(StepRooms, "about 600 sq ft total", state)

	rooms := state.QuoteData.Rooms
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(rooms))
	}
	if rooms[0].Name != defaultRoomName {
		t.Errorf("name = %q, want %q", rooms[0].Name, defaultRoomName)
	}
	if !almostEqual(rooms[0].WallsSquareFootage, 480) {
		t.Errorf("walls = %v, want 480", rooms[0].WallsSquareFootage)
	}
}

func TestExtractor_NoFootageSynthesizesDefaultRoom(t *testing.T) {
	e := NewExtractor()
	state := extractorState()
	e.Extract(StepRooms, "the whole basement", state)

	rooms := state.QuoteData.Rooms
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(rooms))
	}
	want := makeRoom(defaultRoomName, assumedRoomSqft)
	if rooms[0] != want {
		t.Errorf("room = %+v, want %+v", rooms[0], want)
	}
}

func TestExtractor_PaintQualities(t *testing.T) {
	tests := []struct {
		input string
		want  model.PaintQuality
	}{
		{"premium", model.PaintQualityPremium},
		{"something high-end", model.PaintQualityPremium},
		{"the best you have", model.PaintQualityLuxury},
		{"budget friendly", model.PaintQualityEconomy},
		{"just regular paint", model.PaintQualityStandard},
		{"whatever", model.PaintQualityStandard},
	}
	e := NewExtractor()
	for _, tt := range tests {
		state := extractorState()
		e.Extract(StepPaintQuality, tt.input, state)
		if got := state.QuoteData.PaintQuality; got != tt.want {
			t.Errorf("Extract(paint_quality, %q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExtractor_SpecialRequests(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"please use low-odor paint", "please use low-odor paint"},
		{"none", ""},
		{"Nothing!", ""},
	}
	e := NewExtractor()
	for _, tt := range tests {
		state := extractorState()
		e.Extract(StepSpecialRequests, tt.input, state)
		if got := state.QuoteData.SpecialRequests; got != tt.want {
			t.Errorf("Extract(special_requests, %q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExtractor_ConfirmationSetsContext(t *testing.T) {
	e := NewExtractor()

	state := extractorState()
	e.Extract(StepConfirmation, "yes", state)
	if state.Context[ctxConfirmed] != "true" {
		t.Errorf("confirmed = %q, want true", state.Context[ctxConfirmed])
	}

	state = extractorState()
	e.Extract(StepConfirmation, "no", state)
	if state.Context[ctxConfirmed] != "false" {
		t.Errorf("confirmed = %q, want false", state.Context[ctxConfirmed])
	}
}

func TestValidators(t *testing.T) {
	t.Run("name", func(t *testing.T) {
		if !validName("Jane Doe") {
			t.Error("plain name must validate")
		}
		if validName("x") {
			t.Error("single letter must not validate")
		}
		if validName(ConfirmedPrefix + "yes") {
			t.Error("bare affirmation must not validate as a name")
		}
	})

	t.Run("address", func(t *testing.T) {
		if !validAddress("123 Maple Street, Springfield") {
			t.Error("street address must validate")
		}
		if !validAddress("Elm Street Springfield") {
			t.Error("address without a number but multiple words must validate")
		}
		if validAddress("a1") {
			t.Error("too-short input must not validate")
		}
		if validAddress("12345") {
			t.Error("digits alone must not validate")
		}
	})

	t.Run("rooms", func(t *testing.T) {
		if !roomsPlausible("living room 400 sq ft") {
			t.Error("named room with footage must validate")
		}
		if !roomsPlausible("just the kitchen walls") {
			t.Error("room keywords without footage must validate")
		}
		if roomsPlausible("asdf") {
			t.Error("noise must not validate")
		}
	})
}
