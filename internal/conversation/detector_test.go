package conversation

import (
	"testing"

	"github.com/paintquote-ai/quote-platform/internal/model"
)

func TestLoopDetector_TripsOnThirdIdenticalInput(t *testing.T) {
	d := NewLoopDetector()
	meta := &model.SessionMetadata{}

	if d.Observe(meta, "asdf") {
		t.Fatal("first observation must not trip")
	}
	if d.Observe(meta, "asdf") {
		t.Fatal("second observation must not trip")
	}
	if !d.Observe(meta, "asdf") {
		t.Fatal("third identical observation must trip")
	}
	if len(meta.Loop.History) != 0 || meta.Loop.RepeatCount != 0 {
		t.Errorf("sub-state must reset on detection, got %+v", meta.Loop)
	}
}

func TestLoopDetector_DifferingInputResetsCount(t *testing.T) {
	d := NewLoopDetector()
	meta := &model.SessionMetadata{}

	d.Observe(meta, "asdf")
	d.Observe(meta, "asdf")
	if d.Observe(meta, "something else") {
		t.Fatal("differing input must not trip")
	}
	if meta.Loop.RepeatCount != 1 {
		t.Errorf("repeat count must restart at 1, got %d", meta.Loop.RepeatCount)
	}
	// Two more identical inputs make a new run of three.
	d.Observe(meta, "something else")
	if !d.Observe(meta, "something else") {
		t.Error("a fresh run of three identical inputs must trip")
	}
}

func TestLoopDetector_HistoryIsBounded(t *testing.T) {
	d := NewLoopDetector()
	meta := &model.SessionMetadata{}

	inputs := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, in := range inputs {
		d.Observe(meta, in)
	}
	if got := len(meta.Loop.History); got != loopHistoryLimit {
		t.Errorf("history length = %d, want %d", got, loopHistoryLimit)
	}
	if meta.Loop.History[len(meta.Loop.History)-1] != "g" {
		t.Errorf("history must keep the newest entries, got %v", meta.Loop.History)
	}
}

func TestLoopDetector_FreshWindowAfterTrip(t *testing.T) {
	d := NewLoopDetector()
	meta := &model.SessionMetadata{}

	d.Observe(meta, "asdf")
	d.Observe(meta, "asdf")
	d.Observe(meta, "asdf")

	// After the reset the same input needs a full new run.
	if d.Observe(meta, "asdf") {
		t.Fatal("detection must require a full run after reset")
	}
	if d.Observe(meta, "asdf") {
		t.Fatal("second post-reset observation must not trip")
	}
	if !d.Observe(meta, "asdf") {
		t.Error("third post-reset observation must trip again")
	}
}

func TestStuckDetector_RetryThreshold(t *testing.T) {
	d := NewStuckDetector(DefaultSettings())
	state := &model.ConversationState{}

	state.Metadata.RetryCount = StuckDetectionThreshold - 1
	if d.IsStuck(state) {
		t.Error("below threshold must not be stuck")
	}
	state.Metadata.RetryCount = StuckDetectionThreshold
	if !d.IsStuck(state) {
		t.Error("at threshold must be stuck")
	}
}

func TestStuckDetector_ThresholdStaysBelowLogCap(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxMessages = model.MessageLogLimit + 50
	d := NewStuckDetector(settings)

	state := &model.ConversationState{}
	for i := 0; i < model.MessageLogLimit; i++ {
		state.AddMessage(model.RoleUser, "hello")
	}
	if !d.IsStuck(state) {
		t.Error("a full log must still trip stuck detection")
	}
}

func TestStuckDetector_MessageCap(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxMessages = 4
	d := NewStuckDetector(settings)

	state := &model.ConversationState{}
	for i := 0; i < 4; i++ {
		state.AddMessage(model.RoleUser, "hello")
	}
	if d.IsStuck(state) {
		t.Error("at the cap must not be stuck")
	}
	state.AddMessage(model.RoleUser, "hello")
	if !d.IsStuck(state) {
		t.Error("beyond the cap must be stuck")
	}
}
