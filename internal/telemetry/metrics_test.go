package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestNilRecorderMethodsAreNoOps(t *testing.T) {
	var r *Recorder
	ctx := context.Background()

	r.RecordTrialStart(ctx, "bau")
	r.RecordTrialSuccess(ctx, "bau", time.Millisecond)
	r.RecordTrialFailure(ctx, "bau", time.Millisecond)
	r.RecordCommandError(ctx, "bau", "set")
}

func TestNewRecorderRecordsWithoutPanicking(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	r.RecordTrialStart(ctx, "bau")
	r.RecordTrialSuccess(ctx, "bau", 5*time.Millisecond)
	r.RecordTrialFailure(ctx, "bau", 5*time.Millisecond)
	r.RecordCommandError(ctx, "bau", "set")
}

func TestRecorderInitIsIdempotent(t *testing.T) {
	r := NewRecorder()
	r.init()
	r.init()
	if r.trialStarts == nil {
		t.Fatal("expected trialStarts instrument to be initialized")
	}
}
