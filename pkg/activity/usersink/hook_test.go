package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-casefile/pkg/activity"
	"github.com/goliatone/go-casefile/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	userID := uuid.New()
	tenantID := uuid.New()
	documentID := uuid.New().String()

	event := activity.BuildPhaseTransitionedEvent(activity.CaseEventInput{
		ActorID:    actorID.String(),
		UserID:     userID.String(),
		TenantID:   tenantID.String(),
		DocumentID: documentID,
		Channel:    "casefile",
		FromPhase:  "discovery",
		ToPhase:    "implementation_spec",
		OccurredAt: now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.UserID != userID {
		t.Fatalf("expected user %s got %s", userID, record.UserID)
	}
	if record.TenantID != tenantID {
		t.Fatalf("expected tenant %s got %s", tenantID, record.TenantID)
	}
	if record.Verb != "casefile.phase.transitioned" || record.ObjectType != "casefile.document" || record.ObjectID != documentID {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "casefile" {
		t.Fatalf("expected channel casefile got %q", record.Channel)
	}
	if record.Data["from_phase"] != "discovery" || record.Data["to_phase"] != "implementation_spec" {
		t.Fatalf("expected phase metadata, got %+v", record.Data)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurredAt %s got %s", now, record.OccurredAt)
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	if err := hook.Notify(context.Background(), activity.Event{Verb: "casefile.saved"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records, got %d", len(sink.records))
	}
}

func TestHookNotifyNilSink(t *testing.T) {
	hook := usersink.Hook{}
	event := activity.BuildDocumentSavedEvent(activity.CaseEventInput{DocumentID: "doc-1"})
	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify with nil sink: %v", err)
	}
}
