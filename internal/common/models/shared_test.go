package models

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseEntityKind(t *testing.T) {
	for in, want := range map[string]EntityKind{
		"contact":    EntityContact,
		"companies":  EntityCompany,
		"deals":      EntityDeal,
		"activity":   EntityActivity,
		"activities": EntityActivity,
	} {
		got, err := ParseEntityKind(in)
		if err != nil || got != want {
			t.Errorf("ParseEntityKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseEntityKind("lead"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if EntityKind("lead").Valid() {
		t.Error("lead should not be a valid kind")
	}
}

type recordingCleaner struct {
	calls int
	err   error
}

func (r *recordingCleaner) DeleteForTargets(ctx context.Context, kind EntityKind, ids []primitive.ObjectID) error {
	r.calls++
	return r.err
}

func TestCleanersStopAtFirstError(t *testing.T) {
	first := &recordingCleaner{err: errors.New("boom")}
	second := &recordingCleaner{}
	cs := Cleaners{first, second}

	if err := cs.DeleteForTargets(context.Background(), EntityDeal, []primitive.ObjectID{primitive.NewObjectID()}); err == nil {
		t.Fatal("expected error")
	}
	if second.calls != 0 {
		t.Error("second cleaner should not run after an error")
	}

	if err := cs.DeleteForTargets(context.Background(), EntityDeal, nil); err != nil || first.calls != 1 {
		t.Error("empty id list should be a no-op")
	}
}

type dated struct {
	Due  Date  `json:"due" bson:"due"`
	Done *Date `json:"done,omitempty" bson:"done,omitempty"`
}

func TestDateJSON(t *testing.T) {
	var v dated
	if err := json.Unmarshal([]byte(`{"due":"2024-06-30","done":"2024-07-01T15:04:05Z"}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.Due.String() != "2024-06-30" || v.Done.String() != "2024-07-01" {
		t.Errorf("decoded %s / %s", v.Due, v.Done)
	}

	out, _ := json.Marshal(dated{Due: DateOf(2024, 1, 2)})
	if string(out) != `{"due":"2024-01-02"}` {
		t.Errorf("Marshal = %s", out)
	}

	if err := json.Unmarshal([]byte(`{"due":"30/06/2024"}`), &v); err == nil {
		t.Error("expected error for non ISO date")
	}
}

func TestDateBSON(t *testing.T) {
	raw, err := bson.Marshal(dated{Due: DateOf(2024, 2, 29)})
	if err != nil {
		t.Fatal(err)
	}
	if typ := bson.Raw(raw).Lookup("due").Type; typ != bson.TypeDateTime {
		t.Fatalf("due stored as %v", typ)
	}

	var back dated
	if err := bson.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Due.Equal(DateOf(2024, 2, 29).Time) || back.Done != nil {
		t.Errorf("round trip = %+v", back)
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	if got := DateOf(2024, 3, 11).DaysUntil(now); got != 10 {
		t.Errorf("DaysUntil = %d, want 10", got)
	}
	if got := DateOf(2024, 2, 28).DaysUntil(now); got != -2 {
		t.Errorf("DaysUntil = %d, want -2", got)
	}
}
