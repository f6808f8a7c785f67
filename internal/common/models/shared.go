package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntityKind is the closed set of record types that custom fields, tags and
// rollups can point at.
type EntityKind string

const (
	EntityContact  EntityKind = "contact"
	EntityCompany  EntityKind = "company"
	EntityDeal     EntityKind = "deal"
	EntityActivity EntityKind = "activity"
)

var EntityKinds = []EntityKind{EntityContact, EntityCompany, EntityDeal, EntityActivity}

func (k EntityKind) Valid() bool {
	switch k {
	case EntityContact, EntityCompany, EntityDeal, EntityActivity:
		return true
	}
	return false
}

// ParseEntityKind accepts both the singular kind and the plural collection
// name used in URLs ("contacts").
func ParseEntityKind(s string) (EntityKind, error) {
	switch s {
	case "contact", "contacts":
		return EntityContact, nil
	case "company", "companies":
		return EntityCompany, nil
	case "deal", "deals":
		return EntityDeal, nil
	case "activity", "activities":
		return EntityActivity, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// EntityRef is a typed reference to one record of a given kind
type EntityRef struct {
	Kind EntityKind         `bson:"kind" json:"kind"`
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

func (r EntityRef) String() string {
	return string(r.Kind) + ":" + r.ID.Hex()
}

// DependentCleaner removes rows that hang off records of a kind which are
// being deleted (custom field values, tag assignments, rollup rows).
type DependentCleaner interface {
	DeleteForTargets(ctx context.Context, kind EntityKind, ids []primitive.ObjectID) error
}

// Cleaners fans a target deletion out to every dependent store. The first
// error stops the chain.
type Cleaners []DependentCleaner

func (cs Cleaners) DeleteForTargets(ctx context.Context, kind EntityKind, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	for _, c := range cs {
		if err := c.DeleteForTargets(ctx, kind, ids); err != nil {
			return err
		}
	}
	return nil
}

type AuditAction string

const (
	AuditActionCreate  AuditAction = "CREATE"
	AuditActionUpdate  AuditAction = "UPDATE"
	AuditActionDelete  AuditAction = "DELETE"
	AuditActionCapture AuditAction = "CAPTURE"
	AuditActionExport  AuditAction = "EXPORT"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`       // collection name, e.g. "deals"
	RecordID  string             `bson:"record_id" json:"record_id"` // hex id of the affected record
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// ChangeEvent is pushed to realtime subscribers after a successful write
type ChangeEvent struct {
	Event string `json:"event"` // created, updated, deleted, captured
	Kind  string `json:"kind"`
	ID    string `json:"id,omitempty"`
}

// Publisher is implemented by the realtime hub
type Publisher interface {
	Publish(evt ChangeEvent)
}

type Log struct {
	AppID      string    `bson:"app_id" json:"app_id"`
	Level      string    `bson:"level" json:"level"`
	LogLevelId int       `bson:"log_level_id" json:"log_level_id"`
	Message    string    `bson:"message" json:"message"`
	Caller     string    `bson:"caller,omitempty" json:"caller,omitempty"`
	RequestID  string    `bson:"request_id,omitempty" json:"request_id,omitempty"`
	UserID     string    `bson:"user_id,omitempty" json:"user_id,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
