package audit

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AuditService interface {
	LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error
	ListLogs(ctx context.Context, params query.ListParams) (*query.Page[common_models.AuditLog], error)
}

type AuditServiceImpl struct {
	Repo   AuditRepository
	logger *zap.Logger
}

func NewAuditService(repo AuditRepository, logger *zap.Logger) AuditService {
	return &AuditServiceImpl{
		Repo:   repo,
		logger: logger,
	}
}

// LogChange records an audit entry. Failures are logged and swallowed so an
// audit outage never fails the business write that already happened.
func (s *AuditServiceImpl) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	log := common_models.AuditLog{
		ID:        primitive.NewObjectID(),
		Action:    action,
		Module:    module,
		RecordID:  recordID,
		ActorID:   utils.ActorID(ctx),
		Changes:   changes,
		Timestamp: time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, log); err != nil {
		s.logger.Error("Failed to write audit log",
			zap.String("module", module),
			zap.String("record_id", recordID),
			zap.Error(err))
	}
	return nil
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, params query.ListParams) (*query.Page[common_models.AuditLog], error) {
	return s.Repo.List(ctx, params)
}

// Diff compares two values field by field through their JSON form and
// returns the fields that changed.
func Diff(before, after interface{}) map[string]common_models.Change {
	b := toMap(before)
	a := toMap(after)

	changes := make(map[string]common_models.Change)
	for k, newVal := range a {
		if k == "updated_at" {
			continue
		}
		if oldVal, ok := b[k]; !ok || !reflect.DeepEqual(oldVal, newVal) {
			changes[k] = common_models.Change{Old: b[k], New: newVal}
		}
	}
	for k, oldVal := range b {
		if _, ok := a[k]; !ok {
			changes[k] = common_models.Change{Old: oldVal, New: nil}
		}
	}
	return changes
}

// Snapshot is the change set recorded for creates and deletes
func Snapshot(v interface{}, asNew bool) map[string]common_models.Change {
	changes := make(map[string]common_models.Change)
	for k, val := range toMap(v) {
		if asNew {
			changes[k] = common_models.Change{New: val}
		} else {
			changes[k] = common_models.Change{Old: val}
		}
	}
	return changes
}

func toMap(v interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	raw, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
