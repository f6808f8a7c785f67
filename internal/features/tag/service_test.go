package tag

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockTagRepo struct {
	items map[primitive.ObjectID]*Tag
}

func (m *mockTagRepo) Create(ctx context.Context, t *Tag) error {
	for _, existing := range m.items {
		if existing.Name == t.Name {
			return apperr.Conflict("tag already exists")
		}
	}
	t.ID = primitive.NewObjectID()
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *mockTagRepo) Get(ctx context.Context, id primitive.ObjectID) (*Tag, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("tag")
	}
	cp := *t
	return &cp, nil
}

func (m *mockTagRepo) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*Tag, error) {
	out := map[primitive.ObjectID]*Tag{}
	for _, id := range ids {
		if t, ok := m.items[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (m *mockTagRepo) FindByName(ctx context.Context, name string) (*Tag, error) {
	return nil, apperr.NotFound("tag")
}

func (m *mockTagRepo) Update(ctx context.Context, t *Tag) error {
	cp := *t
	m.items[t.ID] = &cp
	return nil
}

func (m *mockTagRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(m.items, id)
	return nil
}

func (m *mockTagRepo) List(ctx context.Context, params query.ListParams) (*query.Page[Tag], error) {
	return &query.Page[Tag]{}, nil
}

func (m *mockTagRepo) EnsureIndexes(ctx context.Context) error { return nil }

type mockAssignmentRepo struct {
	items map[primitive.ObjectID]*Assignment
}

func (m *mockAssignmentRepo) Create(ctx context.Context, a *Assignment) error {
	for _, existing := range m.items {
		if existing.TagID == a.TagID && existing.Target == a.Target {
			return apperr.Conflict("tag assignment already exists")
		}
	}
	a.ID = primitive.NewObjectID()
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *mockAssignmentRepo) Get(ctx context.Context, kind common_models.EntityKind, id primitive.ObjectID) (*Assignment, error) {
	a, ok := m.items[id]
	if !ok || a.Target.Kind != kind {
		return nil, apperr.NotFound("tag assignment")
	}
	cp := *a
	return &cp, nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, kind common_models.EntityKind, id primitive.ObjectID) error {
	if a, ok := m.items[id]; !ok || a.Target.Kind != kind {
		return apperr.NotFound("tag assignment")
	}
	delete(m.items, id)
	return nil
}

func (m *mockAssignmentRepo) List(ctx context.Context, kind common_models.EntityKind, params query.ListParams) (*query.Page[Assignment], error) {
	page := &query.Page[Assignment]{Data: []Assignment{}}
	for _, a := range m.items {
		if a.Target.Kind == kind {
			page.Data = append(page.Data, *a)
		}
	}
	page.Total = int64(len(page.Data))
	return page, nil
}

func (m *mockAssignmentRepo) DeleteByTag(ctx context.Context, tagID primitive.ObjectID) error {
	for id, a := range m.items {
		if a.TagID == tagID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *mockAssignmentRepo) DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error {
	for id, a := range m.items {
		for _, target := range ids {
			if a.Target.Kind == kind && a.Target.ID == target {
				delete(m.items, id)
			}
		}
	}
	return nil
}

func (m *mockAssignmentRepo) EnsureIndexes(ctx context.Context) error { return nil }

type knownTargets map[primitive.ObjectID]common_models.EntityKind

func (k knownTargets) Exists(ctx context.Context, ref common_models.EntityRef) (bool, error) {
	kind, ok := k[ref.ID]
	return ok && kind == ref.Kind, nil
}

type nopAudit struct{}

func (nopAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (nopAudit) ListLogs(ctx context.Context, params query.ListParams) (*query.Page[common_models.AuditLog], error) {
	return nil, nil
}

type fixture struct {
	tags        TagService
	assignments AssignmentService
	tagRepo     *mockTagRepo
	assignRepo  *mockAssignmentRepo
	contactID   primitive.ObjectID
}

func newFixture() *fixture {
	tagRepo := &mockTagRepo{items: map[primitive.ObjectID]*Tag{}}
	assignRepo := &mockAssignmentRepo{items: map[primitive.ObjectID]*Assignment{}}
	contactID := primitive.NewObjectID()
	targets := knownTargets{contactID: common_models.EntityContact}
	return &fixture{
		tags:        NewTagService(tagRepo, assignRepo, nopAudit{}, nil),
		assignments: NewAssignmentService(assignRepo, tagRepo, targets, nopAudit{}),
		tagRepo:     tagRepo,
		assignRepo:  assignRepo,
		contactID:   contactID,
	}
}

func TestCreateTagDefaultsAndValidation(t *testing.T) {
	f := newFixture()

	created, err := f.tags.Create(context.Background(), &Tag{Name: " VIP "})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Name != "VIP" || created.Color != DefaultColor {
		t.Errorf("unexpected tag %+v", created)
	}

	_, err = f.tags.Create(context.Background(), &Tag{Name: "Hot", Color: "red"})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Fields["color"] == "" {
		t.Errorf("bad color error = %v", err)
	}

	if _, err := f.tags.Create(context.Background(), &Tag{Name: "VIP"}); !apperr.IsConflict(err) {
		t.Errorf("duplicate name error = %v, want conflict", err)
	}
}

func TestAssignRejectsDuplicate(t *testing.T) {
	f := newFixture()
	vip, _ := f.tags.Create(context.Background(), &Tag{Name: "VIP"})

	in := AssignmentInput{TagID: vip.ID.Hex(), ContactID: f.contactID.Hex()}
	a, err := f.assignments.Assign(context.Background(), common_models.EntityContact, in)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if a.Tag == nil || a.Tag.Name != "VIP" {
		t.Errorf("assignment tag = %+v", a.Tag)
	}

	if _, err := f.assignments.Assign(context.Background(), common_models.EntityContact, in); !apperr.IsConflict(err) {
		t.Errorf("second Assign() error = %v, want conflict", err)
	}
}

func TestAssignValidatesReferences(t *testing.T) {
	f := newFixture()
	vip, _ := f.tags.Create(context.Background(), &Tag{Name: "VIP"})

	tests := []struct {
		name  string
		kind  common_models.EntityKind
		in    AssignmentInput
		field string
	}{
		{"bad tag id", common_models.EntityContact, AssignmentInput{TagID: "x", ContactID: f.contactID.Hex()}, "tag_id"},
		{"unknown tag", common_models.EntityContact, AssignmentInput{TagID: primitive.NewObjectID().Hex(), ContactID: f.contactID.Hex()}, "tag_id"},
		{"missing target", common_models.EntityContact, AssignmentInput{TagID: vip.ID.Hex()}, "contact_id"},
		{"contact id on deal route", common_models.EntityDeal, AssignmentInput{TagID: vip.ID.Hex(), DealID: f.contactID.Hex()}, "deal_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.assignments.Assign(context.Background(), tt.kind, tt.in)
			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := ae.Fields[tt.field]; !ok {
				t.Errorf("missing field error for %s in %v", tt.field, ae.Fields)
			}
		})
	}
}

func TestDeleteTagRemovesAssignments(t *testing.T) {
	f := newFixture()
	vip, _ := f.tags.Create(context.Background(), &Tag{Name: "VIP"})
	f.assignments.Assign(context.Background(), common_models.EntityContact, AssignmentInput{TagID: vip.ID.Hex(), ContactID: f.contactID.Hex()})

	if err := f.tags.Delete(context.Background(), vip.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(f.assignRepo.items) != 0 {
		t.Errorf("%d assignments left", len(f.assignRepo.items))
	}
}

func TestDeleteForTargets(t *testing.T) {
	f := newFixture()
	vip, _ := f.tags.Create(context.Background(), &Tag{Name: "VIP"})
	f.assignments.Assign(context.Background(), common_models.EntityContact, AssignmentInput{TagID: vip.ID.Hex(), ContactID: f.contactID.Hex()})

	if err := f.assignments.DeleteForTargets(context.Background(), common_models.EntityDeal, []primitive.ObjectID{f.contactID}); err != nil {
		t.Fatal(err)
	}
	if len(f.assignRepo.items) != 1 {
		t.Fatal("assignment of another kind was removed")
	}
	f.assignments.DeleteForTargets(context.Background(), common_models.EntityContact, []primitive.ObjectID{f.contactID})
	if len(f.assignRepo.items) != 0 {
		t.Error("assignment not removed")
	}
}

func TestAssignmentJSONNamesTarget(t *testing.T) {
	dealID := primitive.NewObjectID()
	out, err := json.Marshal(Assignment{Target: common_models.EntityRef{Kind: common_models.EntityDeal, ID: dealID}})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	_ = json.Unmarshal(out, &m)
	if m["deal_id"] != dealID.Hex() {
		t.Errorf("deal_id = %v, want %s", m["deal_id"], dealID.Hex())
	}
	if _, ok := m["tag"]; ok {
		t.Error("tag should be omitted when not loaded")
	}
}
