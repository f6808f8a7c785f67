package contact

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salescrm/internal/common/apperr"
	common_models "salescrm/internal/common/models"
	"salescrm/internal/common/query"
	"salescrm/internal/config"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockContactRepo struct {
	items map[primitive.ObjectID]Contact
}

func (m *mockContactRepo) Create(ctx context.Context, c *Contact) error {
	for _, existing := range m.items {
		if existing.Email == c.Email {
			return apperr.Conflict("contact already exists")
		}
	}
	c.ID = primitive.NewObjectID()
	m.items[c.ID] = *c
	return nil
}

func (m *mockContactRepo) Get(ctx context.Context, id primitive.ObjectID) (*Contact, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("contact")
	}
	return &c, nil
}

func (m *mockContactRepo) Update(ctx context.Context, c *Contact) error {
	m.items[c.ID] = *c
	return nil
}

func (m *mockContactRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(m.items, id)
	return nil
}

func (m *mockContactRepo) List(ctx context.Context, params query.ListParams) (*query.Page[Contact], error) {
	data := make([]Contact, 0, len(m.items))
	for _, c := range m.items {
		data = append(data, c)
	}
	return &query.Page[Contact]{Data: data, Total: int64(len(data)), Page: params.Page, Limit: params.Limit}, nil
}

func (m *mockContactRepo) Find(ctx context.Context, filter bson.M, limit int64) ([]Contact, error) {
	return nil, nil
}

func (m *mockContactRepo) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	_, ok := m.items[id]
	return ok, nil
}

func (m *mockContactRepo) FindByEmail(ctx context.Context, email string) (*Contact, error) {
	return nil, apperr.NotFound("contact")
}

func (m *mockContactRepo) ClearCompany(ctx context.Context, companyID primitive.ObjectID) error {
	return nil
}

func (m *mockContactRepo) Count(ctx context.Context, filter bson.M) (int64, error) {
	return int64(len(m.items)), nil
}

func (m *mockContactRepo) CountBy(ctx context.Context, field string, filter bson.M) ([]query.Bucket, error) {
	return []query.Bucket{{Key: "lead", Count: int64(len(m.items))}}, nil
}

func (m *mockContactRepo) CreatedTimes(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	return nil, nil
}

func (m *mockContactRepo) EnsureIndexes(ctx context.Context) error { return nil }

type knownTargets map[primitive.ObjectID]bool

func (k knownTargets) Exists(ctx context.Context, ref common_models.EntityRef) (bool, error) {
	return k[ref.ID], nil
}

type removalLog struct {
	name  string
	calls *[]string
}

func (r removalLog) DeleteByRelated(ctx context.Context, field string, ids []primitive.ObjectID) error {
	*r.calls = append(*r.calls, r.name+":"+field)
	return nil
}

func (r removalLog) DeleteForTargets(ctx context.Context, kind common_models.EntityKind, ids []primitive.ObjectID) error {
	*r.calls = append(*r.calls, r.name+":"+string(kind))
	return nil
}

type nopAudit struct{}

func (nopAudit) LogChange(context.Context, common_models.AuditAction, string, string, map[string]common_models.Change) error {
	return nil
}

func (nopAudit) ListLogs(context.Context, query.ListParams) (*query.Page[common_models.AuditLog], error) {
	return nil, nil
}

func setup(t *testing.T, company primitive.ObjectID) (*fiber.App, *mockContactRepo, *[]string) {
	t.Helper()
	repo := &mockContactRepo{items: map[primitive.ObjectID]Contact{}}
	calls := &[]string{}
	svc := NewContactService(
		repo,
		knownTargets{company: true},
		RelatedRemovers{removalLog{"deals", calls}, removalLog{"activities", calls}},
		common_models.Cleaners{removalLog{"values", calls}},
		nopAudit{},
		nil,
	)

	app := fiber.New()
	NewContactApi(NewContactController(svc), &config.Config{SkipAuth: true}).Setup(app)
	return app, repo, calls
}

func doJSON(t *testing.T, app *fiber.App, method, url, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestCreateContactDefaults(t *testing.T) {
	company := primitive.NewObjectID()
	app, _, _ := setup(t, company)

	status, body := doJSON(t, app, "POST", "/api/contacts",
		`{"first_name":"Ada","last_name":"Lovelace","email":"ADA@Example.com","company_id":"`+company.Hex()+`"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["status"] != StatusLead || body["is_active"] != true {
		t.Errorf("defaults not applied: %v", body)
	}
	if body["email"] != "ada@example.com" || body["full_name"] != "Ada Lovelace" {
		t.Errorf("unexpected body %v", body)
	}
	if body["owner_id"] != "dev-admin-id" {
		t.Errorf("owner_id = %v, want caller id", body["owner_id"])
	}
}

func TestCreateContactValidation(t *testing.T) {
	app, _, _ := setup(t, primitive.NewObjectID())

	status, body := doJSON(t, app, "POST", "/api/contacts",
		`{"first_name":"Ada","email":"nope","status":"vip","company_id":"`+primitive.NewObjectID().Hex()+`"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	fields, _ := body["fields"].(map[string]interface{})
	for _, f := range []string{"last_name", "email", "status", "company_id"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing field error for %s in %v", f, fields)
		}
	}
}

func TestDuplicateEmailConflict(t *testing.T) {
	app, _, _ := setup(t, primitive.NewObjectID())
	body := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}`

	if status, _ := doJSON(t, app, "POST", "/api/contacts", body); status != fiber.StatusCreated {
		t.Fatalf("first create status = %d", status)
	}
	if status, _ := doJSON(t, app, "POST", "/api/contacts", body); status != fiber.StatusConflict {
		t.Errorf("second create status = %d, want 409", status)
	}
}

func TestPatchContact(t *testing.T) {
	app, repo, _ := setup(t, primitive.NewObjectID())
	_, created := doJSON(t, app, "POST", "/api/contacts", `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}`)
	id := created["id"].(string)

	status, body := doJSON(t, app, "PATCH", "/api/contacts/"+id, `{"status":"customer"}`)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	oid, _ := primitive.ObjectIDFromHex(id)
	if got := repo.items[oid]; got.Status != StatusCustomer || got.FirstName != "Ada" {
		t.Errorf("stored contact = %+v", got)
	}

	if status, _ := doJSON(t, app, "PATCH", "/api/contacts/not-an-id", `{}`); status != fiber.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", status)
	}
	if status, _ := doJSON(t, app, "GET", "/api/contacts/"+primitive.NewObjectID().Hex(), ""); status != fiber.StatusNotFound {
		t.Errorf("missing contact status = %d, want 404", status)
	}
}

func TestDeleteContactCascadeOrder(t *testing.T) {
	app, repo, calls := setup(t, primitive.NewObjectID())
	_, created := doJSON(t, app, "POST", "/api/contacts", `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}`)

	req := httptest.NewRequest("DELETE", "/api/contacts/"+created["id"].(string), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(repo.items) != 0 {
		t.Error("contact not deleted")
	}

	want := "deals:contact_id,activities:contact_id,values:contact"
	if got := strings.Join(*calls, ","); got != want {
		t.Errorf("cascade = %s, want %s", got, want)
	}
}
