package contact

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusLead     = "lead"
	StatusProspect = "prospect"
	StatusCustomer = "customer"
	StatusInactive = "inactive"
)

var (
	Statuses    = []string{StatusLead, StatusProspect, StatusCustomer, StatusInactive}
	Salutations = []string{"", "Mr.", "Mrs.", "Ms.", "Dr.", "Prof."}
)

type Contact struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Salutation    string              `json:"salutation" bson:"salutation"`
	FirstName     string              `json:"first_name" bson:"first_name"`
	LastName      string              `json:"last_name" bson:"last_name"`
	Email         string              `json:"email" bson:"email"`
	Phone         string              `json:"phone" bson:"phone"`
	Mobile        string              `json:"mobile" bson:"mobile"`
	JobTitle      string              `json:"job_title" bson:"job_title"`
	Department    string              `json:"department" bson:"department"`
	CompanyID     *primitive.ObjectID `json:"company_id" bson:"company_id"`
	Address       string              `json:"address" bson:"address"`
	City          string              `json:"city" bson:"city"`
	State         string              `json:"state" bson:"state"`
	Country       string              `json:"country" bson:"country"`
	PostalCode    string              `json:"postal_code" bson:"postal_code"`
	Status        string              `json:"status" bson:"status"`
	Source        string              `json:"source" bson:"source"`
	Notes         string              `json:"notes" bson:"notes"`
	OwnerID       string              `json:"owner_id" bson:"owner_id"`
	IsActive      bool                `json:"is_active" bson:"is_active"`
	LinkedinURL   string              `json:"linkedin_url" bson:"linkedin_url"`
	TwitterHandle string              `json:"twitter_handle" bson:"twitter_handle"`
	CreatedAt     time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" bson:"updated_at"`
}

func New() *Contact {
	return &Contact{Status: StatusLead, IsActive: true}
}

func (c Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}

func (c Contact) FullAddress() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{c.Address, c.City, c.State, c.Country, c.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (c Contact) MarshalJSON() ([]byte, error) {
	type alias Contact
	return json.Marshal(struct {
		alias
		FullName    string `json:"full_name"`
		FullAddress string `json:"full_address"`
	}{alias(c), c.FullName(), c.FullAddress()})
}

type Stats struct {
	TotalContacts   int64                    `json:"total_contacts"`
	ActiveContacts  int64                    `json:"active_contacts"`
	RecentContacts  int64                    `json:"recent_contacts"`
	StatusBreakdown []map[string]interface{} `json:"status_breakdown"`
}
