package company

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Company struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name"`
	Industry      string             `json:"industry" bson:"industry"`
	Website       string             `json:"website" bson:"website"`
	Phone         string             `json:"phone" bson:"phone"`
	Email         string             `json:"email" bson:"email"`
	Address       string             `json:"address" bson:"address"`
	City          string             `json:"city" bson:"city"`
	State         string             `json:"state" bson:"state"`
	Country       string             `json:"country" bson:"country"`
	PostalCode    string             `json:"postal_code" bson:"postal_code"`
	Description   string             `json:"description" bson:"description"`
	AnnualRevenue *decimal.Decimal   `json:"annual_revenue" bson:"annual_revenue,omitempty"`
	EmployeeCount *int               `json:"employee_count" bson:"employee_count,omitempty"`
	OwnerID       string             `json:"owner_id" bson:"owner_id"`
	IsActive      bool               `json:"is_active" bson:"is_active"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// New returns a company with the creation defaults applied
func New() *Company {
	return &Company{IsActive: true}
}

// FullAddress joins the non-empty address parts
func (c Company) FullAddress() string {
	return JoinAddress(c.Address, c.City, c.State, c.Country, c.PostalCode)
}

func (c Company) MarshalJSON() ([]byte, error) {
	type alias Company
	return json.Marshal(struct {
		alias
		FullAddress string `json:"full_address"`
	}{alias(c), c.FullAddress()})
}

func JoinAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

type Stats struct {
	TotalCompanies    int64                    `json:"total_companies"`
	ActiveCompanies   int64                    `json:"active_companies"`
	IndustryBreakdown []map[string]interface{} `json:"industry_breakdown"`
}
