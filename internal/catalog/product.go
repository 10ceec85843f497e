package catalog

import (
	"strings"
	"time"

	"github.com/dmitrymomot/storefront/core"
	"github.com/dmitrymomot/storefront/pkg/isolation"
)

// Product is a tenant-scoped catalog entry. Price is in minor units.
type Product struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Product) GetID() string         { return p.ID }
func (p *Product) GetTenantID() string   { return p.TenantID }
func (p *Product) SetTenantID(id string) { p.TenantID = id }

func (p *Product) document() isolation.Document {
	return isolation.Document{
		ID: p.ID,
		Fields: map[string]any{
			"sku":      p.SKU,
			"name":     p.Name,
			"category": p.Category,
			"price":    p.Price,
		},
	}
}

// CreateInput is the payload of a new product. TenantID is accepted so a
// client supplied value reaches the repository, which replaces it with the
// request's tenant and audits the mismatch.
type CreateInput struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	TenantID string `json:"tenant_id"`
}

func (in *CreateInput) normalize() error {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))

	verr := core.NewValidationError()
	if in.SKU == "" {
		verr.Add("sku", "required")
	}
	if in.Name == "" {
		verr.Add("name", "required")
	}
	if in.Price < 0 {
		verr.Add("price", "must not be negative")
	}
	return verr.Err()
}

// ListInput pages through a tenant's products ordered by SKU.
type ListInput struct {
	Category string
	Limit    int
	Offset   int
}

func errInvalidPrice() error {
	verr := core.NewValidationError()
	verr.Add("price", "must not be negative")
	return verr
}
