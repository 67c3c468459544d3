/**
 * @description
 * Catalog data-transfer types: service types, categories, services,
 * subscription plans and category-scoped plans.
 *
 * Entity structs mirror what the server returns. The *Input structs are the
 * create/update payloads: every field is a pointer so that omitted fields are
 * absent on the wire (partial update), and none of them carry server-assigned
 * fields (id, timestamps).
 */
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Ptr returns a pointer to v; handy for building *Input payloads.
func Ptr[T any](v T) *T {
	return &v
}

// ServiceType is the top-level grouping ("operators", "video", ...).
// DisplayOrder is a sort hint only.
type ServiceType struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"displayOrder"`
}

// CategoryType is the name older backend revisions used for ServiceType.
type CategoryType = ServiceType

type ServiceTypeInput struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	DisplayOrder *int    `json:"displayOrder,omitempty" validate:"omitempty,min=0"`
}

// ServiceCategory groups services inside a type. TypeID is canonical; Type is
// the legacy string label kept only for display.
type ServiceCategory struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	TypeID            int64            `json:"typeId,omitempty"`
	Type              string           `json:"type,omitempty"`
	Icon              string           `json:"icon,omitempty"`
	PriceFrom         *decimal.Decimal `json:"priceFrom,omitempty"`
	SavingsPercentage int              `json:"savingsPercentage,omitempty"`
	CreatedAt         *Timestamp       `json:"createdAt,omitempty"`
}

// UnmarshalJSON resolves the drifted shapes of a category: "type" may be a
// label string, a numeric string or a number, and "typeId" may be absent.
func (c *ServiceCategory) UnmarshalJSON(data []byte) error {
	type plain ServiceCategory
	var wire struct {
		plain
		TypeID json.RawMessage `json:"typeId"`
		Type   json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*c = ServiceCategory(wire.plain)

	if id, ok, err := rawID(wire.TypeID); err != nil {
		return fmt.Errorf("category typeId: %w", err)
	} else if ok {
		c.TypeID = id
	}

	if len(wire.Type) == 0 || string(wire.Type) == "null" {
		return nil
	}
	var label string
	if err := json.Unmarshal(wire.Type, &label); err == nil {
		c.Type = label
		if c.TypeID == 0 {
			if id, convErr := strconv.ParseInt(strings.TrimSpace(label), 10, 64); convErr == nil {
				c.TypeID = id
				c.Type = ""
			}
		}
		return nil
	}
	var id int64
	if err := json.Unmarshal(wire.Type, &id); err != nil {
		return fmt.Errorf("category type: unsupported value %s", string(wire.Type))
	}
	if c.TypeID == 0 {
		c.TypeID = id
	}
	return nil
}

func rawID(raw json.RawMessage) (int64, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, nil
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

type ServiceCategoryInput struct {
	Name              *string          `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	TypeID            *int64           `json:"typeId,omitempty" validate:"omitempty,gt=0"`
	Icon              *string          `json:"icon,omitempty"`
	PriceFrom         *decimal.Decimal `json:"priceFrom,omitempty"`
	SavingsPercentage *int             `json:"savingsPercentage,omitempty" validate:"omitempty,min=0,max=100"`
}

// Service is a single product (Netflix, Spotify, ...). Belongs to one category.
type Service struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	LogoURL         string           `json:"logoUrl,omitempty"`
	CategoryID      int64            `json:"categoryId,omitempty"`
	CategoryName    string           `json:"categoryName,omitempty"`
	IsActive        bool             `json:"isActive"`
	Icon            string           `json:"icon,omitempty"`
	Color           string           `json:"color,omitempty"`
	PlanCount       int              `json:"planCount,omitempty"`
	PriceFrom       *decimal.Decimal `json:"priceFrom,omitempty"`
	FamilyPriceFrom *decimal.Decimal `json:"familyPriceFrom,omitempty"`
	CreatedAt       *Timestamp       `json:"createdAt,omitempty"`
	UpdatedAt       *Timestamp       `json:"updatedAt,omitempty"`
}

// UnmarshalJSON folds the "plansCount" spelling into PlanCount.
func (s *Service) UnmarshalJSON(data []byte) error {
	type plain Service
	var wire struct {
		plain
		PlansCount *int `json:"plansCount"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*s = Service(wire.plain)
	if s.PlanCount == 0 && wire.PlansCount != nil {
		s.PlanCount = *wire.PlansCount
	}
	return nil
}

type ServiceInput struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty"`
	LogoURL     *string `json:"logoUrl,omitempty" validate:"omitempty,url"`
	CategoryID  *int64  `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	IsActive    *bool   `json:"isActive,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// SubscriptionPlan belongs to one service. DiscountPercentage is informational
// and never recomputed from OriginalPrice/PricePerMonth.
type SubscriptionPlan struct {
	ID                 int64            `json:"id"`
	ServiceID          int64            `json:"serviceId"`
	Name               string           `json:"name"`
	Description        string           `json:"description,omitempty"`
	MaxMembers         int              `json:"maxMembers"`
	MaxDevices         int              `json:"maxDevices,omitempty"`
	PricePerMonth      decimal.Decimal  `json:"pricePerMonth"`
	OriginalPrice      *decimal.Decimal `json:"originalPrice,omitempty"`
	DiscountPercentage int              `json:"discountPercentage,omitempty"`
	IsPopular          bool             `json:"isPopular"`
	Features           []string         `json:"features,omitempty"`
	IsActive           bool             `json:"isActive"`
	CreatedAt          *Timestamp       `json:"createdAt,omitempty"`
	UpdatedAt          *Timestamp       `json:"updatedAt,omitempty"`
}

// PricePerMember is the monthly share when the plan is split evenly.
func (p SubscriptionPlan) PricePerMember() decimal.Decimal {
	if p.MaxMembers <= 0 {
		return p.PricePerMonth
	}
	return p.PricePerMonth.Div(decimal.NewFromInt(int64(p.MaxMembers))).Round(2)
}

type SubscriptionPlanInput struct {
	ServiceID          *int64           `json:"serviceId,omitempty" validate:"omitempty,gt=0"`
	Name               *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description        *string          `json:"description,omitempty"`
	MaxMembers         *int             `json:"maxMembers,omitempty" validate:"omitempty,min=1"`
	MaxDevices         *int             `json:"maxDevices,omitempty" validate:"omitempty,min=0"`
	PricePerMonth      *decimal.Decimal `json:"pricePerMonth,omitempty"`
	OriginalPrice      *decimal.Decimal `json:"originalPrice,omitempty"`
	DiscountPercentage *int             `json:"discountPercentage,omitempty" validate:"omitempty,min=0,max=100"`
	IsPopular          *bool            `json:"isPopular,omitempty"`
	Features           *[]string        `json:"features,omitempty"`
	IsActive           *bool            `json:"isActive,omitempty"`
}

// CategoryPlan is a group bundle scoped to a category rather than one service.
type CategoryPlan struct {
	ID             int64           `json:"id"`
	CategoryID     int64           `json:"categoryId"`
	Slots          int             `json:"slots"`
	PricePerPerson decimal.Decimal `json:"pricePerPerson"`
	Commission     decimal.Decimal `json:"commission"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
}

type CategoryPlanInput struct {
	CategoryID     *int64           `json:"categoryId,omitempty" validate:"omitempty,gt=0"`
	Slots          *int             `json:"slots,omitempty" validate:"omitempty,min=1"`
	PricePerPerson *decimal.Decimal `json:"pricePerPerson,omitempty"`
	Commission     *decimal.Decimal `json:"commission,omitempty"`
	TotalPrice     *decimal.Decimal `json:"totalPrice,omitempty"`
}
