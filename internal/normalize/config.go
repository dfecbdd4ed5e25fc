package normalize

import (
	"sort"

	"github.com/xelth-com/magebridge/internal/storefront"
)

// OrderState is a storefront order state code with its label
type OrderState struct {
	Code  string
	Label string
}

// NewOrderStates turns the storefront code/label map into a stable, sorted list
func NewOrderStates(states map[string]string) []OrderState {
	out := make([]OrderState, 0, len(states))
	for code, label := range states {
		if code == "" {
			continue
		}
		out = append(out, OrderState{Code: code, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ShippingMethod is a storefront carrier/shipping method
type ShippingMethod struct {
	Code  string `remote:"code" validate:"required"`
	Label string `remote:"label"`
}

// NewShippingMethod normalizes a shipping method payload
func NewShippingMethod(rec storefront.Record) (ShippingMethod, error) {
	m := ShippingMethod{
		Code:  text(rec, "code"),
		Label: text(rec, "label"),
	}
	if err := check("shipping method", m); err != nil {
		return ShippingMethod{}, err
	}
	if m.Label == "" {
		m.Label = m.Code
	}
	return m, nil
}

// Website is a storefront website
type Website struct {
	RemoteID int    `remote:"website_id" validate:"required"`
	Code     string `remote:"code"`
	Name     string `remote:"name" validate:"required"`
}

// NewWebsite normalizes a website payload
func NewWebsite(rec storefront.Record) (Website, error) {
	w := Website{
		RemoteID: integer(rec, "website_id"),
		Code:     text(rec, "code"),
		Name:     text(rec, "name"),
	}
	if err := check("website", w); err != nil {
		return Website{}, err
	}
	return w, nil
}

// StoreGroup is a storefront store within a website
type StoreGroup struct {
	RemoteID       int    `remote:"group_id" validate:"required"`
	Name           string `remote:"name" validate:"required"`
	RootCategoryID int    `remote:"root_category_id"`
	DefaultStoreID int    `remote:"default_store_id" validate:"required"`
}

// NewStoreGroup normalizes a store group payload
func NewStoreGroup(rec storefront.Record) (StoreGroup, error) {
	g := StoreGroup{
		RemoteID:       integer(rec, "group_id"),
		Name:           text(rec, "name"),
		RootCategoryID: integer(rec, "root_category_id"),
		DefaultStoreID: integer(rec, "default_store_id"),
	}
	if err := check("store", g); err != nil {
		return StoreGroup{}, err
	}
	return g, nil
}
