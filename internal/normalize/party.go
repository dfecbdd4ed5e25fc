package normalize

import (
	"strings"

	"github.com/xelth-com/magebridge/internal/storefront"
)

// Customer is a storefront customer. RemoteID 0 means a guest.
type Customer struct {
	RemoteID  int    `remote:"customer_id"`
	FirstName string `remote:"firstname" validate:"required"`
	LastName  string `remote:"lastname" validate:"required"`
	Email     string `remote:"email" validate:"required"`
}

// Name is the party name built from first and last name
func (c Customer) Name() string {
	return joinName(c.FirstName, c.LastName)
}

// IsGuest reports whether the customer has no stable storefront identity
func (c Customer) IsGuest() bool {
	return c.RemoteID == 0
}

// NewCustomer normalizes a customer.info payload
func NewCustomer(rec storefront.Record) (Customer, error) {
	c := Customer{
		RemoteID:  integer(rec, "customer_id"),
		FirstName: text(rec, "firstname"),
		LastName:  text(rec, "lastname"),
		Email:     text(rec, "email"),
	}
	if err := check("customer", c); err != nil {
		return Customer{}, err
	}
	if c.RemoteID == 0 {
		return Customer{}, missing("customer", "customer_id")
	}
	return c, nil
}

// Address is a storefront address. Country and region stay raw until resolved locally.
type Address struct {
	FirstName   string `remote:"firstname" validate:"required"`
	LastName    string `remote:"lastname" validate:"required"`
	Street      string `remote:"street" validate:"required"`
	PostCode    string `remote:"postcode"`
	City        string `remote:"city" validate:"required"`
	CountryCode string `remote:"country_id"`
	Region      string `remote:"region"`
	Telephone   string `remote:"telephone"`
	Email       string `remote:"email"`
}

// Name is the addressee name
func (a Address) Name() string {
	return joinName(a.FirstName, a.LastName)
}

// NewAddress normalizes an address payload
func NewAddress(rec storefront.Record) (Address, error) {
	a := Address{
		FirstName:   text(rec, "firstname"),
		LastName:    text(rec, "lastname"),
		Street:      text(rec, "street"),
		PostCode:    text(rec, "postcode"),
		City:        text(rec, "city"),
		CountryCode: text(rec, "country_id"),
		Region:      text(rec, "region"),
		Telephone:   text(rec, "telephone"),
		Email:       text(rec, "email"),
	}
	if err := check("address", a); err != nil {
		return Address{}, err
	}
	return a, nil
}

func joinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
