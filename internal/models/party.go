package models

import "time"

// Contact mechanism types
const (
	ContactEmail  = "email"
	ContactPhone  = "phone"
	ContactMobile = "mobile"
)

// Party is a customer
type Party struct {
	ID                uint               `gorm:"primaryKey" json:"id"`
	Name              string             `gorm:"not null;index" json:"name"`
	Addresses         []Address          `gorm:"foreignKey:PartyID" json:"addresses,omitempty"`
	ContactMechanisms []ContactMechanism `gorm:"foreignKey:PartyID" json:"contact_mechanisms,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func (Party) TableName() string {
	return "parties"
}

// Address is owned by a party and matched structurally, never by remote id
type Address struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PartyID       uint      `gorm:"not null;index" json:"party_id"`
	Name          string    `json:"name"`
	Street        string    `json:"street"`
	Zip           string    `json:"zip"`
	City          string    `json:"city"`
	CountryID     *uint     `json:"country_id,omitempty"`
	SubdivisionID *uint     `json:"subdivision_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Address) TableName() string {
	return "addresses"
}

// ContactMechanism is an email, phone or mobile number of a party
type ContactMechanism struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	PartyID uint   `gorm:"not null;index" json:"party_id"`
	Type    string `gorm:"not null" json:"type"`
	Value   string `gorm:"not null" json:"value"`
}

func (ContactMechanism) TableName() string {
	return "contact_mechanisms"
}
