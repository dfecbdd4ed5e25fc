package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
)

// AddressResolver matches storefront addresses against a party's existing addresses
type AddressResolver struct {
	db  *gorm.DB
	log *zap.Logger
}

// location is an address with its country and subdivision resolved
type location struct {
	name          string
	street        string
	zip           string
	city          string
	countryID     *uint
	subdivisionID *uint
}

func (l location) matches(a models.Address) bool {
	return a.Name == l.name &&
		a.Street == l.street &&
		a.Zip == l.zip &&
		a.City == l.city &&
		sameID(a.CountryID, l.countryID) &&
		sameID(a.SubdivisionID, l.subdivisionID)
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// FindOrCreateForParty returns the first address of party equal to addr in every field,
// creating one otherwise. A new address also records its telephone on the party
// unless the party already has that number.
func (r *AddressResolver) FindOrCreateForParty(ctx context.Context, party *models.Party, addr normalize.Address) (*models.Address, error) {
	loc, err := r.locate(ctx, addr)
	if err != nil {
		return nil, err
	}

	var result models.Address
	created := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.Address
		if err := tx.Where("party_id = ?", party.ID).Order("id").Find(&existing).Error; err != nil {
			return err
		}
		for _, a := range existing {
			if loc.matches(a) {
				result = a
				return nil
			}
		}

		result = models.Address{
			PartyID:       party.ID,
			Name:          loc.name,
			Street:        loc.street,
			Zip:           loc.zip,
			City:          loc.city,
			CountryID:     loc.countryID,
			SubdivisionID: loc.subdivisionID,
		}
		if err := tx.Create(&result).Error; err != nil {
			return err
		}
		created = true
		return addPhone(tx, party.ID, addr.Telephone)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve address for party %d: %w", party.ID, err)
	}
	if created {
		contextLogger(ctx, r.log).Debug("Address created",
			zap.Uint("party_id", party.ID),
			zap.Uint("address_id", result.ID))
	}
	return &result, nil
}

func addPhone(tx *gorm.DB, partyID uint, phone string) error {
	if phone == "" {
		return nil
	}
	var n int64
	err := tx.Model(&models.ContactMechanism{}).
		Where("party_id = ? AND type IN ? AND value = ?", partyID, []string{models.ContactPhone, models.ContactMobile}, phone).
		Count(&n).Error
	if err != nil || n > 0 {
		return err
	}
	return tx.Create(&models.ContactMechanism{PartyID: partyID, Type: models.ContactPhone, Value: phone}).Error
}

// locate resolves the country by ISO code and the subdivision by name within it.
// Empty codes are skipped; unknown ones are errors.
func (r *AddressResolver) locate(ctx context.Context, addr normalize.Address) (location, error) {
	loc := location{
		name:   addr.Name(),
		street: addr.Street,
		zip:    addr.PostCode,
		city:   addr.City,
	}
	if addr.CountryCode == "" {
		return loc, nil
	}

	db := r.db.WithContext(ctx)
	var country models.Country
	err := db.Where("code = ?", strings.ToUpper(addr.CountryCode)).First(&country).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return loc, fmt.Errorf("%w: %s", ErrUnknownCountry, addr.CountryCode)
	}
	if err != nil {
		return loc, err
	}
	loc.countryID = &country.ID

	if addr.Region == "" {
		return loc, nil
	}
	var sub models.Subdivision
	err = db.Where("country_id = ? AND LOWER(name) = LOWER(?)", country.ID, addr.Region).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return loc, fmt.Errorf("%w: %s in %s", ErrUnknownSubdivision, addr.Region, country.Code)
	}
	if err != nil {
		return loc, err
	}
	loc.subdivisionID = &sub.ID
	return loc, nil
}
