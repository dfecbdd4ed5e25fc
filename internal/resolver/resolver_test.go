package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xelth-com/magebridge/internal/database"
	"github.com/xelth-com/magebridge/internal/database/dbtest"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
	"github.com/xelth-com/magebridge/internal/registry"
	"github.com/xelth-com/magebridge/internal/storefront"
	"github.com/xelth-com/magebridge/internal/storefront/storefronttest"
)

type fixture struct {
	db  *database.DB
	ch  *models.Channel
	api *storefronttest.Fake
	res *Set
	ctx context.Context
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	api := storefronttest.NewFake()
	return &fixture{
		db:  db,
		ch:  dbtest.Channel(t, db),
		api: api,
		res: New(db.DB, api, zaptest.NewLogger(t)),
		ctx: context.Background(),
	}
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestPartyResolveByRemoteIDIsIdempotent(t *testing.T) {
	f := setup(t)
	f.api.Customers[12] = storefront.Record{
		"customer_id": "12",
		"firstname":   "Ada",
		"lastname":    "Lovelace",
		"email":       "ada@example.com",
	}

	first, err := f.res.Party.ResolveByRemoteID(f.ctx, f.ch, 12)
	require.NoError(t, err)
	second, err := f.res.Party.ResolveByRemoteID(f.ctx, f.ch, 12)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada Lovelace", first.Name)
	require.Len(t, first.ContactMechanisms, 1)
	assert.Equal(t, "ada@example.com", first.ContactMechanisms[0].Value)

	assert.Len(t, f.api.CallsTo("customer.info"), 1)
	assert.Equal(t, int64(1), f.count(t, &models.PartyLink{}))
	assert.Equal(t, int64(1), f.count(t, &models.Party{}))
}

func TestPartyUnknownCustomer(t *testing.T) {
	f := setup(t)

	_, err := f.res.Party.ResolveByRemoteID(f.ctx, f.ch, 99)
	require.Error(t, err)
	assert.True(t, storefront.IsFault(err, storefront.FaultNotFound))
	assert.Zero(t, f.count(t, &models.Party{}))
}

func TestGuestPartiesAreNeverShared(t *testing.T) {
	f := setup(t)
	guest := normalize.Customer{FirstName: "Walk", LastName: "In", Email: "guest@example.com"}

	first, err := f.res.Party.ResolveByRemoteData(f.ctx, f.ch, guest)
	require.NoError(t, err)
	second, err := f.res.Party.ResolveByRemoteData(f.ctx, f.ch, guest)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(2), f.count(t, &models.PartyLink{}))
}

func seedGeography(t *testing.T, f *fixture) (models.Country, models.Subdivision) {
	t.Helper()
	us := models.Country{Code: "US", Name: "United States"}
	require.NoError(t, f.db.Create(&us).Error)
	ca := models.Subdivision{CountryID: us.ID, Code: "US-CA", Name: "California"}
	require.NoError(t, f.db.Create(&ca).Error)
	return us, ca
}

func testAddress() normalize.Address {
	return normalize.Address{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Street:      "1 Infinite Loop",
		PostCode:    "95014",
		City:        "Cupertino",
		CountryCode: "US",
		Region:      "california",
		Telephone:   "555-0100",
	}
}

func TestAddressDedup(t *testing.T) {
	f := setup(t)
	us, ca := seedGeography(t, f)
	party := models.Party{Name: "Ada Lovelace"}
	require.NoError(t, f.db.Create(&party).Error)

	first, err := f.res.Address.FindOrCreateForParty(f.ctx, &party, testAddress())
	require.NoError(t, err)
	second, err := f.res.Address.FindOrCreateForParty(f.ctx, &party, testAddress())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, first.CountryID)
	assert.Equal(t, us.ID, *first.CountryID)
	require.NotNil(t, first.SubdivisionID)
	assert.Equal(t, ca.ID, *first.SubdivisionID)
	assert.Equal(t, int64(1), f.count(t, &models.Address{}))
	assert.Equal(t, int64(1), f.count(t, &models.ContactMechanism{}))

	moved := testAddress()
	moved.Street = "2 Infinite Loop"
	third, err := f.res.Address.FindOrCreateForParty(f.ctx, &party, moved)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, int64(2), f.count(t, &models.Address{}))
	assert.Equal(t, int64(1), f.count(t, &models.ContactMechanism{}), "same phone is not added twice")
}

func TestAddressPhoneKnownAsMobile(t *testing.T) {
	f := setup(t)
	seedGeography(t, f)
	party := models.Party{
		Name:              "Ada Lovelace",
		ContactMechanisms: []models.ContactMechanism{{Type: models.ContactMobile, Value: "555-0100"}},
	}
	require.NoError(t, f.db.Create(&party).Error)

	_, err := f.res.Address.FindOrCreateForParty(f.ctx, &party, testAddress())
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.count(t, &models.ContactMechanism{}))
}

func TestAddressLookupFailures(t *testing.T) {
	f := setup(t)
	seedGeography(t, f)
	party := models.Party{Name: "Ada Lovelace"}
	require.NoError(t, f.db.Create(&party).Error)

	t.Run("unknown country", func(t *testing.T) {
		a := testAddress()
		a.CountryCode = "ZZ"
		_, err := f.res.Address.FindOrCreateForParty(f.ctx, &party, a)
		assert.ErrorIs(t, err, ErrUnknownCountry)
	})

	t.Run("unknown subdivision", func(t *testing.T) {
		a := testAddress()
		a.Region = "Atlantis"
		_, err := f.res.Address.FindOrCreateForParty(f.ctx, &party, a)
		assert.ErrorIs(t, err, ErrUnknownSubdivision)
	})

	t.Run("no country means no lookup", func(t *testing.T) {
		a := testAddress()
		a.CountryCode = ""
		addr, err := f.res.Address.FindOrCreateForParty(f.ctx, &party, a)
		require.NoError(t, err)
		assert.Nil(t, addr.CountryID)
		assert.Nil(t, addr.SubdivisionID)
	})

	assert.Equal(t, int64(1), f.count(t, &models.Address{}))
}

func TestImportTreeMirrorsShape(t *testing.T) {
	f := setup(t)
	leaf := func(id int) storefront.Record {
		return storefront.Record{"category_id": id, "parent_id": 2, "name": "Leaf", "children": []interface{}{}}
	}
	rec := storefront.Record{
		"category_id": "1",
		"name":        "Root",
		"children": []interface{}{
			map[string]interface{}{
				"category_id": "2",
				"parent_id":   "1",
				"name":        "Apparel",
				"children":    []interface{}{leaf(3), leaf(4), leaf(5), leaf(6)},
			},
		},
	}
	tree, err := normalize.NewCategory(rec)
	require.NoError(t, err)

	n, err := f.res.Category.ImportTree(f.ctx, f.ch, tree)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	assert.Equal(t, int64(6), f.count(t, &models.Category{}))
	assert.Equal(t, int64(6), f.count(t, &models.CategoryLink{}))

	reg := registry.New(f.db.DB)
	local := map[int]uint{}
	for remote := 1; remote <= 6; remote++ {
		id, found, err := reg.Find(f.ctx, registry.Category, remote, f.ch.ID)
		require.NoError(t, err)
		require.True(t, found, "remote %d", remote)
		local[remote] = id
	}

	var cats []models.Category
	require.NoError(t, f.db.Find(&cats).Error)
	parents := map[uint]*uint{}
	for _, c := range cats {
		parents[c.ID] = c.ParentID
	}
	assert.Nil(t, parents[local[1]])
	require.NotNil(t, parents[local[2]])
	assert.Equal(t, local[1], *parents[local[2]])
	for remote := 3; remote <= 6; remote++ {
		require.NotNil(t, parents[local[remote]])
		assert.Equal(t, local[2], *parents[local[remote]])
	}

	n, err = f.res.Category.ImportTree(f.ctx, f.ch, tree)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, int64(6), f.count(t, &models.Category{}), "re-import creates nothing")
}

func TestCategoryResolveByRemoteIDAttachesLinkedParent(t *testing.T) {
	f := setup(t)
	f.api.Categories[10] = storefront.Record{"category_id": "10", "name": "Shoes", "parent_id": "1"}
	root, err := f.res.Category.ResolveByRemoteData(f.ctx, f.ch, normalize.Category{RemoteID: 1, Name: "Root"}, nil)
	require.NoError(t, err)

	cat, err := f.res.Category.ResolveByRemoteID(f.ctx, f.ch, 10)
	require.NoError(t, err)
	assert.Equal(t, "Shoes", cat.Name)
	require.NotNil(t, cat.ParentID)
	assert.Equal(t, root.ID, *cat.ParentID)

	again, err := f.res.Category.ResolveByRemoteID(f.ctx, f.ch, 10)
	require.NoError(t, err)
	assert.Equal(t, cat.ID, again.ID)
	assert.Len(t, f.api.CallsTo("catalog_category.info"), 1)
}

func TestUnclassifiedIsCreatedOnce(t *testing.T) {
	f := setup(t)

	first, err := f.res.Category.Unclassified(f.ctx)
	require.NoError(t, err)
	second, err := f.res.Category.Unclassified(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.UnclassifiedCategory, first.Name)
}

func productRecord(id, sku string) storefront.Record {
	return storefront.Record{
		"product_id":    id,
		"sku":           sku,
		"type":          "simple",
		"name":          "Widget",
		"price":         "10.00",
		"special_price": "8.50",
		"cost":          "4.00",
	}
}

func TestProductResolveByRemoteID(t *testing.T) {
	f := setup(t)
	f.api.Products[7] = productRecord("7", "W-1")

	p, found, err := f.res.Product.ResolveByRemoteID(f.ctx, f.ch, 7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "W-1", p.Code)
	assert.True(t, decimal.RequireFromString("8.50").Equal(p.ListPrice))
	assert.True(t, decimal.RequireFromString("4").Equal(p.CostPrice))

	again, found, err := f.res.Product.ResolveByRemoteID(f.ctx, f.ch, 7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, p.ID, again.ID)
	assert.Len(t, f.api.CallsTo("catalog_product.info"), 1)
	assert.Equal(t, int64(1), f.count(t, &models.ProductLink{}))

	var listing models.ProductListing
	require.NoError(t, f.db.Where("product_id = ?", p.ID).First(&listing).Error)
	assert.Equal(t, f.ch.ID, listing.ChannelID)
	assert.Equal(t, "7", listing.ProductIdentifier)
	assert.Equal(t, "simple", listing.RemoteProductType)

	require.NotNil(t, p.CategoryID)
	var cat models.Category
	require.NoError(t, f.db.First(&cat, *p.CategoryID).Error)
	assert.Equal(t, models.UnclassifiedCategory, cat.Name)
}

func TestProductNotFoundIsNotAnError(t *testing.T) {
	f := setup(t)

	p, found, err := f.res.Product.ResolveByRemoteID(f.ctx, f.ch, 404)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, p)
	assert.Zero(t, f.count(t, &models.Product{}))
}

func TestProductOtherFailuresAreErrors(t *testing.T) {
	f := setup(t)
	f.api.ProductErrors[5] = errors.New("connection reset")

	_, found, err := f.res.Product.ResolveByRemoteID(f.ctx, f.ch, 5)
	require.Error(t, err)
	assert.False(t, found)
}

func TestProductAdoptsExistingSKU(t *testing.T) {
	f := setup(t)
	existing := models.Product{Code: "W-1", Name: "Local widget"}
	require.NoError(t, f.db.Create(&existing).Error)
	f.api.Products[7] = productRecord("7", "W-1")

	p, found, err := f.res.Product.ResolveByRemoteID(f.ctx, f.ch, 7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, existing.ID, p.ID)
	assert.Equal(t, int64(1), f.count(t, &models.Product{}))
	assert.Equal(t, int64(1), f.count(t, &models.ProductListing{}))
}

func TestProductUsesRemoteCategory(t *testing.T) {
	f := setup(t)
	f.api.Categories[3] = storefront.Record{"category_id": "3", "name": "Tools"}
	rec := productRecord("7", "W-1")
	rec["categories"] = []interface{}{"3", "4"}
	f.api.Products[7] = rec

	p, _, err := f.res.Product.ResolveByRemoteID(f.ctx, f.ch, 7)
	require.NoError(t, err)

	require.NotNil(t, p.CategoryID)
	var cat models.Category
	require.NoError(t, f.db.First(&cat, *p.CategoryID).Error)
	assert.Equal(t, "Tools", cat.Name)
}

func TestProductUpdateFromRemote(t *testing.T) {
	f := setup(t)
	f.api.Products[7] = productRecord("7", "W-1")
	p, _, err := f.res.Product.ResolveByRemoteID(f.ctx, f.ch, 7)
	require.NoError(t, err)

	f.api.Products[7]["name"] = "Widget Pro"
	delete(f.api.Products[7], "special_price")

	updated, err := f.res.Product.UpdateFromRemote(f.ctx, f.ch, p)
	require.NoError(t, err)
	assert.Equal(t, "Widget Pro", updated.Name)
	assert.True(t, decimal.RequireFromString("10").Equal(updated.ListPrice))

	unlisted := models.Product{Code: "X", Name: "Unlisted"}
	require.NoError(t, f.db.Create(&unlisted).Error)
	_, err = f.res.Product.UpdateFromRemote(f.ctx, f.ch, &unlisted)
	assert.ErrorIs(t, err, ErrNotListed)
}

func TestCarrierImportAll(t *testing.T) {
	f := setup(t)
	methods := []normalize.ShippingMethod{
		{Code: "flatrate_flatrate", Label: "Flat Rate"},
		{Code: "ups_GND", Label: "UPS Ground"},
	}

	added, err := f.res.Carrier.ImportAll(f.ctx, f.ch, methods)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	methods[0].Label = "Renamed"
	added, err = f.res.Carrier.ImportAll(f.ctx, f.ch, methods)
	require.NoError(t, err)
	assert.Zero(t, added)

	cc, found, err := f.res.Carrier.FindByCode(f.ctx, f.ch, "flatrate_flatrate")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Flat Rate", cc.Title)
	assert.Nil(t, cc.Carrier)

	_, found, err = f.res.Carrier.FindByCode(f.ctx, f.ch, "dhl")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOrderStateImportAll(t *testing.T) {
	f := setup(t)
	states := normalize.NewOrderStates(map[string]string{
		"new":        "Pending",
		"processing": "Processing",
		"canceled":   "Canceled",
	})

	added, err := f.res.OrderState.ImportAll(f.ctx, f.ch, states)
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	added, err = f.res.OrderState.ImportAll(f.ctx, f.ch, states)
	require.NoError(t, err)
	assert.Zero(t, added)

	var m models.OrderStateMapping
	require.NoError(t, f.db.Where("code = ?", "processing").First(&m).Error)
	assert.Equal(t, "Processing", m.Name)
	assert.Equal(t, "processing", m.State)
	assert.Equal(t, "order", m.ShipmentMethod)
	assert.True(t, m.UseForImport)

	codes, err := f.res.OrderState.ImportableCodes(f.ctx, f.ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"canceled", "new", "processing"}, codes)

	require.NoError(t, f.db.Model(&models.OrderStateMapping{}).Where("code = ?", "canceled").Update("use_for_import", false).Error)
	codes, err = f.res.OrderState.ImportableCodes(f.ctx, f.ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "processing"}, codes)

	policy, err := f.res.OrderState.Policy(f.ctx, f.ch, "pending_payment")
	require.NoError(t, err)
	assert.Equal(t, "invoice", policy.ShipmentMethod)
}
