package bom

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xelth-com/magebridge/internal/database"
	"github.com/xelth-com/magebridge/internal/database/dbtest"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
)

// products maps remote ids to local products; unknown ids are not found
type products map[int]*models.Product

func (p products) ResolveByRemoteID(ctx context.Context, ch *models.Channel, productID int) (*models.Product, bool, error) {
	prod, ok := p[productID]
	return prod, ok, nil
}

func seedProducts(t *testing.T, db *database.DB, remoteIDs ...int) products {
	t.Helper()
	out := products{}
	for _, id := range remoteIDs {
		p := &models.Product{Name: "Product", Code: "SKU"}
		require.NoError(t, db.Create(p).Error)
		out[id] = p
	}
	return out
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func parent(itemID, productID int, q string) normalize.OrderItem {
	return normalize.OrderItem{ItemID: itemID, ProductID: productID, SKU: "bundle", ProductType: models.ProductTypeBundle, Quantity: qty(q)}
}

func child(itemID, parentID, productID int, q string) normalize.OrderItem {
	return normalize.OrderItem{
		ItemID:       itemID,
		ProductID:    productID,
		SKU:          "part",
		ProductType:  models.ProductTypeSimple,
		ParentItemID: parentID,
		BundleOption: true,
		Quantity:     qty(q),
	}
}

func count(t *testing.T, db *database.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestIdentify(t *testing.T) {
	items := []normalize.OrderItem{
		parent(1, 100, "1"),
		child(2, 1, 200, "2"),
		{ItemID: 3, ProductID: 300, SKU: "plain", ProductType: models.ProductTypeSimple, Quantity: qty("1")},
		child(4, 1, 201, "1"),
		child(5, 99, 202, "1"), // parent not in this order
	}

	bundles := Identify(items)
	require.Len(t, bundles, 1)
	assert.Equal(t, 1, bundles[0].Parent.ItemID)
	require.Len(t, bundles[0].Components, 2)
	assert.Equal(t, 2, bundles[0].Components[0].ItemID)
	assert.Equal(t, 4, bundles[0].Components[1].ItemID)
}

func TestResolveWithoutBundlesIsNoop(t *testing.T) {
	db := dbtest.New(t)
	ch := dbtest.Channel(t, db)
	r := NewResolver(db.DB, products{}, zaptest.NewLogger(t))

	results, err := r.Resolve(context.Background(), ch, []normalize.OrderItem{
		{ItemID: 1, ProductID: 1, SKU: "plain", ProductType: models.ProductTypeSimple, Quantity: qty("2")},
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, count(t, db, &models.BOM{}))

	results, err = r.Resolve(context.Background(), ch, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEquivalentBundlesShareOneBOM(t *testing.T) {
	db := dbtest.New(t)
	ch := dbtest.Channel(t, db)
	prods := seedProducts(t, db, 100, 200, 201)
	r := NewResolver(db.DB, prods, zaptest.NewLogger(t))
	ctx := context.Background()

	// order A: two bundles of 4+2 parts, order B: one bundle of 2+1 parts
	orderA := []normalize.OrderItem{parent(1, 100, "2"), child(2, 1, 200, "4"), child(3, 1, 201, "2")}
	orderB := []normalize.OrderItem{parent(7, 100, "1"), child(8, 7, 201, "1"), child(9, 7, 200, "2")}

	first, err := r.Resolve(ctx, ch, orderA)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, first[0].Created)

	second, err := r.Resolve(ctx, ch, orderB)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.False(t, second[0].Created)
	assert.Equal(t, first[0].BOM.ID, second[0].BOM.ID)

	assert.Equal(t, int64(1), count(t, db, &models.BOM{}))
	assert.Equal(t, int64(1), count(t, db, &models.ProductBOM{}))

	var bom models.BOM
	require.NoError(t, db.Preload("Inputs").Preload("Outputs").First(&bom, first[0].BOM.ID).Error)
	require.Len(t, bom.Outputs, 1)
	assert.Equal(t, prods[100].ID, bom.Outputs[0].ProductID)
	assert.True(t, bom.Outputs[0].Quantity.Equal(qty("1")))
	require.Len(t, bom.Inputs, 2)
}

func TestFractionalRatiosCompareEqual(t *testing.T) {
	db := dbtest.New(t)
	ch := dbtest.Channel(t, db)
	prods := seedProducts(t, db, 100, 200)
	r := NewResolver(db.DB, prods, zaptest.NewLogger(t))
	ctx := context.Background()

	order := []normalize.OrderItem{parent(1, 100, "3"), child(2, 1, 200, "1")}
	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, ch, order)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), count(t, db, &models.BOM{}))

	var in models.BOMInput
	require.NoError(t, db.First(&in).Error)
	assert.Equal(t, "0.33333333", in.Quantity.Round(RatioScale).String())
}

func TestDifferentRatioCreatesSecondBOM(t *testing.T) {
	db := dbtest.New(t)
	ch := dbtest.Channel(t, db)
	prods := seedProducts(t, db, 100, 200)
	r := NewResolver(db.DB, prods, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := r.Resolve(ctx, ch, []normalize.OrderItem{parent(1, 100, "1"), child(2, 1, 200, "1")})
	require.NoError(t, err)
	res, err := r.Resolve(ctx, ch, []normalize.OrderItem{parent(1, 100, "1"), child(2, 1, 200, "2")})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.True(t, res[0].Created)

	assert.Equal(t, int64(2), count(t, db, &models.BOM{}))
	var links []models.ProductBOM
	require.NoError(t, db.Order("sequence").Find(&links).Error)
	require.Len(t, links, 2)
	assert.Equal(t, []int{1, 2}, []int{links[0].Sequence, links[1].Sequence})
}

func TestFailingBundleDoesNotStopOthers(t *testing.T) {
	db := dbtest.New(t)
	ch := dbtest.Channel(t, db)
	prods := seedProducts(t, db, 100, 200)
	r := NewResolver(db.DB, prods, zaptest.NewLogger(t))

	items := []normalize.OrderItem{
		parent(1, 100, "1"), child(2, 1, 999, "1"), // component unknown
		parent(3, 100, "1"), child(4, 3, 200, "1"),
		parent(5, 100, "0"), child(6, 5, 200, "1"),
	}
	res, err := r.Resolve(context.Background(), ch, items)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, err, ErrZeroQuantity)
	require.Len(t, res, 1)
	assert.Equal(t, 3, res[0].ItemID)
}
