// Package bom derives bills of materials from bundle lines of storefront orders.
package bom

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/normalize"
)

// RatioScale is the number of decimal places kept for component ratios
const RatioScale = 8

var (
	ErrProductNotFound = errors.New("bundle product not found on storefront")
	ErrZeroQuantity    = errors.New("bundle line has zero quantity")
)

// ProductSource resolves storefront product ids to local products
type ProductSource interface {
	ResolveByRemoteID(ctx context.Context, ch *models.Channel, productID int) (*models.Product, bool, error)
}

// Bundle is a bundle line together with its component lines
type Bundle struct {
	Parent     normalize.OrderItem
	Components []normalize.OrderItem
}

// Identify groups the bundle lines of an order. Components whose parent is not
// a bundle line of the same order are ignored.
func Identify(items []normalize.OrderItem) []Bundle {
	var bundles []Bundle
	index := map[int]int{}
	for _, item := range items {
		if item.IsBundleParent() {
			index[item.ItemID] = len(bundles)
			bundles = append(bundles, Bundle{Parent: item})
		}
	}
	for _, item := range items {
		if !item.IsBundleChild() {
			continue
		}
		if i, ok := index[item.ParentItemID]; ok {
			bundles[i].Components = append(bundles[i].Components, item)
		}
	}
	return bundles
}

// Result reports the BOM used for one bundle line
type Result struct {
	ItemID  int
	BOM     *models.BOM
	Created bool
}

// Resolver finds or creates BOMs for bundle products
type Resolver struct {
	db       *gorm.DB
	products ProductSource
	log      *zap.Logger
}

// NewResolver creates a resolver. products is used for both bundles and components.
func NewResolver(db *gorm.DB, products ProductSource, log *zap.Logger) *Resolver {
	return &Resolver{db: db, products: products, log: log.Named("bom")}
}

// Resolve processes every bundle in items. A failing bundle does not stop the others;
// the failures are joined into the returned error.
func (r *Resolver) Resolve(ctx context.Context, ch *models.Channel, items []normalize.OrderItem) ([]Result, error) {
	var results []Result
	var errs []error
	for _, b := range Identify(items) {
		if len(b.Components) == 0 {
			continue
		}
		res, err := r.resolveBundle(ctx, ch, b)
		if err != nil {
			errs = append(errs, fmt.Errorf("bundle line %d: %w", b.Parent.ItemID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

type input struct {
	productID uint
	ratio     decimal.Decimal
}

func (in input) key() string {
	return fmt.Sprintf("%d:%s", in.productID, in.ratio.Round(RatioScale).String())
}

func (r *Resolver) resolveBundle(ctx context.Context, ch *models.Channel, b Bundle) (Result, error) {
	if b.Parent.Quantity.IsZero() {
		return Result{}, ErrZeroQuantity
	}
	bundle, err := r.product(ctx, ch, b.Parent.ProductID)
	if err != nil {
		return Result{}, err
	}

	inputs := make([]input, 0, len(b.Components))
	for _, c := range b.Components {
		p, err := r.product(ctx, ch, c.ProductID)
		if err != nil {
			return Result{}, err
		}
		inputs = append(inputs, input{
			productID: p.ID,
			ratio:     c.Quantity.Div(b.Parent.Quantity).Round(RatioScale),
		})
	}
	want := signature(inputs)

	res := Result{ItemID: b.Parent.ItemID}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := bomsOf(tx, bundle.ID)
		if err != nil {
			return err
		}
		for i := range existing {
			if signatureOf(existing[i]) == want {
				res.BOM = &existing[i]
				return nil
			}
		}

		bom := models.BOM{
			Name:    bundle.Name,
			Outputs: []models.BOMOutput{{ProductID: bundle.ID, Quantity: decimal.NewFromInt(1)}},
		}
		for _, in := range inputs {
			bom.Inputs = append(bom.Inputs, models.BOMInput{ProductID: in.productID, Quantity: in.ratio})
		}
		if err := tx.Create(&bom).Error; err != nil {
			return err
		}
		link := models.ProductBOM{ProductID: bundle.ID, BOMID: bom.ID, Sequence: len(existing) + 1}
		if err := tx.Create(&link).Error; err != nil {
			return err
		}
		res.BOM, res.Created = &bom, true
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to store BOM for product %d: %w", bundle.ID, err)
	}

	if res.Created {
		logger.FromContext(ctx, r.log).Info("BOM created",
			zap.Uint("product_id", bundle.ID),
			zap.Uint("bom_id", res.BOM.ID),
			zap.Int("inputs", len(inputs)))
	}
	return res, nil
}

func (r *Resolver) product(ctx context.Context, ch *models.Channel, remoteID int) (*models.Product, error) {
	p, found, err := r.products.ResolveByRemoteID(ctx, ch, remoteID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, remoteID)
	}
	return p, nil
}

// bomsOf loads the BOMs attached to a product with their inputs
func bomsOf(tx *gorm.DB, productID uint) ([]models.BOM, error) {
	var boms []models.BOM
	err := tx.Preload("Inputs").
		Joins("JOIN product_boms ON product_boms.bom_id = boms.id").
		Where("product_boms.product_id = ?", productID).
		Order("product_boms.sequence, boms.id").
		Find(&boms).Error
	return boms, err
}

func signatureOf(b models.BOM) string {
	inputs := make([]input, 0, len(b.Inputs))
	for _, in := range b.Inputs {
		inputs = append(inputs, input{productID: in.ProductID, ratio: in.Quantity})
	}
	return signature(inputs)
}

// signature is a canonical form of the set of (product, ratio) pairs
func signature(inputs []input) string {
	seen := map[string]bool{}
	keys := make([]string, 0, len(inputs))
	for _, in := range inputs {
		k := in.key()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
