// Package registry maps storefront ids within a channel to local row ids.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrDuplicateIdentity is returned when a remote id is already linked to a different local row
var ErrDuplicateIdentity = errors.New("remote id already linked to a different local record")

// GuestID is the remote id used for customers without a stable storefront identity
const GuestID = 0

// Kind selects the link table of one entity kind
type Kind string

const (
	Party    Kind = "party"
	Category Kind = "category"
	Product  Kind = "product"
	Order    Kind = "order"
)

func (k Kind) table() string {
	return string(k) + "_links"
}

// exempt reports whether the remote id may map to many local rows
func (k Kind) exempt(remoteID int) bool {
	return k == Party && remoteID == GuestID
}

// link is the shared row layout of every link table
type link struct {
	ID        uint
	RemoteID  int
	ChannelID uint
	LocalID   uint
	CreatedAt time.Time
}

// Registry reads and writes identity links
type Registry struct {
	db *gorm.DB
}

// New creates a registry over db
func New(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// WithTx returns a registry bound to an open transaction
func (r *Registry) WithTx(tx *gorm.DB) *Registry {
	return &Registry{db: tx}
}

// Find returns the local id linked to remoteID in channelID
func (r *Registry) Find(ctx context.Context, kind Kind, remoteID int, channelID uint) (uint, bool, error) {
	if kind.exempt(remoteID) {
		return 0, false, nil
	}

	var rows []link
	err := r.db.WithContext(ctx).Table(kind.table()).
		Where("remote_id = ? AND channel_id = ?", remoteID, channelID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return 0, false, fmt.Errorf("failed to find %s link: %w", kind, err)
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].LocalID, true, nil
}

// Link records remoteID -> localID. Linking the same pair twice is a no-op.
func (r *Registry) Link(ctx context.Context, kind Kind, remoteID int, channelID, localID uint) error {
	existing, found, err := r.Find(ctx, kind, remoteID, channelID)
	if err != nil {
		return err
	}
	if found {
		return sameOrDuplicate(existing, localID)
	}

	row := link{RemoteID: remoteID, ChannelID: channelID, LocalID: localID, CreatedAt: time.Now().UTC()}
	// Savepoint so a constraint violation does not poison an enclosing transaction.
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(kind.table()).Create(&row).Error
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to link %s %d: %w", kind, remoteID, err)
	}

	existing, found, ferr := r.Find(ctx, kind, remoteID, channelID)
	if ferr != nil {
		return ferr
	}
	if !found {
		return fmt.Errorf("failed to link %s %d: %w", kind, remoteID, err)
	}
	return sameOrDuplicate(existing, localID)
}

func sameOrDuplicate(existing, localID uint) error {
	if existing == localID {
		return nil
	}
	return ErrDuplicateIdentity
}

// Resolve returns the local id linked to remoteID, calling create to make one on a miss.
// The registry is checked again inside the creating transaction, and a concurrent
// resolver that wins the race is honoured by rolling back and returning its id.
func (r *Registry) Resolve(ctx context.Context, kind Kind, remoteID int, channelID uint, create func(tx *gorm.DB) (uint, error)) (uint, bool, error) {
	if id, found, err := r.Find(ctx, kind, remoteID, channelID); err != nil || found {
		return id, false, err
	}

	var localID uint
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reg := r.WithTx(tx)
		id, found, err := reg.Find(ctx, kind, remoteID, channelID)
		if err != nil {
			return err
		}
		if found {
			localID = id
			return nil
		}

		id, err = create(tx)
		if err != nil {
			return err
		}
		if err := reg.Link(ctx, kind, remoteID, channelID, id); err != nil {
			return err
		}
		localID, created = id, true
		return nil
	})
	if err == nil {
		return localID, created, nil
	}

	if errors.Is(err, ErrDuplicateIdentity) || errors.Is(err, gorm.ErrDuplicatedKey) {
		id, found, ferr := r.Find(ctx, kind, remoteID, channelID)
		if ferr != nil {
			return 0, false, ferr
		}
		if found {
			return id, false, nil
		}
	}
	return 0, false, err
}

// RemoteID returns the remote id linked to localID in channelID
func (r *Registry) RemoteID(ctx context.Context, kind Kind, localID, channelID uint) (int, bool, error) {
	var rows []link
	err := r.db.WithContext(ctx).Table(kind.table()).
		Where("local_id = ? AND channel_id = ?", localID, channelID).
		Order("id").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return 0, false, fmt.Errorf("failed to find %s link: %w", kind, err)
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].RemoteID, true, nil
}
