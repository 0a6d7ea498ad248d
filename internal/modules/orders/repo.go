package orders

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence contract the payment service works against.
// The gorm implementation below is constructed once in main and passed in.
type Store interface {
	Create(ctx context.Context, o *Order) error
	ByID(ctx context.Context, id string) (Order, error)
	ByExternalRef(ctx context.Context, gateway, ref string) (Order, error)

	// Finalize applies a terminal transition. It reports applied=false with
	// the current row when the order is already terminal (terminal is final).
	Finalize(ctx context.Context, id, toStatus string, meta map[string]any) (Order, bool, error)
}

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Create(ctx context.Context, o *Order) error {
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *Repo) ByID(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error
	return o, err
}

func (r *Repo) ByExternalRef(ctx context.Context, gateway, ref string) (Order, error) {
	var o Order
	err := r.db.WithContext(ctx).First(&o, "gateway = ? AND external_ref = ?", gateway, ref).Error
	return o, err
}

func (r *Repo) Finalize(ctx context.Context, id, toStatus string, meta map[string]any) (Order, bool, error) {
	if toStatus != StatusCompleted && toStatus != StatusFailed {
		return Order{}, false, ErrInvalidTransition
	}

	var out Order
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order

		// row lock
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", id).Error; err != nil {
			return err
		}

		if o.Terminal() {
			out = o
			return nil
		}
		if o.ExternalRef == "" {
			out = o
			return ErrNoExternalRef
		}

		merged, err := mergeMeta(o.ProviderMeta, meta)
		if err != nil {
			return err
		}

		now := time.Now()
		res := tx.WithContext(ctx).
			Model(&Order{}).
			Where("id = ? AND status = ?", o.ID, StatusPending). // optimistic guard
			Updates(map[string]any{
				"status":        toStatus,
				"provider_meta": merged,
				"updated_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race against a concurrent verify/webhook
			return tx.WithContext(ctx).First(&out, "id = ?", o.ID).Error
		}

		o.Status = toStatus
		o.ProviderMeta = merged
		o.UpdatedAt = now
		out = o
		applied = true
		return nil
	})

	return out, applied, err
}

// mergeMeta appends new keys into the stored meta. Keys captured earlier win:
// provider_meta is append-only, never rewritten.
func mergeMeta(current []byte, add map[string]any) ([]byte, error) {
	out := map[string]any{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &out); err != nil {
			return nil, err
		}
	}
	for k, v := range add {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return json.Marshal(out)
}
