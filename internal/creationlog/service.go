package creationlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/kitchenartsandletters/damaged-books-service/pkg/db"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/db/models"
	pkgerrors "github.com/kitchenartsandletters/damaged-books-service/pkg/errors"
	"github.com/kitchenartsandletters/damaged-books-service/pkg/logger"
)

// VariantInput is one damaged variant recorded in a creation attempt.
type VariantInput struct {
	Title     string `json:"title" validate:"required"`
	SKU       string `json:"sku,omitempty"`
	Barcode   string `json:"barcode,omitempty"`
	Condition string `json:"condition" validate:"required"`
	Price     string `json:"price,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Entry is one append request. Rows are write-only; nothing in the
// pipeline reads them back.
type Entry struct {
	CanonicalHandle  string         `json:"canonical_handle" validate:"required"`
	CanonicalTitle   string         `json:"canonical_title,omitempty"`
	CanonicalProduct int64          `json:"canonical_product_id" validate:"required"`
	DamagedHandle    string         `json:"damaged_handle" validate:"required"`
	DamagedProductID *int64         `json:"damaged_product_id,omitempty"`
	Variants         []VariantInput `json:"variants,omitempty"`
	Operator         string         `json:"operator" validate:"required"`
	DryRun           bool           `json:"dry_run"`
	Status           string         `json:"status" validate:"required,oneof=created dry_run failed"`
	Message          string         `json:"message,omitempty"`
}

// Writer appends creation log rows.
type Writer interface {
	Append(ctx context.Context, entry Entry) (*models.CreationLog, error)
}

type service struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewService builds an append-only creation log writer.
func NewService(db *gorm.DB, logg *logger.Logger) (Writer, error) {
	if db == nil {
		return nil, fmt.Errorf("creationlog: db is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("creationlog: logger is required")
	}
	return &service{db: db, logger: logg}, nil
}

func (s *service) Append(ctx context.Context, entry Entry) (*models.CreationLog, error) {
	row := &models.CreationLog{
		ID:               uuid.New(),
		CanonicalHandle:  entry.CanonicalHandle,
		CanonicalProduct: entry.CanonicalProduct,
		DamagedHandle:    entry.DamagedHandle,
		DamagedProductID: entry.DamagedProductID,
		Operator:         entry.Operator,
		DryRun:           entry.DryRun,
		Status:           entry.Status,
	}
	if entry.CanonicalTitle != "" {
		row.CanonicalTitle = &entry.CanonicalTitle
	}
	if entry.Message != "" {
		row.Message = &entry.Message
	}
	if len(entry.Variants) > 0 {
		raw, err := json.Marshal(entry.Variants)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode variants")
		}
		row.VariantsJSON = raw
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "creation log entry already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append creation log")
	}

	ctx = s.logger.WithFields(ctx, map[string]any{
		"creation_log_id": row.ID.String(),
		"damaged_handle":  row.DamagedHandle,
		"status":          row.Status,
		"dry_run":         row.DryRun,
	})
	s.logger.Info(ctx, "creation log entry appended")
	return row, nil
}
