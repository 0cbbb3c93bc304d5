package barcode

import (
	"context"
	"fmt"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/db/models"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service maintains the alias xref the resolver reads.
type Service interface {
	ListAliases(ctx context.Context, input ListAliasesInput) ([]AliasView, error)
	CreateAlias(ctx context.Context, input CreateAliasInput) (*AliasView, error)
}

type service struct {
	repo Repository
}

// ListAliasesInput filters the admin listing.
type ListAliasesInput struct {
	Barcode     string
	ItemCode    string
	WarehouseID *string
	Limit       int
}

// CreateAliasInput carries a new xref row. Multiplier defaults to 1.
type CreateAliasInput struct {
	Barcode      string
	ItemCode     string
	WarehouseID  *string
	Multiplier   decimal.Decimal
	ActorStation string
}

// AliasView is the API shape of one xref row.
type AliasView struct {
	ID          uuid.UUID       `json:"id"`
	Barcode     string          `json:"barcode"`
	ItemCode    string          `json:"item_code"`
	WarehouseID *string         `json:"warehouse_id,omitempty"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	CreatedBy   *string         `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewService builds the alias admin service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("barcode repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListAliases(ctx context.Context, input ListAliasesInput) ([]AliasView, error) {
	aliases, err := s.repo.List(ctx, ListAliasesQuery{
		Barcode:     input.Barcode,
		ItemCode:    input.ItemCode,
		WarehouseID: input.WarehouseID,
		Limit:       input.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list aliases")
	}

	views := make([]AliasView, 0, len(aliases))
	for _, alias := range aliases {
		views = append(views, aliasView(alias))
	}
	return views, nil
}

func (s *service) CreateAlias(ctx context.Context, input CreateAliasInput) (*AliasView, error) {
	barcode, err := normalizeCode(input.Barcode, 2)
	if err != nil {
		return nil, err
	}
	itemCode, err := normalizeCode(input.ItemCode, 2)
	if err != nil {
		return nil, err
	}
	if input.Multiplier.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "multiplier must be positive")
	}
	multiplier := input.Multiplier
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(1)
	}

	existing, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "alias lookup")
	}
	for _, alias := range existing {
		if sameScope(alias.WarehouseID, input.WarehouseID) && alias.ItemCode == itemCode {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "alias already exists for this scope")
		}
	}

	row := &models.BarcodeAlias{
		ID:          uuid.New(),
		Barcode:     barcode,
		ItemCode:    itemCode,
		WarehouseID: input.WarehouseID,
		Multiplier:  multiplier,
	}
	if input.ActorStation != "" {
		row.CreatedBy = &input.ActorStation
	}

	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create alias")
	}
	view := aliasView(*created)
	return &view, nil
}

func aliasView(alias models.BarcodeAlias) AliasView {
	return AliasView{
		ID:          alias.ID,
		Barcode:     alias.Barcode,
		ItemCode:    alias.ItemCode,
		WarehouseID: alias.WarehouseID,
		Multiplier:  alias.Multiplier,
		CreatedBy:   alias.CreatedBy,
		CreatedAt:   alias.CreatedAt,
	}
}

func sameScope(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
