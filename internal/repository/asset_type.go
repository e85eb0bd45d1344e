package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/coreledger/wallet-ledger/internal/apperr"
	"github.com/coreledger/wallet-ledger/internal/model"
)

// AssetTypeRepository is a C7 read view over the seeded, referentially
// immutable asset_types table.
type AssetTypeRepository struct{}

// NewAssetTypeRepository constructs an AssetTypeRepository.
func NewAssetTypeRepository() *AssetTypeRepository {
	return &AssetTypeRepository{}
}

// List returns every asset type, active or not.
func (r *AssetTypeRepository) List(ctx context.Context, q Queryer) ([]*model.AssetType, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, symbol, description, is_active, created_at, updated_at
		FROM asset_types ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list asset types: %w", err)
	}
	defer rows.Close()

	var out []*model.AssetType
	for rows.Next() {
		var a model.AssetType
		if err := rows.Scan(&a.ID, &a.Name, &a.Symbol, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan asset type: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// GetByID is a point lookup, used when seeding or validating wallets.
func (r *AssetTypeRepository) GetByID(ctx context.Context, q Queryer, id uuid.UUID) (*model.AssetType, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, symbol, description, is_active, created_at, updated_at
		FROM asset_types WHERE id = $1`, id)
	var a model.AssetType
	err := row.Scan(&a.ID, &a.Name, &a.Symbol, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("asset type")
	}
	if err != nil {
		return nil, fmt.Errorf("get asset type: %w", err)
	}
	return &a, nil
}
