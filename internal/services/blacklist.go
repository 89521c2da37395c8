package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/indyforge/groupindustry/internal/models"
	"gorm.io/gorm"
)

// BlacklistResolver expands a project's blacklist into concrete type ids.
type BlacklistResolver interface {
	Resolve(ctx context.Context, typeIDs, groupIDs, categoryIDs []int) ([]int, error)
}

// ItemTypeBlacklistResolver looks group and category members up in the item catalog.
type ItemTypeBlacklistResolver struct {
	db *gorm.DB
}

func NewItemTypeBlacklistResolver(db *gorm.DB) *ItemTypeBlacklistResolver {
	return &ItemTypeBlacklistResolver{db: db}
}

// Resolve returns the sorted union of the explicit ids and every catalog type
// in one of the listed groups or categories.
func (r *ItemTypeBlacklistResolver) Resolve(ctx context.Context, typeIDs, groupIDs, categoryIDs []int) ([]int, error) {
	set := make(map[int]struct{}, len(typeIDs))
	for _, id := range typeIDs {
		set[id] = struct{}{}
	}

	if len(groupIDs) > 0 || len(categoryIDs) > 0 {
		query := r.db.WithContext(ctx).Model(&models.ItemType{})
		switch {
		case len(groupIDs) > 0 && len(categoryIDs) > 0:
			query = query.Where("group_id IN ? OR category_id IN ?", groupIDs, categoryIDs)
		case len(groupIDs) > 0:
			query = query.Where("group_id IN ?", groupIDs)
		default:
			query = query.Where("category_id IN ?", categoryIDs)
		}

		var expanded []int
		if err := query.Pluck("type_id", &expanded).Error; err != nil {
			return nil, fmt.Errorf("resolve blacklist: %w", err)
		}
		for _, id := range expanded {
			set[id] = struct{}{}
		}
	}

	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}
