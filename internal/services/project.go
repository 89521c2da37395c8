package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/indyforge/groupindustry/internal/config"
	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	maxMELevel = 10
	maxTELevel = 20
)

type ProjectService struct {
	db          *gorm.DB
	industry    *config.IndustryConfig
	trees       TreeBuilder
	prices      PriceProvider
	blacklist   BlacklistResolver
	maxParallel int
}

func NewProjectService(db *gorm.DB, cfg *config.Config, trees TreeBuilder, prices PriceProvider, blacklist BlacklistResolver) *ProjectService {
	maxParallel := cfg.TreeBuilder.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &ProjectService{
		db:          db,
		industry:    &cfg.Industry,
		trees:       trees,
		prices:      prices,
		blacklist:   blacklist,
		maxParallel: maxParallel,
	}
}

type ProjectItemRequest struct {
	TypeID   int    `json:"type_id" binding:"required"`
	TypeName string `json:"type_name"`
	MELevel  int    `json:"me_level"`
	TELevel  int    `json:"te_level"`
	Runs     int64  `json:"runs" binding:"required"`
}

type CreateProjectRequest struct {
	Name                 string               `json:"name" binding:"required"`
	ContainerName        string               `json:"container_name"`
	BrokerFeePercent     *float64             `json:"broker_fee_percent"`
	SalesTaxPercent      *float64             `json:"sales_tax_percent"`
	LineRentalOverrides  map[string]float64   `json:"line_rental_overrides"`
	BlacklistTypeIDs     []int                `json:"blacklist_type_ids"`
	BlacklistGroupIDs    []int                `json:"blacklist_group_ids"`
	BlacklistCategoryIDs []int                `json:"blacklist_category_ids"`
	Items                []ProjectItemRequest `json:"items" binding:"required"`
}

type ProjectListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
}

type ProjectListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Project `json:"items"`
}

// BomLine is a BOM row as shown to members.
type BomLine struct {
	models.BomItem
	RemainingQuantity int64    `json:"remaining_quantity"`
	EstimatedTotal    *float64 `json:"estimated_total"`
}

type BOMView struct {
	ProjectID             uint      `json:"project_id"`
	Materials             []BomLine `json:"materials"`
	Jobs                  []BomLine `json:"jobs"`
	EstimatedMaterialCost float64   `json:"estimated_material_cost"`
	UnpricedMaterials     int       `json:"unpriced_materials"`
}

func validateCreateProject(req *CreateProjectRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return newValidationError("name", "is required")
	}
	if len(req.Items) == 0 {
		return newValidationError("items", "at least one item is required")
	}
	for i, item := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if item.TypeID <= 0 {
			return newValidationError(field+".type_id", "must be positive")
		}
		if item.Runs < 1 {
			return newValidationError(field+".runs", "must be at least 1")
		}
		if item.MELevel < 0 || item.MELevel > maxMELevel {
			return newValidationError(field+".me_level", "must be between 0 and %d", maxMELevel)
		}
		if item.TELevel < 0 || item.TELevel > maxTELevel {
			return newValidationError(field+".te_level", "must be between 0 and %d", maxTELevel)
		}
	}
	if p := req.BrokerFeePercent; p != nil && (*p < 0 || *p > 100) {
		return newValidationError("broker_fee_percent", "must be between 0 and 100")
	}
	if p := req.SalesTaxPercent; p != nil && (*p < 0 || *p > 100) {
		return newValidationError("sales_tax_percent", "must be between 0 and 100")
	}
	for activity, rate := range req.LineRentalOverrides {
		if rate < 0 {
			return newValidationError("line_rental_overrides."+activity, "must not be negative")
		}
	}
	return nil
}

// Create builds the bill of materials for the requested items and persists the
// project with its owner membership in one transaction. A tree builder failure
// for any item aborts the whole operation; a pricing failure only leaves
// material prices empty.
func (s *ProjectService) Create(ctx context.Context, ownerID uint, req *CreateProjectRequest) (*models.Project, error) {
	if err := validateCreateProject(req); err != nil {
		return nil, err
	}

	excluded, err := s.blacklist.Resolve(ctx, req.BlacklistTypeIDs, req.BlacklistGroupIDs, req.BlacklistCategoryIDs)
	if err != nil {
		return nil, err
	}

	items := make([]models.ProjectItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = models.ProjectItem{
			TypeID:    it.TypeID,
			TypeName:  it.TypeName,
			MELevel:   it.MELevel,
			TELevel:   it.TELevel,
			Runs:      it.Runs,
			SortOrder: i,
		}
	}

	trees, err := s.buildTrees(ctx, items, excluded)
	if err != nil {
		return nil, err
	}

	bom, err := AggregateBOM(trees)
	if err != nil {
		return nil, err
	}
	s.priceMaterials(ctx, bom)

	project := models.Project{
		OwnerID:             ownerID,
		Name:                strings.TrimSpace(req.Name),
		ContainerName:       req.ContainerName,
		BrokerFeePercent:    s.industry.DefaultBrokerFeePercent,
		SalesTaxPercent:     s.industry.DefaultSalesTaxPercent,
		LineRentalOverrides: req.LineRentalOverrides,
		BlacklistTypeIDs:    req.BlacklistTypeIDs,
		BlacklistGroupIDs:   req.BlacklistGroupIDs,
		BlacklistCategories: req.BlacklistCategoryIDs,
		Status:              models.ProjectStatusDraft,
	}
	if req.BrokerFeePercent != nil {
		project.BrokerFeePercent = *req.BrokerFeePercent
	}
	if req.SalesTaxPercent != nil {
		project.SalesTaxPercent = *req.SalesTaxPercent
	}

	lines := bom.Lines()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		owner := models.ProjectMember{
			ProjectID: project.ID,
			UserID:    ownerID,
			Role:      models.MemberRoleOwner,
			Status:    models.MemberStatusAccepted,
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].ProjectID = project.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		for i := range lines {
			lines[i].ProjectID = project.ID
		}
		return tx.CreateInBatches(&lines, 200).Error
	})
	if err != nil {
		return nil, fmt.Errorf("persist project: %w", err)
	}

	ProjectsCreated.Inc()
	logger.Infof("[Project] Created project %d %q: %d items, %d materials, %d jobs",
		project.ID, project.Name, len(items), len(bom.Materials), len(bom.Jobs))

	project.Items = items
	return &project, nil
}

// buildTrees requests every item's tree concurrently. Results keep the item
// order so the single-threaded merge afterwards is deterministic.
func (s *ProjectService) buildTrees(ctx context.Context, items []models.ProjectItem, excluded []int) ([]ItemTree, error) {
	results := make([]ItemTree, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for i := range items {
		i := i
		g.Go(func() error {
			item := items[i]
			tree, err := s.trees.BuildProductionTree(gctx, item.TypeID, item.Runs, item.MELevel, excluded)
			if err != nil {
				var upstream *UpstreamUnavailableError
				if errors.As(err, &upstream) {
					return err
				}
				return &UpstreamUnavailableError{Service: "tree_builder", Err: fmt.Errorf("type %d: %w", item.TypeID, err)}
			}
			results[i] = ItemTree{Item: item, Tree: tree}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Int("items", len(items)).Msg("[Project] tree build failed")
		return nil, err
	}
	return results, nil
}

func (s *ProjectService) priceMaterials(ctx context.Context, bom *BillOfMaterials) {
	ids := bom.MaterialTypeIDs()
	if len(ids) == 0 || s.prices == nil {
		return
	}
	prices, err := s.prices.GetPrices(ctx, ids)
	if err != nil {
		logger.Warn().Err(err).Int("types", len(ids)).Msg("[Project] pricing unavailable, material prices left empty")
		return
	}
	bom.ApplyPrices(prices)
}

// GetByID returns a project with its items.
func (s *ProjectService) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Owner").
		First(&project, id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListForUser returns the projects the user owns, joined or was invited to.
func (s *ProjectService) ListForUser(ctx context.Context, userID uint, req *ProjectListRequest) (*ProjectListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	memberOf := s.db.Model(&models.ProjectMember{}).
		Select("project_id").
		Where("user_id = ? AND status <> ?", userID, models.MemberStatusDeclined)

	query := s.db.WithContext(ctx).Model(&models.Project{}).Where("id IN (?)", memberOf)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var projects []models.Project
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}

	return &ProjectListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    projects,
	}, nil
}

// GetBOM returns the project's lines split into materials and jobs.
func (s *ProjectService) GetBOM(ctx context.Context, projectID uint) (*BOMView, error) {
	var lines []models.BomItem
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("is_job ASC, type_id ASC, id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}

	view := &BOMView{ProjectID: projectID, Materials: []BomLine{}, Jobs: []BomLine{}}
	for i := range lines {
		line := BomLine{
			BomItem:           lines[i],
			RemainingQuantity: lines[i].RemainingQuantity(),
			EstimatedTotal:    lines[i].EstimatedTotal(),
		}
		if line.IsJob {
			view.Jobs = append(view.Jobs, line)
			continue
		}
		if line.EstimatedTotal != nil {
			view.EstimatedMaterialCost += *line.EstimatedTotal
		} else {
			view.UnpricedMaterials++
		}
		view.Materials = append(view.Materials, line)
	}
	return view, nil
}

// UpdateStatus moves a project along draft -> published -> archived.
func (s *ProjectService) UpdateStatus(ctx context.Context, projectID uint, status string) error {
	allowed := map[string]string{
		models.ProjectStatusPublished: models.ProjectStatusDraft,
		models.ProjectStatusArchived:  models.ProjectStatusPublished,
	}
	from, ok := allowed[status]
	if !ok {
		return newValidationError("status", "must be %s or %s", models.ProjectStatusPublished, models.ProjectStatusArchived)
	}

	result := s.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND status = ?", projectID, from).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var project models.Project
		if err := s.db.WithContext(ctx).Select("id", "status").First(&project, projectID).Error; err != nil {
			return err
		}
		return &InvalidStateTransitionError{Entity: "project", ID: projectID, From: project.Status, To: status}
	}
	return nil
}
