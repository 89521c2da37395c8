package services

import (
	"context"
	"time"

	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/pkg/logger"
	"gorm.io/gorm"
)

// SaleService records sales of project output. There is no update or delete;
// corrections are new rows.
type SaleService struct {
	db *gorm.DB
}

func NewSaleService(db *gorm.DB) *SaleService {
	return &SaleService{db: db}
}

type RecordSaleRequest struct {
	TypeID     *int       `json:"type_id"`
	Quantity   int64      `json:"quantity"`
	TotalPrice float64    `json:"total_price"`
	SoldAt     *time.Time `json:"sold_at"`
	Note       string     `json:"note"`
}

type SaleListResponse struct {
	Items        []models.Sale `json:"items"`
	TotalRevenue float64       `json:"total_revenue"`
}

func (s *SaleService) Record(ctx context.Context, projectID, recordedBy uint, req *RecordSaleRequest) (*models.Sale, error) {
	if req.TotalPrice < 0 {
		return nil, newValidationError("total_price", "must not be negative")
	}
	if req.Quantity < 0 {
		return nil, newValidationError("quantity", "must not be negative")
	}

	soldAt := time.Now()
	if req.SoldAt != nil {
		soldAt = *req.SoldAt
	}

	sale := models.Sale{
		ProjectID:  projectID,
		TypeID:     req.TypeID,
		Quantity:   req.Quantity,
		TotalPrice: req.TotalPrice,
		SoldAt:     soldAt,
		RecordedBy: recordedBy,
		Note:       req.Note,
	}
	if err := s.db.WithContext(ctx).Create(&sale).Error; err != nil {
		return nil, err
	}

	logger.Infof("[Sale] Recorded sale %d for project %d: %.2f ISK", sale.ID, projectID, sale.TotalPrice)
	return &sale, nil
}

func (s *SaleService) List(ctx context.Context, projectID uint) (*SaleListResponse, error) {
	var sales []models.Sale
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("sold_at DESC, id DESC").Find(&sales).Error; err != nil {
		return nil, err
	}

	resp := &SaleListResponse{Items: sales}
	for _, sale := range sales {
		resp.TotalRevenue += sale.TotalPrice
	}
	return resp, nil
}
