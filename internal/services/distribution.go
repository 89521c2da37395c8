package services

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/indyforge/groupindustry/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UnknownCharacterName labels members whose account has no character name.
const UnknownCharacterName = "Unknown Character"

var hundred = decimal.NewFromInt(100)

// DistributionContribution is one approved contribution as seen by the calculator.
type DistributionContribution struct {
	MemberID       uint
	CharacterName  string
	Type           string
	EstimatedValue float64
}

type DistributionInput struct {
	ProjectID        uint
	BrokerFeePercent float64
	SalesTaxPercent  float64
	SaleTotals       []float64
	Contributions    []DistributionContribution // approved only
}

type MemberDistribution struct {
	MemberID          uint    `json:"member_id"`
	CharacterName     string  `json:"character_name"`
	TotalCostsEngaged float64 `json:"total_costs_engaged"`
	MaterialCosts     float64 `json:"material_costs"`
	JobInstallCosts   float64 `json:"job_install_costs"`
	BpcCosts          float64 `json:"bpc_costs"`
	LineRentalCosts   float64 `json:"line_rental_costs"`
	SharePercent      float64 `json:"share_percent"`
	ProfitPart        float64 `json:"profit_part"`
	PayoutTotal       float64 `json:"payout_total"`
}

type DistributionResult struct {
	ProjectID        uint                 `json:"project_id"`
	TotalRevenue     float64              `json:"total_revenue"`
	BrokerFee        float64              `json:"broker_fee"`
	SalesTax         float64              `json:"sales_tax"`
	NetRevenue       float64              `json:"net_revenue"`
	TotalProjectCost float64              `json:"total_project_cost"`
	MarginPercent    float64              `json:"margin_percent"`
	Members          []MemberDistribution `json:"members"`
	CalculatedAt     time.Time            `json:"calculated_at"`
}

type memberTotals struct {
	name     string
	total    decimal.Decimal
	byType   map[string]decimal.Decimal
	memberID uint
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// ComputeDistribution splits net revenue among members in proportion to their
// approved costs. Each payout is the member's cost plus their share of the
// profit (or loss), so payouts always add up to net revenue. With no approved
// cost there is nothing to split and the member list is empty.
func ComputeDistribution(in DistributionInput) *DistributionResult {
	totalRevenue := decimal.Zero
	for _, t := range in.SaleTotals {
		totalRevenue = totalRevenue.Add(decimal.NewFromFloat(t))
	}
	brokerFee := totalRevenue.Mul(decimal.NewFromFloat(in.BrokerFeePercent)).Div(hundred)
	salesTax := totalRevenue.Mul(decimal.NewFromFloat(in.SalesTaxPercent)).Div(hundred)
	netRevenue := totalRevenue.Sub(brokerFee).Sub(salesTax)

	members := make(map[uint]*memberTotals)
	totalCost := decimal.Zero
	for _, c := range in.Contributions {
		value := decimal.NewFromFloat(c.EstimatedValue)
		totalCost = totalCost.Add(value)

		m, ok := members[c.MemberID]
		if !ok {
			m = &memberTotals{memberID: c.MemberID, name: c.CharacterName, byType: make(map[string]decimal.Decimal)}
			members[c.MemberID] = m
		}
		if m.name == "" {
			m.name = c.CharacterName
		}
		m.total = m.total.Add(value)
		m.byType[c.Type] = m.byType[c.Type].Add(value)
	}

	result := &DistributionResult{
		ProjectID:        in.ProjectID,
		TotalRevenue:     money(totalRevenue),
		BrokerFee:        money(brokerFee),
		SalesTax:         money(salesTax),
		NetRevenue:       money(netRevenue),
		TotalProjectCost: money(totalCost),
		Members:          []MemberDistribution{},
	}
	if !totalCost.IsPositive() {
		return result
	}

	profit := netRevenue.Sub(totalCost)
	result.MarginPercent = profit.Div(totalCost).Round(6).InexactFloat64()

	for _, m := range members {
		fraction := m.total.Div(totalCost)
		profitPart := fraction.Mul(profit)

		name := m.name
		if name == "" {
			name = UnknownCharacterName
		}
		result.Members = append(result.Members, MemberDistribution{
			MemberID:          m.memberID,
			CharacterName:     name,
			TotalCostsEngaged: money(m.total),
			MaterialCosts:     money(m.byType[models.ContributionTypeMaterial]),
			JobInstallCosts:   money(m.byType[models.ContributionTypeJobInstall]),
			BpcCosts:          money(m.byType[models.ContributionTypeBPC]),
			LineRentalCosts:   money(m.byType[models.ContributionTypeLineRental]),
			SharePercent:      fraction.Mul(hundred).Round(4).InexactFloat64(),
			ProfitPart:        money(profitPart),
			PayoutTotal:       money(m.total.Add(profitPart)),
		})
	}

	sort.Slice(result.Members, func(i, j int) bool {
		a, b := result.Members[i], result.Members[j]
		if a.TotalCostsEngaged != b.TotalCostsEngaged {
			return a.TotalCostsEngaged > b.TotalCostsEngaged
		}
		return a.MemberID < b.MemberID
	})
	return result
}

// DistributionService loads a consistent snapshot of a project and runs the calculator.
// distributionSnapshot makes every read of a calculation see the same point
// in time. Drivers without isolation levels (sqlite) ignore it.
var distributionSnapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

type DistributionService struct {
	db *gorm.DB
}

func NewDistributionService(db *gorm.DB) *DistributionService {
	return &DistributionService{db: db}
}

type approvedContributionRow struct {
	MemberID       uint
	CharacterName  string
	Type           string
	EstimatedValue float64
}

// Calculate reads the project, its approved contributions and its sales in one
// read transaction so a concurrent approval can't change the cost mid-way.
func (s *DistributionService) Calculate(ctx context.Context, projectID uint) (*DistributionResult, error) {
	started := time.Now()
	defer func() { DistributionDuration.Observe(time.Since(started).Seconds()) }()

	var in DistributionInput
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Select("id", "broker_fee_percent", "sales_tax_percent").First(&project, projectID).Error; err != nil {
			return err
		}

		var rows []approvedContributionRow
		err := tx.Table("contributions AS c").
			Select("c.member_id, u.character_name, c.type, c.estimated_value").
			Joins("JOIN project_members AS pm ON pm.id = c.member_id").
			Joins("LEFT JOIN users AS u ON u.id = pm.user_id AND u.deleted_at IS NULL").
			Where("c.project_id = ? AND c.status = ?", projectID, models.ContributionStatusApproved).
			Order("c.id ASC").
			Scan(&rows).Error
		if err != nil {
			return err
		}

		var saleTotals []float64
		if err := tx.Model(&models.Sale{}).Where("project_id = ?", projectID).Order("id ASC").Pluck("total_price", &saleTotals).Error; err != nil {
			return err
		}

		in = DistributionInput{
			ProjectID:        project.ID,
			BrokerFeePercent: project.BrokerFeePercent,
			SalesTaxPercent:  project.SalesTaxPercent,
			SaleTotals:       saleTotals,
			Contributions:    make([]DistributionContribution, len(rows)),
		}
		for i, r := range rows {
			in.Contributions[i] = DistributionContribution(r)
		}
		return nil
	}, distributionSnapshot)
	if err != nil {
		return nil, err
	}

	result := ComputeDistribution(in)
	result.CalculatedAt = time.Now()
	return result, nil
}
