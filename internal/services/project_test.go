package services

import (
	"context"
	"errors"
	"testing"

	"github.com/indyforge/groupindustry/internal/config"
	"github.com/indyforge/groupindustry/internal/models"
)

func newTestProjectService(t *testing.T, trees TreeBuilder, prices PriceProvider) (*ProjectService, *ledgerFixture) {
	t.Helper()
	f := newLedgerFixture(t)
	cfg := config.DefaultConfig()
	cfg.TreeBuilder.MaxParallel = 2
	return NewProjectService(f.db, cfg, trees, prices, NewItemTypeBlacklistResolver(f.db)), f
}

func rifterRequest() *CreateProjectRequest {
	return &CreateProjectRequest{
		Name:          "Frigate batch",
		ContainerName: "Staging Hangar",
		Items: []ProjectItemRequest{
			{TypeID: 587, TypeName: "Rifter", MELevel: 10, TELevel: 20, Runs: 2},
			{TypeID: 585, TypeName: "Slasher", MELevel: 8, TELevel: 16, Runs: 5},
		},
	}
}

func TestCreateProject_PersistsBOMAndOwner(t *testing.T) {
	trees := &fakeTreeBuilder{trees: map[int]*TreeNode{
		587: shipTree(587, 2, 2),
		585: shipTree(585, 5, 4),
	}}
	prices := &fakePriceProvider{prices: map[int]*float64{34: floatPtr(4.2), 35: floatPtr(9.1)}}
	svc, f := newTestProjectService(t, trees, prices)
	ctx := context.Background()

	project, err := svc.Create(ctx, f.owner.UserID, rifterRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if project.Status != models.ProjectStatusDraft {
		t.Errorf("Status = %q, expected draft", project.Status)
	}
	if project.BrokerFeePercent != 3.0 || project.SalesTaxPercent != 3.6 {
		t.Errorf("fees = %v/%v, expected config defaults 3/3.6", project.BrokerFeePercent, project.SalesTaxPercent)
	}
	if len(project.Items) != 2 || project.Items[1].SortOrder != 1 {
		t.Errorf("Items = %+v, expected 2 ordered items", project.Items)
	}

	var owner models.ProjectMember
	must(t, f.db.Where("project_id = ? AND user_id = ?", project.ID, f.owner.UserID).First(&owner).Error)
	if owner.Role != models.MemberRoleOwner || owner.Status != models.MemberStatusAccepted {
		t.Errorf("owner membership = %s/%s, expected owner/accepted", owner.Role, owner.Status)
	}

	view, err := svc.GetBOM(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetBOM() error = %v", err)
	}
	if len(view.Materials) != 3 {
		t.Errorf("materials = %d, expected 3", len(view.Materials))
	}
	// 2 finals + 1 merged component
	if len(view.Jobs) != 3 {
		t.Errorf("jobs = %d, expected 3", len(view.Jobs))
	}
	if view.UnpricedMaterials != 1 {
		t.Errorf("UnpricedMaterials = %d, expected 1 (Mexallon)", view.UnpricedMaterials)
	}
	for _, m := range view.Materials {
		if m.TypeID == 34 && (m.EstimatedPrice == nil || *m.EstimatedPrice != 4.2) {
			t.Errorf("Tritanium price = %v, expected 4.2", m.EstimatedPrice)
		}
		if m.TypeID == 36 && m.EstimatedPrice != nil {
			t.Errorf("Mexallon price = %v, expected nil", *m.EstimatedPrice)
		}
	}

	if prices.calls != 1 {
		t.Errorf("pricing calls = %d, expected one batch", prices.calls)
	}
	if len(prices.asked) != 3 {
		t.Errorf("priced types = %v, expected 3 distinct materials", prices.asked)
	}
}

func TestCreateProject_ExplicitFeesAndBlacklist(t *testing.T) {
	trees := &fakeTreeBuilder{}
	svc, f := newTestProjectService(t, trees, nil)

	req := rifterRequest()
	req.BrokerFeePercent = floatPtr(1.5)
	req.SalesTaxPercent = floatPtr(0)
	req.BlacklistTypeIDs = []int{11399}
	req.BlacklistGroupIDs = []int{1136}

	project, err := svc.Create(context.Background(), f.owner.UserID, req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if project.BrokerFeePercent != 1.5 || project.SalesTaxPercent != 0 {
		t.Errorf("fees = %v/%v, expected 1.5/0", project.BrokerFeePercent, project.SalesTaxPercent)
	}

	// 11399 plus the four seeded fuel blocks of group 1136
	expected := []int{4051, 4246, 4247, 4312, 11399}
	if len(trees.excluded) != len(expected) {
		t.Fatalf("excluded = %v, expected %v", trees.excluded, expected)
	}
	for i := range expected {
		if trees.excluded[i] != expected[i] {
			t.Errorf("excluded[%d] = %d, expected %d", i, trees.excluded[i], expected[i])
		}
	}
}

func TestCreateProject_TreeBuilderFailureRollsBack(t *testing.T) {
	trees := &fakeTreeBuilder{
		trees:  map[int]*TreeNode{587: shipTree(587, 2, 2)},
		errFor: map[int]error{585: errors.New("connection refused")},
	}
	svc, f := newTestProjectService(t, trees, nil)

	var before int64
	f.db.Model(&models.Project{}).Count(&before)

	_, err := svc.Create(context.Background(), f.owner.UserID, rifterRequest())
	if !IsUpstreamUnavailable(err) {
		t.Fatalf("error = %v, expected UpstreamUnavailableError", err)
	}

	var after, items int64
	f.db.Model(&models.Project{}).Count(&after)
	f.db.Model(&models.ProjectItem{}).Count(&items)
	if after != before || items != 0 {
		t.Errorf("projects %d -> %d, items %d; expected nothing persisted", before, after, items)
	}
}

func TestCreateProject_PricingFailureKeepsNullPrices(t *testing.T) {
	trees := &fakeTreeBuilder{trees: map[int]*TreeNode{587: shipTree(587, 2, 2)}}
	prices := &fakePriceProvider{err: &UpstreamUnavailableError{Service: "pricing", Err: errors.New("503")}}
	svc, f := newTestProjectService(t, trees, prices)
	ctx := context.Background()

	req := rifterRequest()
	req.Items = req.Items[:1]
	project, err := svc.Create(ctx, f.owner.UserID, req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	view, err := svc.GetBOM(ctx, project.ID)
	must(t, err)
	for _, m := range view.Materials {
		if m.EstimatedPrice != nil {
			t.Errorf("material %d price = %v, expected nil", m.TypeID, *m.EstimatedPrice)
		}
	}
	if view.UnpricedMaterials != len(view.Materials) {
		t.Errorf("UnpricedMaterials = %d, expected %d", view.UnpricedMaterials, len(view.Materials))
	}
}

func TestCreateProject_Validation(t *testing.T) {
	svc, f := newTestProjectService(t, &fakeTreeBuilder{}, nil)

	tests := []struct {
		name   string
		mutate func(*CreateProjectRequest)
		field  string
	}{
		{"empty name", func(r *CreateProjectRequest) { r.Name = "  " }, "name"},
		{"no items", func(r *CreateProjectRequest) { r.Items = nil }, "items"},
		{"zero runs", func(r *CreateProjectRequest) { r.Items[0].Runs = 0 }, "items[0].runs"},
		{"me too high", func(r *CreateProjectRequest) { r.Items[1].MELevel = 11 }, "items[1].me_level"},
		{"te negative", func(r *CreateProjectRequest) { r.Items[0].TELevel = -2 }, "items[0].te_level"},
		{"bad type", func(r *CreateProjectRequest) { r.Items[0].TypeID = 0 }, "items[0].type_id"},
		{"broker fee", func(r *CreateProjectRequest) { r.BrokerFeePercent = floatPtr(101) }, "broker_fee_percent"},
		{"sales tax", func(r *CreateProjectRequest) { r.SalesTaxPercent = floatPtr(-1) }, "sales_tax_percent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := rifterRequest()
			tt.mutate(req)
			_, err := svc.Create(context.Background(), f.owner.UserID, req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, expected ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, expected %q", verr.Field, tt.field)
			}
		})
	}
}

func TestListForUser(t *testing.T) {
	svc, f := newTestProjectService(t, &fakeTreeBuilder{}, nil)
	ctx := context.Background()

	// Dave is only invited to the fixture project; he declines it.
	must(t, f.db.Model(&f.invited).Update("status", models.MemberStatusDeclined).Error)

	resp, err := svc.ListForUser(ctx, f.alice.UserID, &ProjectListRequest{})
	must(t, err)
	if resp.Total != 1 || resp.Items[0].ID != f.project.ID {
		t.Errorf("alice projects = %+v, expected the fixture project", resp)
	}

	resp, err = svc.ListForUser(ctx, f.invited.UserID, &ProjectListRequest{})
	must(t, err)
	if resp.Total != 0 {
		t.Errorf("declined member sees %d projects, expected 0", resp.Total)
	}

	resp, err = svc.ListForUser(ctx, f.alice.UserID, &ProjectListRequest{Status: models.ProjectStatusArchived})
	must(t, err)
	if resp.Total != 0 {
		t.Errorf("archived filter total = %d, expected 0", resp.Total)
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, f := newTestProjectService(t, &fakeTreeBuilder{}, nil)
	ctx := context.Background()

	if err := svc.UpdateStatus(ctx, f.project.ID, models.ProjectStatusArchived); err != nil {
		t.Fatalf("UpdateStatus(archived) error = %v", err)
	}
	if err := svc.UpdateStatus(ctx, f.project.ID, models.ProjectStatusPublished); !IsInvalidStateTransition(err) {
		t.Errorf("UpdateStatus(published) on archived error = %v, expected InvalidStateTransitionError", err)
	}
	if err := svc.UpdateStatus(ctx, f.project.ID, models.ProjectStatusDraft); !IsValidationError(err) {
		t.Errorf("UpdateStatus(draft) error = %v, expected ValidationError", err)
	}
}
