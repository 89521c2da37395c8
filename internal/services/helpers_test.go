package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/indyforge/groupindustry/internal/config"
	"github.com/indyforge/groupindustry/internal/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return openTestDB(t, fmt.Sprintf("file:%s?mode=memory&cache=shared", name), 1)
}

// newConcurrentTestDB is a file database with a connection pool, for tests
// that race transactions against each other. Writers take the database lock
// at BEGIN and wait for each other instead of failing with SQLITE_BUSY.
func newConcurrentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ledger.db") + "?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate"
	return openTestDB(t, dsn, 8)
}

func openTestDB(t *testing.T, dsn string, maxConns int) *gorm.DB {
	t.Helper()

	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := models.Seed(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func floatPtr(v float64) *float64 { return &v }

type fakeTreeBuilder struct {
	mu       sync.Mutex
	trees    map[int]*TreeNode
	errFor   map[int]error
	excluded []int
	calls    int
}

func (f *fakeTreeBuilder) BuildProductionTree(_ context.Context, productTypeID int, runs int64, _ int, excludedTypeIDs []int) (*TreeNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.excluded = excludedTypeIDs
	if err := f.errFor[productTypeID]; err != nil {
		return nil, err
	}
	tree, ok := f.trees[productTypeID]
	if !ok {
		return &TreeNode{ProductTypeID: productTypeID, Runs: runs}, nil
	}
	return tree, nil
}

type fakePriceProvider struct {
	mu     sync.Mutex
	prices map[int]*float64
	err    error
	calls  int
	asked  []int
}

func (f *fakePriceProvider) GetPrices(_ context.Context, typeIDs []int) (map[int]*float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.asked = append([]int(nil), typeIDs...)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int]*float64, len(typeIDs))
	for _, id := range typeIDs {
		out[id] = f.prices[id]
	}
	return out, nil
}

// ledgerFixture is a published project with three accepted members, one
// invited user, a priced material line and a manufacturing job line.
type ledgerFixture struct {
	db       *gorm.DB
	project  models.Project
	owner    models.ProjectMember
	alice    models.ProjectMember
	bob      models.ProjectMember
	carol    models.ProjectMember
	invited  models.ProjectMember
	material models.BomItem
	job      models.BomItem
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	return newLedgerFixtureOn(t, newTestDB(t))
}

func newLedgerFixtureOn(t *testing.T, db *gorm.DB) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{db: db}

	users := []models.User{
		{Username: "owner", CharacterName: "Owner Prime"},
		{Username: "alice", CharacterName: "Alice"},
		{Username: "bob", CharacterName: "Bob"},
		{Username: "carol", CharacterName: ""},
		{Username: "dave", CharacterName: "Dave"},
	}
	must(t, db.Create(&users).Error)

	f.project = models.Project{
		OwnerID:             users[0].ID,
		Name:                "Rifter fleet",
		BrokerFeePercent:    3,
		SalesTaxPercent:     2,
		LineRentalOverrides: map[string]float64{models.ActivityManufacturing: 1500},
		Status:              models.ProjectStatusPublished,
	}
	must(t, db.Create(&f.project).Error)

	mk := func(u models.User, role, status string) models.ProjectMember {
		m := models.ProjectMember{ProjectID: f.project.ID, UserID: u.ID, Role: role, Status: status}
		must(t, db.Create(&m).Error)
		return m
	}
	f.owner = mk(users[0], models.MemberRoleOwner, models.MemberStatusAccepted)
	f.alice = mk(users[1], models.MemberRoleMember, models.MemberStatusAccepted)
	f.bob = mk(users[2], models.MemberRoleMember, models.MemberStatusAccepted)
	f.carol = mk(users[3], models.MemberRoleMember, models.MemberStatusAccepted)
	f.invited = mk(users[4], models.MemberRoleMember, models.MemberStatusInvited)

	f.material = models.BomItem{
		ProjectID:        f.project.ID,
		TypeID:           34,
		TypeName:         "Tritanium",
		RequiredQuantity: 10000,
		EstimatedPrice:   floatPtr(5),
	}
	f.job = models.BomItem{
		ProjectID:        f.project.ID,
		TypeID:           587,
		TypeName:         "Rifter",
		IsJob:            true,
		JobGroup:         models.JobGroupFinal,
		ActivityType:     models.ActivityManufacturing,
		RequiredQuantity: 10,
		MELevel:          10,
		TELevel:          20,
	}
	must(t, db.Create(&f.material).Error)
	must(t, db.Create(&f.job).Error)
	return f
}

func (f *ledgerFixture) fulfilled(t *testing.T, id uint) int64 {
	t.Helper()
	var item models.BomItem
	must(t, f.db.First(&item, id).Error)
	return item.FulfilledQuantity
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
