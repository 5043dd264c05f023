package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"meetbarter/internal/models"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(event string, userIDs []uint, payload map[string]interface{}) {
	p.events = append(p.events, event)
}

type testEngine struct {
	db     *gorm.DB
	ledger *LedgerService
	escrow *EscrowCoordinator
	trades *TradeService
	pub    *recordingPublisher
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Trade{},
		&models.TimelineEntry{},
		&models.EscrowHold{},
		&models.LedgerEntry{},
		&models.ReputationEvent{},
		&models.Dispute{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ledger := NewLedgerService(db)
	escrow := NewEscrowCoordinator(ledger)
	reputation := NewReputationService(db, nil)
	pub := &recordingPublisher{}
	trades := NewTradeService(db, ledger, escrow, reputation, pub)

	return &testEngine{db: db, ledger: ledger, escrow: escrow, trades: trades, pub: pub}
}

func (e *testEngine) createUser(t *testing.T, name string, balance int64) *models.User {
	t.Helper()
	user := models.User{
		FullName:    name,
		Email:       name + "@example.com",
		Password:    "hashed",
		PhoneNumber: "+15550000000",
	}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	if balance > 0 {
		if err := e.db.Model(&user).Update("wallet_balance", balance).Error; err != nil {
			t.Fatalf("fund user %s: %v", name, err)
		}
	}
	return &user
}

func (e *testEngine) createAdmin(t *testing.T) *models.User {
	t.Helper()
	admin := models.User{
		FullName: "Admin",
		Email:    "admin@example.com",
		Password: "hashed",
		Role:     "admin",
	}
	if err := e.db.Create(&admin).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return &admin
}

func (e *testEngine) createListing(t *testing.T, sellerID uint, priceVP int64) *models.Listing {
	t.Helper()
	listing := models.Listing{
		SellerID:           sellerID,
		Title:              "Road bike",
		OriginalPrice:      priceVP,
		PriceVP:            priceVP,
		Condition:          models.ConditionNew,
		AuthenticityStatus: models.AuthenticityUnverified,
		EscrowPercentage:   15,
		Status:             models.ListingActive,
	}
	if err := e.db.Create(&listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return &listing
}

func (e *testEngine) balance(t *testing.T, userID uint) int64 {
	t.Helper()
	var user models.User
	if err := e.db.First(&user, userID).Error; err != nil {
		t.Fatalf("load user %d: %v", userID, err)
	}
	return user.WalletBalance
}
