// Package testdb opens throwaway sqlite databases with the full schema and
// offers small fixture builders for service tests.
package testdb

import (
	"testing"
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database unique to the calling test.
func Open(t testing.TB, name string) *gorm.DB {
	t.Helper()
	dsn := "file:" + name + "_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, role := range models.SeedRoles() {
		r := role
		if err := conn.Create(&r).Error; err != nil {
			t.Fatalf("seed role %s: %v", r.Name, err)
		}
	}
	return conn
}

// Client wraps Open in a *db.Client for services that own transactions.
func Client(t testing.TB, name string) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t, name)
	return db.FromConn(conn), conn
}

// RoleID looks up a seeded role.
func RoleID(t testing.TB, conn *gorm.DB, role enums.Role) uint {
	t.Helper()
	var r models.Role
	if err := conn.Where("name = ?", role).First(&r).Error; err != nil {
		t.Fatalf("role %s: %v", role, err)
	}
	return r.ID
}

// Staff creates an active staff user.
func Staff(t testing.TB, conn *gorm.DB, email string, role enums.Role) *models.User {
	t.Helper()
	user := &models.User{
		RoleID:       RoleID(t, conn, role),
		FirstName:    "ana",
		LastName:     "lopez",
		Email:        email,
		PasswordHash: "x",
		Status:       enums.RecordStatusActive,
	}
	if err := conn.Omit(clause.Associations).Create(user).Error; err != nil {
		t.Fatalf("create staff: %v", err)
	}
	return user
}

// Customer creates an active customer and its user.
func Customer(t testing.TB, conn *gorm.DB, dni string) *models.Customer {
	t.Helper()
	user := &models.User{
		RoleID:       RoleID(t, conn, enums.RoleCustomer),
		FirstName:    "maria",
		LastName:     "reyes",
		Email:        dni + "@example.com",
		PasswordHash: "x",
		Status:       enums.RecordStatusActive,
	}
	if err := conn.Omit(clause.Associations).Create(user).Error; err != nil {
		t.Fatalf("create customer user: %v", err)
	}
	customer := &models.Customer{
		UserID:  user.ID,
		DNI:     dni,
		Address: "Col. Palmira",
		Phone:   "9999-0000",
		Status:  enums.RecordStatusActive,
	}
	if err := conn.Omit(clause.Associations).Create(customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	customer.User = *user
	return customer
}

// Book creates a title with the given stock, priced at 100 with 15% tax.
func Book(t testing.TB, conn *gorm.DB, isbn string, stock int) *models.Book {
	t.Helper()
	book := &models.Book{
		ISBN:            isbn,
		Title:           "Cien años de soledad " + isbn,
		Author:          "Gabriel García Márquez",
		Category:        "Novela",
		Publisher:       "Sudamericana",
		PublicationYear: 1967,
		Stock:           stock,
		SalePrice:       decimal.NewFromInt(100),
		TaxPercent:      decimal.NewFromInt(15),
	}
	if err := conn.Create(book).Error; err != nil {
		t.Fatalf("create book: %v", err)
	}
	return book
}

// LoanRule stores the current rule.
func LoanRule(t testing.TB, conn *gorm.DB, termDays, maxLoans int, dailyFee string) *models.LoanRule {
	t.Helper()
	rule := &models.LoanRule{
		ID:             models.CurrentLoanRuleID,
		TermDays:       termDays,
		MaxActiveLoans: maxLoans,
		DailyFee:       decimal.RequireFromString(dailyFee),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := conn.Create(rule).Error; err != nil {
		t.Fatalf("create loan rule: %v", err)
	}
	return rule
}

// Loan creates an active loan over a fresh copy of book.
func Loan(t testing.TB, conn *gorm.DB, customerID uint, book *models.Book, start, due time.Time) *models.Loan {
	t.Helper()
	cp := &models.Copy{
		BookID:    book.ID,
		Code:      "EJ-T-" + uuid.NewString()[:8],
		Location:  "Depósito General",
		Condition: enums.CopyConditionNew,
	}
	if err := conn.Omit(clause.Associations).Create(cp).Error; err != nil {
		t.Fatalf("create copy: %v", err)
	}
	loan := &models.Loan{
		CustomerID: customerID,
		CopyID:     cp.ID,
		StartDate:  start,
		DueDate:    due,
		Status:     enums.LoanStatusActive,
	}
	if err := conn.Omit(clause.Associations).Create(loan).Error; err != nil {
		t.Fatalf("create loan: %v", err)
	}
	return loan
}

// FixedClock pins "now" for services that read the calendar.
func FixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}
