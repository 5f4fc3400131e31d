// Package copies manufactures the physical copy handed over with each loan.
package copies

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const codeAttempts = 10

// ShelfLocations are the labels a new copy may be shelved under.
var ShelfLocations = []string{
	"Estante A1 - Sección Literatura",
	"Estante B2 - Sección Ciencia",
	"Estante C3 - Sección Historia",
	"Estante D1 - Sección Infantil",
	"Depósito General",
}

var conditions = []enums.CopyCondition{enums.CopyConditionNew, enums.CopyConditionUsed}

// Generator creates Copy rows with unique EJ-<bookID>-NNNN codes.
type Generator struct {
	intn func(n int) int
	now  func() time.Time
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{intn: randIntn, now: time.Now}
}

// Create synthesizes and persists a copy of book inside tx.
func (g *Generator) Create(ctx context.Context, tx *gorm.DB, book *models.Book) (*models.Copy, error) {
	if book == nil || book.ID == 0 {
		return nil, fmt.Errorf("book is required")
	}
	code, err := g.code(ctx, tx, book.ID)
	if err != nil {
		return nil, err
	}
	cp := &models.Copy{
		BookID:    book.ID,
		Code:      code,
		Location:  ShelfLocations[g.intn(len(ShelfLocations))],
		Condition: conditions[g.intn(len(conditions))],
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(cp).Error; err != nil {
		return nil, fmt.Errorf("create copy: %w", err)
	}
	cp.Book = *book
	return cp, nil
}

func (g *Generator) code(ctx context.Context, tx *gorm.DB, bookID uint) (string, error) {
	prefix := fmt.Sprintf("EJ-%d-", bookID)
	for range codeAttempts {
		candidate := fmt.Sprintf("%s%d", prefix, 1000+g.intn(9000))
		var n int64
		if err := tx.WithContext(ctx).Model(&models.Copy{}).Where("code = ?", candidate).Count(&n).Error; err != nil {
			return "", fmt.Errorf("check copy code: %w", err)
		}
		if n == 0 {
			return candidate, nil
		}
	}
	return prefix + g.now().Format("150405"), nil
}

func randIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
