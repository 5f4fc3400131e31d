// Package stock adjusts a book's aggregate stock with single-statement
// conditional updates so concurrent loans and sales cannot drive it negative.
package stock

import (
	"context"
	"fmt"

	"github.com/biblionet/biblionet-backend/pkg/db/models"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"gorm.io/gorm"
)

// ErrInsufficient is returned when the book has fewer units than requested.
var ErrInsufficient = pkgerrors.New(pkgerrors.CodeStateConflict, "No hay stock disponible para este libro.")

// Decrement takes qty units from the book, only if that many are on hand.
func Decrement(ctx context.Context, tx *gorm.DB, bookID uint, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "La cantidad debe ser mayor a cero.")
	}
	res := tx.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND stock >= ?", bookID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "actualizar stock")
	}
	if res.RowsAffected == 0 {
		return ErrInsufficient
	}
	return nil
}

// Increment returns qty units to the book.
func Increment(ctx context.Context, tx *gorm.DB, bookID uint, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "La cantidad debe ser mayor a cero.")
	}
	res := tx.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", bookID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "actualizar stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("No se encontró el libro %d.", bookID))
	}
	return nil
}
