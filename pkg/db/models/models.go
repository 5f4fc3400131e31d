package models

// All lists every persisted model in dependency order, for AutoMigrate in
// sqlite-backed development and tests.
func All() []any {
	return []any{
		&Role{},
		&User{},
		&Customer{},
		&Book{},
		&Copy{},
		&LoanRule{},
		&LoanRuleHistory{},
		&Loan{},
		&Reservation{},
		&SaleRequest{},
		&Sale{},
		&SaleLine{},
		&Supplier{},
		&Purchase{},
		&PurchaseLine{},
		&AuditLogEntry{},
	}
}
