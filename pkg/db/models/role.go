package models

import "github.com/biblionet/biblionet-backend/pkg/enums"

// Role is a seeded account role.
type Role struct {
	ID          uint       `gorm:"column:id;primaryKey"`
	Name        enums.Role `gorm:"column:name;type:varchar(32);not null;uniqueIndex"`
	Description string     `gorm:"column:description;not null;default:''"`
}

// SeedRoles returns the role rows every installation needs.
func SeedRoles() []Role {
	return []Role{
		{Name: enums.RoleCustomer, Description: "Usuario de la biblioteca"},
		{Name: enums.RoleLibrarian, Description: "Personal de préstamos, inventario y ventas"},
		{Name: enums.RoleAdmin, Description: "Administración del sistema"},
	}
}
