package auth

import "github.com/biblionet/biblionet-backend/pkg/enums"

// Permission names an action gated by role.
type Permission string

const (
	PermReserveBooks    Permission = "catalogo:reservar"
	PermRequestPurchase Permission = "ventas:solicitar"
	PermViewOwnLoans    Permission = "prestamos:propios"
	PermManageInventory Permission = "inventario:gestionar"
	PermManageLoans     Permission = "prestamos:gestionar"
	PermManageCustomers Permission = "clientes:gestionar"
	PermBlockCustomers  Permission = "clientes:bloquear"
	PermRegisterSales   Permission = "ventas:registrar"
	PermManagePurchases Permission = "compras:gestionar"
	PermManageSuppliers Permission = "proveedores:gestionar"
	PermViewDashboard   Permission = "panel:ver"
	PermManageStaff     Permission = "empleados:gestionar"
	PermManageLoanRules Permission = "reglas:gestionar"
	PermViewAuditLog    Permission = "bitacora:ver"
)

var customerPermissions = []Permission{
	PermReserveBooks,
	PermRequestPurchase,
	PermViewOwnLoans,
}

var librarianPermissions = []Permission{
	PermManageInventory,
	PermManageLoans,
	PermManageCustomers,
	PermBlockCustomers,
	PermRegisterSales,
	PermManagePurchases,
	PermManageSuppliers,
	PermViewDashboard,
}

var adminPermissions = append(append([]Permission{}, librarianPermissions...),
	PermManageStaff,
	PermManageLoanRules,
	PermViewAuditLog,
)

// PermissionsFor lists what role may do. Unknown roles get nothing.
func PermissionsFor(role enums.Role) []Permission {
	switch role {
	case enums.RoleCustomer:
		return customerPermissions
	case enums.RoleLibrarian:
		return librarianPermissions
	case enums.RoleAdmin:
		return adminPermissions
	default:
		return nil
	}
}

// Allows reports whether role holds perm.
func Allows(role enums.Role, perm Permission) bool {
	for _, candidate := range PermissionsFor(role) {
		if candidate == perm {
			return true
		}
	}
	return false
}
