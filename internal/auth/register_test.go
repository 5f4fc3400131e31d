package auth

import (
	"context"
	"testing"

	"github.com/biblionet/biblionet-backend/internal/audit"
	"github.com/biblionet/biblionet-backend/internal/customers"
	"github.com/biblionet/biblionet-backend/internal/testdb"
	"github.com/biblionet/biblionet-backend/internal/users"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/enums"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/security"
	"github.com/stretchr/testify/require"
)

func validRegistration() RegisterRequest {
	return RegisterRequest{
		FirstName:            " María ",
		LastName:             "Reyes",
		Email:                "Maria@Example.com",
		DNI:                  "0801-1990-12345",
		Address:              "Col. Palmira",
		Phone:                "9999-0000",
		Password:             "lectora-123",
		PasswordConfirmation: "lectora-123",
	}
}

func TestRegisterCreatesUserAndCustomer(t *testing.T) {
	client, conn := testdb.Client(t, "register")
	svc, err := NewRegisterService(RegisterServiceParams{
		Tx:        client,
		Users:     users.NewRepository(conn),
		Customers: customers.NewRepository(conn),
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)

	resp, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	require.Equal(t, "maria@example.com", resp.Customer.Email)
	require.Equal(t, "maría", resp.Customer.FirstName)

	var user models.User
	require.NoError(t, conn.Preload("Role").Where("email = ?", "maria@example.com").First(&user).Error)
	require.Equal(t, enums.RoleCustomer, user.Role.Name)
	ok, err := security.VerifyPassword("lectora-123", user.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	var customer models.Customer
	require.NoError(t, conn.Where("user_id = ?", user.ID).First(&customer).Error)
	require.Equal(t, "0801-1990-12345", customer.DNI)
	require.False(t, customer.Blocked)
}

func TestRegisterValidationAndUniqueness(t *testing.T) {
	client, conn := testdb.Client(t, "register")
	svc, err := NewRegisterService(RegisterServiceParams{
		Tx:        client,
		Users:     users.NewRepository(conn),
		Customers: customers.NewRepository(conn),
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	ctx := context.Background()
	_, err = svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	missing := validRegistration()
	missing.Phone = ""
	short := validRegistration()
	short.Password, short.PasswordConfirmation = "corta", "corta"
	mismatch := validRegistration()
	mismatch.PasswordConfirmation = "otra-clave-1"
	sameEmail := validRegistration()
	sameEmail.DNI = "0801-2000-00000"
	sameDNI := validRegistration()
	sameDNI.Email = "otra@example.com"

	cases := []struct {
		name string
		req  RegisterRequest
		code pkgerrors.Code
		msg  string
	}{
		{"missing field", missing, pkgerrors.CodeValidation, "Completa todos los campos obligatorios."},
		{"short password", short, pkgerrors.CodeValidation, "La contraseña debe tener al menos 8 caracteres."},
		{"mismatch", mismatch, pkgerrors.CodeValidation, "Las contraseñas no coinciden."},
		{"duplicate email", sameEmail, pkgerrors.CodeConflict, "Ya existe una cuenta con ese correo."},
		{"duplicate dni", sameDNI, pkgerrors.CodeConflict, "Ya existe un cliente registrado con ese DNI."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.req)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			require.Equal(t, tc.code, typed.Code())
			require.Equal(t, tc.msg, typed.Message())
		})
	}

	var n int64
	require.NoError(t, conn.Model(&models.Customer{}).Count(&n).Error)
	require.EqualValues(t, 1, n)
}

func TestStaffRegisterAuditsAndGeneratesPassword(t *testing.T) {
	client, conn := testdb.Client(t, "staff")
	admin := testdb.Staff(t, conn, "admin@biblionet.hn", enums.RoleAdmin)
	svc, err := NewStaffRegisterService(StaffRegisterServiceParams{
		Tx:     client,
		Users:  users.NewRepository(conn),
		Audit:  audit.NewRepository(conn),
		Logger: logger.Nop(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := svc.Register(ctx, admin.ID, StaffRegisterRequest{
		FirstName: "Luis", LastName: "Mejía", Email: "Luis@Biblionet.hn", Role: "bibliotecario",
	})
	require.NoError(t, err)
	require.Len(t, resp.TemporaryPassword, 12)
	require.Equal(t, "Empleado luis mejía creado exitosamente.", resp.Message)
	require.Equal(t, enums.RoleLibrarian, resp.User.Role)
	require.True(t, resp.User.FirstLogin)

	var entry models.AuditLogEntry
	require.NoError(t, conn.Order("id DESC").First(&entry).Error)
	require.Equal(t, "REGISTRO EMPLEADO: luis@biblionet.hn como bibliotecario", entry.Action)
	require.NotNil(t, entry.UserID)
	require.Equal(t, admin.ID, *entry.UserID)

	resp, err = svc.Register(ctx, admin.ID, StaffRegisterRequest{
		FirstName: "Rosa", LastName: "Pineda", Email: "rosa@biblionet.hn", Role: "admin", Password: "segura-123",
	})
	require.NoError(t, err)
	require.Empty(t, resp.TemporaryPassword)
	require.Equal(t, enums.RoleAdmin, resp.User.Role)

	_, err = svc.Register(ctx, admin.ID, StaffRegisterRequest{FirstName: "x", LastName: "y", Email: "rosa@biblionet.hn", Role: "admin"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	_, err = svc.Register(ctx, admin.ID, StaffRegisterRequest{FirstName: "x", LastName: "y", Email: "z@biblionet.hn", Role: "cliente"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Register(ctx, admin.ID, StaffRegisterRequest{FirstName: "x", LastName: "y", Email: "z@biblionet.hn", Role: "admin", Password: "corta"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
