package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/biblionet/biblionet-backend/api/controllers"
	"github.com/biblionet/biblionet-backend/api/middleware"
	"github.com/biblionet/biblionet-backend/internal/audit"
	"github.com/biblionet/biblionet-backend/internal/auth"
	"github.com/biblionet/biblionet-backend/internal/catalog"
	"github.com/biblionet/biblionet-backend/internal/customers"
	"github.com/biblionet/biblionet-backend/internal/dashboard"
	"github.com/biblionet/biblionet-backend/internal/loanrules"
	"github.com/biblionet/biblionet-backend/internal/loans"
	"github.com/biblionet/biblionet-backend/internal/purchases"
	"github.com/biblionet/biblionet-backend/internal/reservations"
	"github.com/biblionet/biblionet-backend/internal/salerequests"
	"github.com/biblionet/biblionet-backend/internal/sales"
	"github.com/biblionet/biblionet-backend/internal/suppliers"
	pkgAuth "github.com/biblionet/biblionet-backend/pkg/auth"
	"github.com/biblionet/biblionet-backend/pkg/auth/session"
	"github.com/biblionet/biblionet-backend/pkg/config"
	"github.com/biblionet/biblionet-backend/pkg/db/models"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/metrics"
	pkgredis "github.com/biblionet/biblionet-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

type customerBlocker interface {
	BlockManual(ctx context.Context, actorID, customerID uint, reason string) (*models.Customer, error)
	Unblock(ctx context.Context, actorID, customerID uint) (*models.Customer, error)
}

type rateStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type keyedLimiter interface {
	Allow(key string) bool
}

// Deps is everything the HTTP surface needs. Nil services answer 500 on
// their routes rather than panicking.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	RateStore   rateStore
	Idempotency pkgredis.IdempotencyStore
	Limiter     keyedLimiter
	Sessions    sessionManager
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Auth         auth.Service
	Register     auth.RegisterService
	Staff        auth.StaffRegisterService
	Catalog      catalog.Service
	Loans        loans.Service
	LoanRules    loanrules.Service
	Customers    customers.Service
	Blocks       customerBlocker
	Reservations reservations.Service
	SaleRequests salerequests.Service
	Sales        sales.Service
	Suppliers    suppliers.Service
	Purchases    purchases.Service
	Dashboard    dashboard.Service
	Audit        audit.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		chimw.StripSlashes,
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
		"email",
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
		"email", "dni",
	)
	var loginLimit, registerLimit func(http.Handler) http.Handler
	if d.RateStore != nil {
		loginLimit = middleware.AuthRateLimit(loginPolicy, d.RateStore, logg)
		registerLimit = middleware.AuthRateLimit(registerPolicy, d.RateStore, logg)
	} else {
		loginLimit = passThrough
		registerLimit = passThrough
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Public surface.
	r.Get("/catalogo", controllers.CatalogBrowse(d.Catalog, logg))
	r.Get("/catalogo/buscar", controllers.CatalogSearch(d.Catalog, logg))
	r.Get("/catalogo/{id}", controllers.CatalogDetail(d.Catalog, logg))
	r.With(registerLimit).Post("/registro", controllers.AuthRegister(d.Register, d.Auth, logg))
	r.With(loginLimit).Post("/login", controllers.AuthLogin(d.Auth, logg))
	r.With(loginLimit).Post("/seguridad/login", controllers.StaffLogin(d.Auth, logg))
	r.Post("/auth/refresh", controllers.AuthRefresh(d.Sessions, cfg.JWT, logg))
	r.Post("/auth/logout", controllers.AuthLogout(d.Sessions, cfg.JWT, logg))

	// Idempotency needs the fully resolved route pattern, so it sits on the
	// innermost groups rather than the outer authenticated group.
	idempotent := middleware.Idempotency(d.Idempotency, cfg.Sales.IdempotencyTTL, logg)

	// Authenticated surface.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.RateLimit(d.Limiter, logg))

		r.Post("/auth/password", controllers.ChangePassword(d.Auth, logg))

		// Customer.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCustomer(logg))

			r.With(middleware.RequirePermission(pkgAuth.PermReserveBooks, logg)).
				Post("/catalogo/{id}/reservar", controllers.ReservationCreate(d.Reservations, logg))
			r.With(middleware.RequirePermission(pkgAuth.PermReserveBooks, logg)).Route("/reservas", func(r chi.Router) {
				r.Get("/", controllers.ReservationListOwn(d.Reservations, logg))
				r.Post("/{id}/cancelar", controllers.ReservationCancel(d.Reservations, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(pkgAuth.PermRequestPurchase, logg))
				r.Post("/reservas/{id}/solicitar-factura", controllers.SaleRequestFromReservation(d.SaleRequests, logg))
				r.Post("/libros/{id}/solicitar-factura", controllers.SaleRequestFromBook(d.SaleRequests, logg))
				r.Get("/solicitudes", controllers.SaleRequestListOwn(d.SaleRequests, logg))
				r.Post("/solicitudes/{id}/cancelar", controllers.SaleRequestCancel(d.SaleRequests, logg))
			})

			r.With(middleware.RequirePermission(pkgAuth.PermViewOwnLoans, logg)).
				Get("/prestamos", controllers.LoansListOwn(d.Loans, logg))
		})

		// Staff.
		r.Route("/seguridad", func(r chi.Router) {
			r.With(middleware.RequirePermission(pkgAuth.PermViewDashboard, logg)).
				Get("/panel", controllers.DashboardPanel(d.Dashboard, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(pkgAuth.PermManageInventory, logg))
				r.Get("/inventario", controllers.InventoryList(d.Catalog, logg))
				r.Post("/inventario", controllers.InventoryCreate(d.Catalog, logg))
				r.Put("/inventario/{id}", controllers.InventoryUpdate(d.Catalog, logg))
				r.Post("/inventario/{id}/portada", controllers.InventoryUploadCover(d.Catalog, cfg.Catalog.MaxCoverBytes(), logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(pkgAuth.PermManageLoans, logg))
				r.Get("/prestamos", controllers.LoansListActive(d.Loans, logg))
				r.Post("/prestamos/registrar", controllers.LoansIssue(d.Loans, logg))
				r.Post("/prestamos/{id}/devolver", controllers.LoansReturn(d.Loans, logg))
				r.Post("/prestamos/{id}/renovar", controllers.LoansRenew(d.Loans, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(pkgAuth.PermManageCustomers, logg))
				r.Get("/clientes", controllers.CustomersList(d.Customers, logg))
				r.Get("/clientes/{id}", controllers.CustomersGet(d.Customers, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(pkgAuth.PermBlockCustomers, logg))
				r.Get("/clientes/{id}/bloquear", controllers.CustomerBlock(d.Blocks, logg))
				r.Post("/clientes/{id}/bloquear", controllers.CustomerBlock(d.Blocks, logg))
				r.Get("/clientes/{id}/desbloquear", controllers.CustomerUnblock(d.Blocks, logg))
				r.Post("/clientes/{id}/desbloquear", controllers.CustomerUnblock(d.Blocks, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(pkgAuth.PermRegisterSales, logg), idempotent)
				r.Get("/ventas", controllers.SaleList(d.Sales, logg))
				r.Get("/ventas/solicitudes", controllers.SaleRequestListPending(d.SaleRequests, logg))
				r.Get("/ventas/{id}", controllers.SaleGet(d.Sales, logg))
				r.Post("/ventas/facturar/{id}", controllers.SaleInvoiceRequest(d.Sales, logg))
				r.Post("/ventas/realizar", controllers.SaleWalkIn(d.Sales, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(pkgAuth.PermManageSuppliers, logg))
				r.Get("/proveedores", controllers.SupplierList(d.Suppliers, logg))
				r.Post("/proveedores", controllers.SupplierCreate(d.Suppliers, logg))
				r.Post("/proveedores/{id}/estado", controllers.SupplierSetStatus(d.Suppliers, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(pkgAuth.PermManagePurchases, logg), idempotent)
				r.Get("/compras", controllers.PurchaseList(d.Purchases, logg))
				r.Post("/compras", controllers.PurchaseCreate(d.Purchases, logg))
			})

			r.With(middleware.RequirePermission(pkgAuth.PermManageStaff, logg)).
				Post("/empleados", controllers.StaffRegister(d.Staff, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(pkgAuth.PermManageLoanRules, logg))
				r.Get("/reglas", controllers.LoanRuleCurrent(d.LoanRules, logg))
				r.Put("/reglas", controllers.LoanRuleUpdate(d.LoanRules, logg))
				r.Get("/reglas/historial", controllers.LoanRuleHistory(d.LoanRules, logg))
			})

			r.With(middleware.RequirePermission(pkgAuth.PermViewAuditLog, logg)).
				Get("/bitacora", controllers.AuditLog(d.Audit, logg))
		})
	})

	return r
}

func passThrough(next http.Handler) http.Handler { return next }
