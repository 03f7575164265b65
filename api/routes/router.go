package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recicar/marketplace-backend/api/controllers"
	"github.com/recicar/marketplace-backend/api/middleware"
	cartsvc "github.com/recicar/marketplace-backend/internal/cart"
	catalogsvc "github.com/recicar/marketplace-backend/internal/catalog"
	categoriessvc "github.com/recicar/marketplace-backend/internal/categories"
	checkoutsvc "github.com/recicar/marketplace-backend/internal/checkout"
	orderssvc "github.com/recicar/marketplace-backend/internal/orders"
	searchsvc "github.com/recicar/marketplace-backend/internal/search"
	userssvc "github.com/recicar/marketplace-backend/internal/users"
	vehiclessvc "github.com/recicar/marketplace-backend/internal/vehicles"
	vendorssvc "github.com/recicar/marketplace-backend/internal/vendors"
	wishlistsvc "github.com/recicar/marketplace-backend/internal/wishlist"
	"github.com/recicar/marketplace-backend/pkg/config"
	"github.com/recicar/marketplace-backend/pkg/enums"
	"github.com/recicar/marketplace-backend/pkg/logger"
	"github.com/recicar/marketplace-backend/pkg/metrics"
	"github.com/recicar/marketplace-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the router hands to controllers.
type Services struct {
	Users      userssvc.Service
	Vendors    vendorssvc.Service
	Catalog    catalogsvc.Service
	Search     searchsvc.Service
	Categories categoriessvc.Service
	Vehicles   vehiclessvc.Service
	Cart       cartsvc.Service
	Checkout   checkoutsvc.Service
	Orders     orderssvc.Service
	Wishlist   wishlistsvc.Service
}

// NewRouter wires the full HTTP surface.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	redisClient *redis.Client,
	promRegistry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public storefront.
		r.Get("/search", controllers.Search(svcs.Search, logg))
		r.Get("/search/vehicle", controllers.SearchByVehicle(svcs.Search, logg))
		r.Get("/products", controllers.ProductList(svcs.Search, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(svcs.Catalog, logg))
		r.Get("/categories", controllers.CategoryTree(svcs.Categories, logg))
		r.Get("/categories/{slug}/products", controllers.CategoryProducts(svcs.Categories, logg))
		r.Get("/vehicles/makes", controllers.VehicleMakes(svcs.Vehicles, logg))
		r.Get("/vehicles/models", controllers.VehicleModels(svcs.Vehicles, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.Idempotency(redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Users, logg))
			r.Post("/login", controllers.AuthLogin(svcs.Users, logg))
			r.Post("/password-reset", controllers.PasswordResetRequest(svcs.Users, logg))
			r.Post("/password-reset/confirm", controllers.PasswordResetConfirm(svcs.Users, logg))
			r.With(middleware.Auth(cfg.JWT, logg)).Get("/me", controllers.AuthProfile(svcs.Users, logg))
		})

		r.With(middleware.Idempotency(redisClient, logg)).Post("/vendors/register", controllers.VendorRegister(svcs.Vendors, logg))

		// Authenticated customer surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svcs.Cart, logg))
				r.Delete("/", controllers.CartClear(svcs.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
				r.Put("/items/{productId}", controllers.CartUpdateItem(svcs.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(svcs.Cart, logg))
				r.Get("/count", controllers.CartCount(svcs.Cart, logg))
				r.Get("/validate", controllers.CartValidate(svcs.Cart, logg))
				r.Get("/quote", controllers.CartQuote(svcs.Cart, logg))
			})

			r.Post("/checkout", controllers.Checkout(svcs.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(svcs.Orders, logg))
				r.Get("/{orderNumber}", controllers.OrderDetail(svcs.Orders, logg))
				r.Post("/{orderNumber}/cancel", controllers.OrderCancel(svcs.Orders, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistFetch(svcs.Wishlist, logg))
				r.Get("/count", controllers.WishlistCount(svcs.Wishlist, logg))
				r.Post("/items", controllers.WishlistAdd(svcs.Wishlist, logg))
				r.Delete("/items/{productId}", controllers.WishlistRemove(svcs.Wishlist, logg))
			})
		})

		// Seller surface.
		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(string(enums.UserRoleVendor), logg))
			r.Use(middleware.RequireVendorContext(logg))
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Get("/me", controllers.VendorProfile(svcs.Vendors, logg))
			r.Get("/products", controllers.VendorListProducts(svcs.Catalog, logg))
			r.Post("/products", controllers.VendorCreateProduct(svcs.Catalog, logg))
			r.Get("/products/low-stock", controllers.VendorLowStock(svcs.Catalog, logg))
			r.Patch("/products/{productId}", controllers.VendorUpdateProduct(svcs.Catalog, logg))
			r.Delete("/products/{productId}", controllers.VendorDeleteProduct(svcs.Catalog, logg))
		})

		// Admin surface.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

			r.Route("/vendors", func(r chi.Router) {
				r.Get("/", controllers.AdminVendorList(svcs.Vendors, logg))
				r.Post("/{vendorId}/approve", controllers.AdminVendorApprove(svcs.Vendors, logg))
				r.Post("/{vendorId}/suspend", controllers.AdminVendorSuspend(svcs.Vendors, logg))
			})
			r.Post("/orders/{orderNumber}/advance", controllers.AdminOrderAdvance(svcs.Orders, logg))
		})
	})

	return r
}
