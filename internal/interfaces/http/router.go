package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/inventario-bom/internal/application/conversion"
	"github.com/jhoicas/inventario-bom/internal/application/inventory"
	"github.com/jhoicas/inventario-bom/internal/application/usecase"
	"github.com/jhoicas/inventario-bom/pkg/jwt"
	"github.com/jhoicas/inventario-bom/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ItemUC        *usecase.ItemUseCase
	ProductUC     *inventory.ProductUseCase
	BreakdownUC   *inventory.BreakdownUseCase
	RebuildUC     *inventory.RebuildUseCase
	TransactionUC *inventory.TransactionUseCase
	ConversionUC  *conversion.UseCase
	Gatherer      prometheus.Gatherer // nil = sin /metrics
	JWTSecret     string
	AppName       string
	Logger        *logger.Logger // nil = sin log de acceso
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Logger != nil {
		app.Use(RequestLogger(deps.Logger))
	}
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	read := RequireRole(jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleViewer)
	write := RequireRole(jwt.RoleAdmin, jwt.RoleOperator)
	adminOnly := RequireRole(jwt.RoleAdmin)

	itemHandler := NewItemHandler(deps.ItemUC)
	inventoryHandler := NewInventoryHandler(deps.BreakdownUC, deps.RebuildUC, deps.TransactionUC)

	// Items
	items := protected.Group("/items")
	items.Get("/", read, itemHandler.List)
	items.Post("/", write, itemHandler.Create)
	items.Get("/:id", read, itemHandler.GetByID)
	items.Put("/:id", write, itemHandler.Update)
	items.Delete("/:id", write, itemHandler.Delete)
	items.Get("/:id/lineage", read, itemHandler.Lineage)
	items.Post("/:id/breakdown", write, inventoryHandler.Breakdown)
	items.Post("/:id/rebuild-stock", write, inventoryHandler.RebuildItemStock)

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", write, productHandler.Create)
	products.Post("/:id/builds", write, productHandler.Build)
	products.Post("/:id/reprice", write, productHandler.Reprice)

	// Compras, ventas y reconciliación masiva
	protected.Post("/purchases", write, inventoryHandler.RegisterPurchase)
	protected.Post("/sales", write, inventoryHandler.RegisterSale)
	protected.Post("/inventory/rebuild-stock", adminOnly, inventoryHandler.RebuildAllStock)

	// Conversión de datos legados
	conversions := protected.Group("/conversions")
	conversionHandler := NewConversionHandler(deps.ConversionUC)
	conversions.Post("/", adminOnly, conversionHandler.Trigger)
	conversions.Get("/", write, conversionHandler.List)
	conversions.Get("/:id", write, conversionHandler.GetStatus)
}
