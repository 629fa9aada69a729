package router

import (
	"colmena/internal/config"
	"colmena/internal/handler"
	"colmena/internal/infra"
	"colmena/internal/middleware"
	"colmena/internal/model"
	"colmena/internal/repository"
	"colmena/internal/service"
	"colmena/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil: the category cache and receipt jobs are then disabled.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute))

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	categoriaRepo := repository.NewCategoriaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	var recibos service.ReciboEnqueuer
	if rdb != nil {
		recibos = worker.NewDispatcher(rdb)
	}

	authSvc := service.NewAuthService(usuarioRepo, cfg)
	categoriaSvc := service.NewCategoriaService(categoriaRepo, rdb, cfg.CategoryCacheTTL)
	productoSvc := service.NewProductoService(productoRepo, categoriaRepo)
	ventaSvc := service.NewVentaService(ventaRepo, productoRepo, recibos)
	reporteSvc := service.NewReporteService(ventaRepo, productoRepo, usuarioRepo)
	favoritoSvc := service.NewFavoritoService(usuarioRepo, productoRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	categoriasH := handler.NewCategoriasHandler(categoriaSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	ventasH := handler.NewVentasHandler(ventaSvc, reporteSvc)
	favoritosH := handler.NewFavoritosHandler(favoritoSvc)

	// ── Routes ───────────────────────────────────────────────────────────────
	api := r.Group("/api")

	// Public
	api.GET("/health", handler.Health(db, rdb, mailCB))

	auth := api.Group("/auth", middleware.LoginRateLimiter())
	{
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
	}

	jwtMW := middleware.JWTAuth(cfg.JWTSecret, authSvc)
	adminMW := middleware.RequireRole(model.RolAdministrador)

	// Catalog reads are public; writes are administrador only
	api.GET("/categories", categoriasH.Listar)
	api.GET("/categories/tree", categoriasH.Arbol)
	api.POST("/categories", jwtMW, adminMW, categoriasH.Crear)
	api.PUT("/categories/:id", jwtMW, adminMW, categoriasH.Actualizar)
	api.DELETE("/categories/:id", jwtMW, adminMW, categoriasH.Desactivar)

	api.GET("/subcategories", categoriasH.ListarSubcategorias)
	api.POST("/subcategories", jwtMW, adminMW, categoriasH.CrearSubcategoria)

	prods := api.Group("/products")
	{
		prods.GET("", productosH.Listar)
		prods.GET("/search", productosH.Buscar)
		prods.POST("/by-ids", productosH.PorIDs)
		prods.GET("/alerts", jwtMW, adminMW, productosH.Alertas)
		prods.GET("/:id", productosH.ObtenerPorID)
		prods.GET("/:id/presentaciones", productosH.Presentaciones)
		prods.POST("", jwtMW, adminMW, productosH.Crear)
		prods.PUT("/:id", jwtMW, adminMW, productosH.Actualizar)
		prods.DELETE("/:id", jwtMW, adminMW, productosH.Eliminar)
		prods.DELETE("/:id/presentations/:presentationId", jwtMW, adminMW, productosH.EliminarPresentacion)
	}

	// Sales: any authenticated principal may sell and read
	sales := api.Group("/sales", jwtMW)
	{
		sales.POST("", ventasH.CrearVenta)
		sales.GET("", ventasH.ListarVentas)
		sales.GET("/dashboard", ventasH.Dashboard)
		sales.GET("/sales-by-period", ventasH.VentasPorPeriodo)
		sales.GET("/history", ventasH.Historial)
		sales.GET("/export", adminMW, ventasH.Exportar)
		sales.GET("/:id", ventasH.ObtenerVenta)
	}

	favs := api.Group("/favorites", jwtMW)
	{
		favs.GET("", favoritosH.Listar)
		favs.POST("", favoritosH.Agregar)
		favs.POST("/sync", favoritosH.Sincronizar)
		favs.DELETE("/:productId", favoritosH.Quitar)
	}

	// Swagger UI: only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
