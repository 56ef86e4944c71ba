package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/mailer"
	"storefront/internal/middleware"
	"storefront/internal/orders"
	"storefront/internal/reviews"
	"storefront/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(cfg.DBName)
	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}
	if err := database.EnsureRefreshTokenIndexes(db); err != nil {
		log.Printf("refresh token index warning: %v", err)
	}

	stripe.Key = cfg.StripeSecretKey

	orderService := orders.NewService(
		store.NewCatalog(db),
		store.NewLedger(db),
		store.NewDirectory(db),
		mailer.New(cfg.ResendAPIKey, cfg.MailFrom),
		store.NewTxnRunner(client),
	)
	reviewService := reviews.NewService(store.NewReviews(db))

	r := gin.Default()
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	authLimiter := middleware.NewRateLimiter(5, 5)

	authRoutes := r.Group("/auth")
	authRoutes.Use(authLimiter.Limit())
	{
		authRoutes.POST("/register", handlers.Register(db, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL))
		authRoutes.POST("/login", handlers.Login(db, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL))
		authRoutes.POST("/refresh", handlers.Refresh(db, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL))
		authRoutes.POST("/logout", handlers.Logout(db))
	}

	authenticated := middleware.Authenticate(cfg.JWTSecret)
	withAccount := middleware.RequireAccount(db)

	// Public catalog.
	r.GET("/products", handlers.GetProducts(db))

	products := r.Group("/products")
	{
		products.GET("/mine", authenticated, withAccount, handlers.GetMyProducts(db))
		products.GET("/admin", authenticated, withAccount, middleware.AdminOnly(), handlers.GetAllProductsAdmin(db))
		products.GET("/:id", handlers.GetProduct(db))
		products.POST("", authenticated, withAccount, handlers.CreateProduct(db))
		products.PUT("/:id", authenticated, withAccount, handlers.UpdateProduct(db))
		products.DELETE("/:id", authenticated, withAccount, handlers.DeleteProduct(db))
		products.PATCH("/:id/stock", authenticated, withAccount, handlers.UpdateStock(db))
		products.POST("/:id/reviews", authenticated, withAccount, handlers.AddReview(reviewService))
		products.GET("/:id/hasPurchased", authenticated, withAccount, handlers.HasPurchased(db))
	}

	orderRoutes := r.Group("/orders")
	orderRoutes.Use(authenticated)
	{
		// Account resolution happens inside the placement flow, so an
		// unknown subject fails there with its own distinct error.
		orderRoutes.POST("", handlers.CreateOrder(orderService))
		orderRoutes.GET("/mine", withAccount, handlers.GetMyOrders(db))
		orderRoutes.GET("", withAccount, middleware.AdminOnly(), handlers.GetOrders(db))
		orderRoutes.PATCH("/:id/status", withAccount, handlers.UpdateOrderStatus(db))
	}

	userRoutes := r.Group("/users")
	userRoutes.Use(authenticated, withAccount)
	{
		userRoutes.GET("/me", handlers.GetMe())
		userRoutes.PATCH("/me", handlers.UpdateMe(db))
		userRoutes.GET("", middleware.AdminOnly(), handlers.GetUsers(db))
		userRoutes.PATCH("/:id/role", middleware.AdminOnly(), handlers.UpdateUserRole(db))
		userRoutes.DELETE("/:id", middleware.AdminOnly(), handlers.DeleteUser(db))
	}

	salesRoutes := r.Group("/sales")
	salesRoutes.Use(authenticated, withAccount, middleware.AdminOnly())
	{
		salesRoutes.GET("/daily", handlers.GetDailySales(db))
		salesRoutes.GET("/monthly", handlers.GetMonthlySales(db))
		salesRoutes.GET("/top-products", handlers.GetTopSellingProducts(db))
		salesRoutes.GET("/category-sales", handlers.GetCategorySales(db))
	}

	r.POST("/payments/checkout-session", handlers.CreateCheckoutSession(cfg.FrontendURL))

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
