package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/justinmcgrath168/saas-dental-platform/internal/authz"
	"github.com/justinmcgrath168/saas-dental-platform/internal/handler"
	appmw "github.com/justinmcgrath168/saas-dental-platform/internal/middleware"
	"github.com/justinmcgrath168/saas-dental-platform/internal/session"
	"github.com/justinmcgrath168/saas-dental-platform/internal/store"
	"github.com/justinmcgrath168/saas-dental-platform/internal/subscription"
	"github.com/justinmcgrath168/saas-dental-platform/internal/tenant"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/config"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/database"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/jwtutil"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/logger"
	"github.com/justinmcgrath168/saas-dental-platform/prometheus"
)

func main() {
	conf, err := config.Load("auth-core")
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       conf.Log.Level,
		Environment: conf.Server.Env,
		ServiceName: conf.ServiceName,
	}); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.Info("Configuration loaded", conf.LogConfig()...)

	db, err := database.Connect(&conf.DB)
	if err != nil {
		log.Fatal("Failed to connect to database: " + err.Error())
	}

	ds := store.NewGormStore(db)
	if err := ds.SeedPermissions(context.Background(), authz.Registry()); err != nil {
		log.Fatal("Failed to seed permission catalog: " + err.Error())
	}

	resolver := tenant.NewResolver(ds, conf.Tenancy.RootDomain, conf.Tenancy.DevRootDomain)
	gate := subscription.NewGate(ds)
	subs := subscription.NewService(ds)
	hasher := session.BcryptHasher{}
	assembler := session.NewAssembler(ds, hasher)
	jwt := jwtutil.NewJWTUtil(&conf.JWT)
	tenancy := appmw.NewTenancy(resolver, gate, conf.Tenancy)

	authHandler := handler.NewAuthHandler(assembler, jwt)
	signupHandler := handler.NewSignupHandler(ds, hasher)
	tenantHandler := handler.NewTenantHandler(ds, subs)
	userHandler := handler.NewUserHandler(ds, hasher)
	orgHandler := handler.NewOrgHandler(ds)
	permHandler := handler.NewPermissionHandler()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(appmw.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())
	e.Use(appmw.OptionalAuth(jwt))
	e.Use(tenancy.Middleware())

	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Public routes
	e.POST("/auth/sign-in", authHandler.SignIn)
	e.POST("/auth/idp", authHandler.IdentitySignIn)
	e.POST("/signup", signupHandler.Signup)
	e.GET("/signup/check-subdomain", signupHandler.CheckSubdomain)

	// Authenticated API routes
	api := e.Group("/api")
	api.Use(appmw.Auth(jwt))
	api.Use(appmw.TenantGuard(resolver, gate))

	api.POST("/auth/refresh", authHandler.Refresh)

	api.GET("/tenants", tenantHandler.List, appmw.RequirePermission("tenants:list"))
	api.GET("/tenants/:id", tenantHandler.Get)
	api.PUT("/tenants/:id", tenantHandler.Update)
	api.GET("/tenants/:id/subscriptions", tenantHandler.ListSubscriptions, appmw.RequirePermission("subscriptions:list"))
	api.POST("/tenants/:id/subscriptions", tenantHandler.ActivateSubscription, appmw.RequirePermission("subscriptions:create"))
	api.DELETE("/tenants/:id/subscriptions/:subscription_id", tenantHandler.CancelSubscription, appmw.RequirePermission("subscriptions:cancel"))

	api.GET("/users", userHandler.List, appmw.RequirePermission("users:list"))
	api.POST("/users", userHandler.Create, appmw.RequirePermission("users:create"))
	api.GET("/users/:id", userHandler.Get)
	api.PUT("/users/:id", userHandler.Update, appmw.RequirePermission("users:update"))
	api.PUT("/users/:id/permissions", userHandler.UpdatePermissions, appmw.RequirePermission("users:manage-permissions"))
	api.DELETE("/users/:id", userHandler.Deactivate, appmw.RequirePermission("users:delete"))

	api.GET("/organizations", orgHandler.List, appmw.RequirePermission("organizations:list"))
	api.POST("/organizations", orgHandler.Create, appmw.RequirePermission("organizations:create"))
	api.GET("/organizations/:id", orgHandler.Get, appmw.RequirePermission("organizations:view"))
	api.PUT("/organizations/:id", orgHandler.Update, appmw.RequirePermission("organizations:update"))
	api.GET("/organizations/:id/locations", orgHandler.ListLocations, appmw.RequirePermission("locations:list"))
	api.POST("/organizations/:id/locations", orgHandler.CreateLocation, appmw.RequirePermission("locations:create"))
	api.PUT("/organizations/:id/locations/:location_id", orgHandler.UpdateLocation, appmw.RequirePermission("locations:update"))

	api.GET("/permissions", permHandler.Catalog, appmw.RequirePermission("users:manage-permissions"))
	api.GET("/permissions/roles/:role", permHandler.RoleDefaults, appmw.RequirePermission("users:manage-permissions"))

	log.Info("Starting " + conf.ServiceName + " on port " + conf.Server.Port)
	e.Logger.Fatal(e.Start(":" + conf.Server.Port))
}
