package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/esrailhaque/guestpost-ledger/internal/auth"
	"github.com/esrailhaque/guestpost-ledger/internal/config"
	"github.com/esrailhaque/guestpost-ledger/internal/handlers"
	"github.com/esrailhaque/guestpost-ledger/internal/migrations"
	"github.com/esrailhaque/guestpost-ledger/internal/services"
	"github.com/esrailhaque/guestpost-ledger/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App структура для управления приложением и его зависимостями.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger
	dbPool *pgxpool.Pool
	echo   *echo.Echo
	worker *services.ReconcileWorker

	// Handlers
	userHandler        *handlers.UserHandler
	balanceHandler     *handlers.BalanceHandler
	orderHandler       *handlers.OrderHandler
	fundRequestHandler *handlers.FundRequestHandler
}

// NewApp создаёт и инициализирует новое приложение.
func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: logger,
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initDependencies()
	app.initServer()

	return app, nil
}

// initDatabase инициализирует подключение к базе данных и выполняет миграции.
func (app *App) initDatabase(ctx context.Context) error {
	if app.cfg.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI is required")
	}

	// Применение миграций
	app.logger.Info().Msg("running database migrations")
	sqlDB, err := sql.Open("pgx", app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to open database connection: %w", err)
	}
	defer sqlDB.Close()

	if err := migrations.Run(sqlDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.logger.Info().Msg("migrations completed successfully")

	// Подключение к базе данных через pgxpool
	dbPool, err := pgxpool.New(ctx, app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}

	app.dbPool = dbPool
	app.logger.Info().Msg("successfully connected to database")

	return nil
}

// initDependencies инициализирует все зависимости приложения (storage, services, handlers).
func (app *App) initDependencies() {
	// Storage layer
	userStorage := storage.NewPostgresUserStorage(app.dbPool)
	ledgerStorage := storage.NewPostgresLedgerStorage(app.dbPool)
	orderStorage := storage.NewPostgresOrderStorage(app.dbPool)
	fundRequestStorage := storage.NewPostgresFundRequestStorage(app.dbPool)

	// Service layer
	userService := services.NewUserService(userStorage, app.cfg.JWTSecret, app.cfg.TokenExpiration)
	balanceService := services.NewBalanceService(ledgerStorage)
	orderService := services.NewOrderService(orderStorage, balanceService, app.cfg.DebitTimeout)
	fundRequestService := services.NewFundRequestService(app.dbPool, fundRequestStorage, balanceService)

	// Handler layer
	app.userHandler = handlers.NewUserHandler(userService)
	app.balanceHandler = handlers.NewBalanceHandler(balanceService)
	app.orderHandler = handlers.NewOrderHandler(orderService)
	app.fundRequestHandler = handlers.NewFundRequestHandler(fundRequestService)

	// Фоновая сверка зависших заказов
	app.worker = services.NewReconcileWorker(
		orderStorage,
		ledgerStorage,
		balanceService,
		app.cfg.ReconcileInterval,
		app.cfg.OrderStaleAfter,
		app.logger.With().Str("component", "reconcile_worker").Logger(),
	)
}

// initServer инициализирует HTTP-сервер и настраивает маршруты.
func (app *App) initServer() {
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	// Публичные маршруты (не требуют аутентификации)
	e.POST("/api/user/register", app.userHandler.Register)
	e.POST("/api/user/login", app.userHandler.Login)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Защищённые маршруты (требуют аутентификации)
	protected := e.Group("/api/user")
	protected.Use(auth.JWTMiddleware(app.cfg.JWTSecret))
	protected.GET("/balance", app.balanceHandler.GetBalance)
	protected.GET("/ledger", app.balanceHandler.GetLedger)
	protected.POST("/orders", app.orderHandler.CreateOrder)
	protected.POST("/orders/:id/confirm", app.orderHandler.ConfirmOrder)
	protected.GET("/orders", app.orderHandler.GetOrders)
	protected.POST("/fund-requests", app.fundRequestHandler.Submit)
	protected.GET("/fund-requests", app.fundRequestHandler.ListMine)

	// Административные маршруты (роль admin проверяется на границе)
	admin := e.Group("/api/admin")
	admin.Use(auth.JWTMiddleware(app.cfg.JWTSecret))
	admin.Use(auth.AdminMiddleware())
	admin.GET("/fund-requests", app.fundRequestHandler.ListByStatus)
	admin.POST("/fund-requests/:id/transition", app.fundRequestHandler.Transition)

	app.echo = e
}

// Start запускает приложение.
func (app *App) Start(ctx context.Context) error {
	// Запуск фоновой сверки
	app.worker.Start(ctx)
	app.logger.Info().Msg("reconcile worker started")

	// Запуск сервера
	app.logger.Info().Str("address", app.cfg.RunAddress).Msg("starting server")
	if err := app.echo.Start(app.cfg.RunAddress); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}

	return nil
}

// Shutdown корректно завершает работу приложения.
func (app *App) Shutdown(ctx context.Context) error {
	app.logger.Info().Msg("shutting down server")

	if err := app.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if app.dbPool != nil {
		app.dbPool.Close()
	}

	app.logger.Info().Msg("server gracefully stopped")
	return nil
}
