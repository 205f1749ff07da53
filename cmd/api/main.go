package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodgram/foodgram-api/internal/api"
	"github.com/foodgram/foodgram-api/internal/auth"
	"github.com/foodgram/foodgram-api/internal/config"
	"github.com/foodgram/foodgram-api/internal/logger"
	"github.com/foodgram/foodgram-api/internal/platform/imagestore"
	"github.com/foodgram/foodgram-api/internal/platform/pdfreport"
	"github.com/foodgram/foodgram-api/internal/recipe"
	"github.com/foodgram/foodgram-api/internal/service"
	"github.com/foodgram/foodgram-api/internal/validation"
)

func main() {
	cfg, err := config.Load("config.json")
	if err == nil {
		err = cfg.ValidateServer()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := recipe.NewSQLStore(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("error creating store: %w", err)
	}
	defer store.Close()

	router, err := newRouter(cfg, log, store)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter wires the services on top of store and returns the HTTP router.
func newRouter(cfg *config.Config, log *zap.Logger, store *recipe.SQLStore) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	images := imagestore.New(cfg.Media.Dir, cfg.Media.URL, cfg.Media.MaxWidth)
	pdf, err := pdfreport.New(cfg.FontPath)
	if err != nil {
		return nil, fmt.Errorf("error creating pdf renderer: %w", err)
	}
	v := validation.New()
	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	recipes := service.NewRecipeService(store, images, v, service.Limits(cfg.Limits), log)
	handler := api.NewHandler(api.Services{
		Recipes:       recipes,
		Favorites:     service.NewFavorites(store, recipes),
		ShoppingCart:  service.NewShoppingCart(store, recipes),
		Subscriptions: service.NewSubscriptionService(store, recipes),
		ShoppingList:  service.NewShoppingListCompiler(store, pdf),
		Users:         service.NewUserService(store, tokens, v),
		Reference:     service.NewReferenceService(store, v),
		Tokens:        tokens,
	}, log, api.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		PageSize:       cfg.PageSize,
	})

	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(log))

	// Configure CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", logger.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.Static(strings.TrimSuffix(cfg.Media.URL, "/"), cfg.Media.Dir)

	middleware := []gin.HandlerFunc{}
	if cfg.RateLimit.RPS > 0 {
		middleware = append(middleware, api.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware())
	}
	middleware = append(middleware, auth.Authenticate(tokens, store))
	handler.Routes(r, middleware...)

	return r, nil
}
