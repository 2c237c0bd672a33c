package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/linemk/pharmacy-shop/internal/app"
	"github.com/linemk/pharmacy-shop/internal/app/handlers"
	"github.com/linemk/pharmacy-shop/internal/config"
	"github.com/linemk/pharmacy-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/pharmacy-shop/internal/lib/logger"
	"github.com/linemk/pharmacy-shop/internal/lib/logger/handlers/urllog"
	"github.com/linemk/pharmacy-shop/internal/service"
	"github.com/linemk/pharmacy-shop/internal/storage"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	medicineRepo := storage.NewMedicineRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)

	authService := service.NewAuthService(application.Logger, userRepo, time.Duration(application.Config.JWT.TokenTTL)*time.Minute)
	catalogService := service.NewCatalogService(application.Logger, userRepo, medicineRepo)
	orderService := service.NewOrderService(application.Logger, application.DB, userRepo, medicineRepo, orderRepo)
	userService := service.NewUserService(application.Logger, userRepo)

	// публичные эндпоинты: регистрация, вход и чтение каталога
	router.Post("/api/auth/register", handlers.RegisterHandler(application.Logger, authService))
	router.Post("/api/auth/login", handlers.LoginHandler(application.Logger, authService))
	router.Get("/api/medicines", handlers.ListMedicinesHandler(application.Logger, catalogService))
	router.Get("/api/medicines/categories/list", handlers.CategoriesHandler(application.Logger, catalogService))
	router.Get("/api/medicines/{id}", handlers.GetMedicineHandler(application.Logger, catalogService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)
		// каталог: изменения доступны только администратору, роль проверяется в сервисе
		r.Post("/api/medicines", handlers.CreateMedicineHandler(application.Logger, catalogService))
		r.Put("/api/medicines/{id}", handlers.UpdateMedicineHandler(application.Logger, catalogService))
		r.Delete("/api/medicines/{id}", handlers.DeleteMedicineHandler(application.Logger, catalogService))
		// заказы
		r.Post("/api/orders", handlers.CreateOrderHandler(application.Logger, orderService))
		r.Get("/api/orders", handlers.ListOrdersHandler(application.Logger, orderService))
		r.Get("/api/orders/{id}", handlers.GetOrderHandler(application.Logger, orderService))
		r.Put("/api/orders/{id}/status", handlers.UpdateOrderStatusHandler(application.Logger, orderService))
		r.Delete("/api/orders/{id}", handlers.CancelOrderHandler(application.Logger, orderService))
		// пользователи
		r.Get("/api/users/profile", handlers.ProfileHandler(application.Logger, userService))
		r.Put("/api/users/profile", handlers.UpdateProfileHandler(application.Logger, userService))
		r.Get("/api/users", handlers.ListUsersHandler(application.Logger, userService))
		r.Put("/api/users/{id}/role", handlers.SetRoleHandler(application.Logger, userService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
