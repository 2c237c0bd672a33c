package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/linemk/pharmacy-shop/internal/domain/models"
	"github.com/linemk/pharmacy-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/pharmacy-shop/internal/service"
	"github.com/linemk/pharmacy-shop/internal/storage"
)

// CreateMedicineRequest — входной JSON нового медикамента.
// Цена и количество дополнительно проверяются в сервисе.
type CreateMedicineRequest struct {
	Name                string          `json:"name" validate:"required"`
	Description         string          `json:"description"`
	Price               decimal.Decimal `json:"price"`
	Quantity            int             `json:"quantity"`
	Category            string          `json:"category" validate:"required"`
	Manufacturer        string          `json:"manufacturer"`
	Prescription        bool            `json:"prescription"`
	ImageURL            string          `json:"imageUrl"`
	ExpirationDate      *time.Time      `json:"expirationDate"`
	InstructionURL      string          `json:"instructionUrl"`
	InstructionFilename string          `json:"instructionFilename"`
}

// UpdateMedicineRequest — частичное обновление, отсутствующие поля не меняются.
type UpdateMedicineRequest struct {
	Name                *string          `json:"name"`
	Description         *string          `json:"description"`
	Price               *decimal.Decimal `json:"price"`
	Quantity            *int             `json:"quantity"`
	Category            *string          `json:"category"`
	Manufacturer        *string          `json:"manufacturer"`
	Prescription        *bool            `json:"prescription"`
	ImageURL            *string          `json:"imageUrl"`
	ExpirationDate      *time.Time       `json:"expirationDate"`
	InstructionURL      *string          `json:"instructionUrl"`
	InstructionFilename *string          `json:"instructionFilename"`
}

// ListMedicinesHandler обрабатывает запрос GET /api/medicines.
// Эндпоинт публичный, поддерживает фильтры category, search и inStock.
func ListMedicinesHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListMedicinesHandler"
		logger := log.With(slog.String("op", op))

		filter := storage.MedicineFilter{
			Category:    r.URL.Query().Get("category"),
			Search:      r.URL.Query().Get("search"),
			InStockOnly: r.URL.Query().Get("inStock") == "true",
		}

		medicines, err := catalogService.List(r.Context(), filter)
		if err != nil {
			logger.Error("failed to list medicines", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}
		if medicines == nil {
			medicines = []*models.Medicine{}
		}

		writeJSON(logger, w, http.StatusOK, medicines)
	}
}

// GetMedicineHandler обрабатывает запрос GET /api/medicines/{id}.
func GetMedicineHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetMedicineHandler"
		logger := log.With(slog.String("op", op))

		id := chi.URLParam(r, "id")
		medicine, err := catalogService.Get(r.Context(), id)
		if err != nil {
			logger.Error("failed to get medicine", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, medicine)
	}
}

// CategoriesHandler обрабатывает запрос GET /api/medicines/categories/list.
func CategoriesHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CategoriesHandler"
		logger := log.With(slog.String("op", op))

		categories, err := catalogService.Categories(r.Context())
		if err != nil {
			logger.Error("failed to list categories", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}
		if categories == nil {
			categories = []string{}
		}

		writeJSON(logger, w, http.StatusOK, categories)
	}
}

// CreateMedicineHandler обрабатывает запрос POST /api/medicines (только администратор).
func CreateMedicineHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateMedicineHandler"
		logger := log.With(slog.String("op", op))

		callerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		var req CreateMedicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeJSON(logger, w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeJSON(logger, w, http.StatusBadRequest, ErrorResponse{Error: "validation error"})
			return
		}

		medicine, err := catalogService.Create(r.Context(), callerID, service.MedicineInput{
			Name:                req.Name,
			Description:         req.Description,
			Price:               req.Price,
			Quantity:            req.Quantity,
			Category:            req.Category,
			Manufacturer:        req.Manufacturer,
			Prescription:        req.Prescription,
			ImageURL:            req.ImageURL,
			ExpirationDate:      req.ExpirationDate,
			InstructionURL:      req.InstructionURL,
			InstructionFilename: req.InstructionFilename,
		})
		if err != nil {
			logger.Error("failed to create medicine", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusCreated, medicine)
	}
}

// UpdateMedicineHandler обрабатывает запрос PUT /api/medicines/{id} (только администратор).
func UpdateMedicineHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateMedicineHandler"
		logger := log.With(slog.String("op", op))

		callerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		var req UpdateMedicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeJSON(logger, w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
			return
		}

		id := chi.URLParam(r, "id")
		medicine, err := catalogService.Update(r.Context(), callerID, id, service.MedicineUpdate{
			Name:                req.Name,
			Description:         req.Description,
			Price:               req.Price,
			Quantity:            req.Quantity,
			Category:            req.Category,
			Manufacturer:        req.Manufacturer,
			Prescription:        req.Prescription,
			ImageURL:            req.ImageURL,
			ExpirationDate:      req.ExpirationDate,
			InstructionURL:      req.InstructionURL,
			InstructionFilename: req.InstructionFilename,
		})
		if err != nil {
			logger.Error("failed to update medicine", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, medicine)
	}
}

// DeleteMedicineHandler обрабатывает запрос DELETE /api/medicines/{id} (только администратор).
func DeleteMedicineHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteMedicineHandler"
		logger := log.With(slog.String("op", op))

		callerID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		id := chi.URLParam(r, "id")
		if err := catalogService.Delete(r.Context(), callerID, id); err != nil {
			logger.Error("failed to delete medicine", slog.Any("error", err))
			writeError(logger, w, err)
			return
		}

		writeJSON(logger, w, http.StatusOK, map[string]string{"message": "medicine deleted"})
	}
}
