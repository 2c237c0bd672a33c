package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/linemk/pharmacy-shop/internal/domain/models"
	"github.com/linemk/pharmacy-shop/internal/storage"
)

// MedicineInput — данные нового медикамента.
type MedicineInput struct {
	Name                string
	Description         string
	Price               decimal.Decimal
	Quantity            int
	Category            string
	Manufacturer        string
	Prescription        bool
	ImageURL            string
	ExpirationDate      *time.Time
	InstructionURL      string
	InstructionFilename string
}

// MedicineUpdate — частичное обновление: nil-поля не трогаются.
type MedicineUpdate struct {
	Name                *string
	Description         *string
	Price               *decimal.Decimal
	Quantity            *int
	Category            *string
	Manufacturer        *string
	Prescription        *bool
	ImageURL            *string
	ExpirationDate      *time.Time
	InstructionURL      *string
	InstructionFilename *string
}

// CatalogService определяет операции с каталогом медикаментов.
// Чтение публично, изменения доступны только администратору.
type CatalogService interface {
	List(ctx context.Context, filter storage.MedicineFilter) ([]*models.Medicine, error)
	Get(ctx context.Context, id string) (*models.Medicine, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, callerID string, in MedicineInput) (*models.Medicine, error)
	Update(ctx context.Context, callerID string, id string, in MedicineUpdate) (*models.Medicine, error)
	Delete(ctx context.Context, callerID string, id string) error
}

type catalogService struct {
	log          *slog.Logger
	userRepo     storage.UserStorage
	medicineRepo storage.MedicineStorage
}

func NewCatalogService(log *slog.Logger, userRepo storage.UserStorage, medicineRepo storage.MedicineStorage) CatalogService {
	return &catalogService{
		log:          log,
		userRepo:     userRepo,
		medicineRepo: medicineRepo,
	}
}

func (s *catalogService) List(ctx context.Context, filter storage.MedicineFilter) ([]*models.Medicine, error) {
	const op = "service.CatalogService.List"

	medicines, err := s.medicineRepo.ListMedicines(ctx, filter)
	if err != nil {
		s.log.Error("failed to list medicines", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list medicines: %w", op, err)
	}
	return medicines, nil
}

func (s *catalogService) Get(ctx context.Context, id string) (*models.Medicine, error) {
	const op = "service.CatalogService.Get"

	medicine, err := s.medicineRepo.GetMedicineByID(ctx, id)
	if err != nil {
		s.log.Error("failed to get medicine", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return medicine, nil
}

func (s *catalogService) Categories(ctx context.Context) ([]string, error) {
	const op = "service.CatalogService.Categories"

	categories, err := s.medicineRepo.ListCategories(ctx)
	if err != nil {
		s.log.Error("failed to list categories", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list categories: %w", op, err)
	}
	return categories, nil
}

func validateMedicine(name string, price decimal.Decimal, quantity int, category string) error {
	if name == "" {
		return fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	if price.IsNegative() {
		return fmt.Errorf("price must not be negative: %w", ErrInvalidInput)
	}
	if quantity < 0 {
		return fmt.Errorf("quantity must not be negative: %w", ErrInvalidInput)
	}
	if category == "" {
		return fmt.Errorf("category is required: %w", ErrInvalidInput)
	}
	return nil
}

// Create добавляет медикамент в каталог (только администратор).
func (s *catalogService) Create(ctx context.Context, callerID string, in MedicineInput) (*models.Medicine, error) {
	const op = "service.CatalogService.Create"
	logger := s.log.With(slog.String("op", op), slog.String("callerID", callerID))

	if _, err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		logger.Warn("medicine create denied", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validateMedicine(in.Name, in.Price, in.Quantity, in.Category); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	medicine := &models.Medicine{
		Name:                in.Name,
		Description:         in.Description,
		Price:               in.Price,
		Quantity:            in.Quantity,
		Category:            in.Category,
		Manufacturer:        in.Manufacturer,
		Prescription:        in.Prescription,
		ImageURL:            in.ImageURL,
		ExpirationDate:      in.ExpirationDate,
		InstructionURL:      in.InstructionURL,
		InstructionFilename: in.InstructionFilename,
	}
	medicine, err := s.medicineRepo.CreateMedicine(ctx, medicine)
	if err != nil {
		logger.Error("failed to create medicine", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create medicine: %w", op, err)
	}

	logger.Info("medicine created", slog.String("medicineID", medicine.ID))
	return medicine, nil
}

// Update частично обновляет медикамент (только администратор).
// created_at и id никогда не перезаписываются.
func (s *catalogService) Update(ctx context.Context, callerID string, id string, in MedicineUpdate) (*models.Medicine, error) {
	const op = "service.CatalogService.Update"
	logger := s.log.With(slog.String("op", op), slog.String("medicineID", id))

	if _, err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		logger.Warn("medicine update denied", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	medicine, err := s.medicineRepo.GetMedicineByID(ctx, id)
	if err != nil {
		logger.Error("failed to get medicine", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Name != nil {
		medicine.Name = *in.Name
	}
	if in.Description != nil {
		medicine.Description = *in.Description
	}
	if in.Price != nil {
		medicine.Price = *in.Price
	}
	if in.Quantity != nil {
		medicine.Quantity = *in.Quantity
	}
	if in.Category != nil {
		medicine.Category = *in.Category
	}
	if in.Manufacturer != nil {
		medicine.Manufacturer = *in.Manufacturer
	}
	if in.Prescription != nil {
		medicine.Prescription = *in.Prescription
	}
	if in.ImageURL != nil {
		medicine.ImageURL = *in.ImageURL
	}
	if in.ExpirationDate != nil {
		medicine.ExpirationDate = in.ExpirationDate
	}
	if in.InstructionURL != nil {
		medicine.InstructionURL = *in.InstructionURL
	}
	if in.InstructionFilename != nil {
		medicine.InstructionFilename = *in.InstructionFilename
	}

	if err := validateMedicine(medicine.Name, medicine.Price, medicine.Quantity, medicine.Category); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.medicineRepo.UpdateMedicine(ctx, medicine); err != nil {
		logger.Error("failed to update medicine", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("medicine updated")
	return medicine, nil
}

// Delete удаляет медикамент из каталога (только администратор).
// Снимки позиций в существующих заказах при этом сохраняются.
func (s *catalogService) Delete(ctx context.Context, callerID string, id string) error {
	const op = "service.CatalogService.Delete"
	logger := s.log.With(slog.String("op", op), slog.String("medicineID", id))

	if _, err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		logger.Warn("medicine delete denied", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.medicineRepo.DeleteMedicine(ctx, id); err != nil {
		logger.Error("failed to delete medicine", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("medicine deleted")
	return nil
}
