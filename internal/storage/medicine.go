package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/linemk/pharmacy-shop/internal/domain/models"
)

var ErrMedicineNotFound = errors.New("medicine not found")

// MedicineFilter — необязательные фильтры для выборки каталога.
type MedicineFilter struct {
	Category    string
	Search      string // подстрока в названии или описании, без учета регистра
	InStockOnly bool
}

// MedicineStorage описывает методы для работы с каталогом медикаментов.
type MedicineStorage interface {
	ListMedicines(ctx context.Context, filter MedicineFilter) ([]*models.Medicine, error)
	GetMedicineByID(ctx context.Context, id string) (*models.Medicine, error)
	ListCategories(ctx context.Context) ([]string, error)
	CreateMedicine(ctx context.Context, m *models.Medicine) (*models.Medicine, error)
	UpdateMedicine(ctx context.Context, m *models.Medicine) error
	DeleteMedicine(ctx context.Context, id string) error
	// LockMedicineByIDTx блокирует строку медикамента на время транзакции.
	LockMedicineByIDTx(ctx context.Context, tx *sql.Tx, id string) (*models.Medicine, error)
	// UpdateMedicineQuantityTx записывает новый остаток в рамках транзакции.
	UpdateMedicineQuantityTx(ctx context.Context, tx *sql.Tx, id string, newQuantity int) error
}

type medicineRepository struct {
	db *sql.DB
}

func NewMedicineRepository(db *sql.DB) MedicineStorage {
	return &medicineRepository{db: db}
}

const medicineColumns = `id, name, description, price, quantity, category, manufacturer,
	prescription, image_url, expiration_date, instruction_url, instruction_filename, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row rowScanner) (*models.Medicine, error) {
	m := &models.Medicine{}
	var expiration sql.NullTime
	var instructionURL, instructionFilename sql.NullString
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.Quantity, &m.Category,
		&m.Manufacturer, &m.Prescription, &m.ImageURL, &expiration, &instructionURL,
		&instructionFilename, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if expiration.Valid {
		m.ExpirationDate = &expiration.Time
	}
	m.InstructionURL = instructionURL.String
	m.InstructionFilename = instructionFilename.String
	return m, nil
}

func (r *medicineRepository) ListMedicines(ctx context.Context, filter MedicineFilter) ([]*models.Medicine, error) {
	query := "SELECT " + medicineColumns + " FROM medicines"
	var conds []string
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conds = append(conds, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(description) LIKE $%d)", len(args), len(args)))
	}
	if filter.InStockOnly {
		conds = append(conds, "quantity > 0")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query medicines: %w", err)
	}
	defer rows.Close()

	var medicines []*models.Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medicine: %w", err)
		}
		medicines = append(medicines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return medicines, nil
}

func (r *medicineRepository) GetMedicineByID(ctx context.Context, id string) (*models.Medicine, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+medicineColumns+" FROM medicines WHERE id = $1", id)
	m, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMedicineNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *medicineRepository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT category FROM medicines WHERE category <> '' ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *medicineRepository) CreateMedicine(ctx context.Context, m *models.Medicine) (*models.Medicine, error) {
	m.ID = uuid.NewString()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO medicines (id, name, description, price, quantity, category, manufacturer,
		  prescription, image_url, expiration_date, instruction_url, instruction_filename, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), NULLIF($12, ''), NOW(), NOW())
		 RETURNING created_at, updated_at`,
		m.ID, m.Name, m.Description, m.Price, m.Quantity, m.Category, m.Manufacturer,
		m.Prescription, m.ImageURL, m.ExpirationDate, m.InstructionURL, m.InstructionFilename,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create medicine: %w", err)
	}
	return m, nil
}

// UpdateMedicine перезаписывает изменяемые поля целиком; created_at не трогаем.
func (r *medicineRepository) UpdateMedicine(ctx context.Context, m *models.Medicine) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE medicines SET name = $1, description = $2, price = $3, quantity = $4, category = $5,
		  manufacturer = $6, prescription = $7, image_url = $8, expiration_date = $9,
		  instruction_url = NULLIF($10, ''), instruction_filename = NULLIF($11, ''), updated_at = NOW()
		 WHERE id = $12`,
		m.Name, m.Description, m.Price, m.Quantity, m.Category, m.Manufacturer,
		m.Prescription, m.ImageURL, m.ExpirationDate, m.InstructionURL, m.InstructionFilename, m.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMedicineNotFound
	}
	return nil
}

func (r *medicineRepository) DeleteMedicine(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM medicines WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMedicineNotFound
	}
	return nil
}

// LockMedicineByIDTx берет блокировку строки, чтобы конкурентные резервирования
// одного и того же медикамента выполнялись последовательно. Блокировка ждущая:
// проигравшая транзакция дочитывает уже списанный остаток, а не получает ошибку.
func (r *medicineRepository) LockMedicineByIDTx(ctx context.Context, tx *sql.Tx, id string) (*models.Medicine, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+medicineColumns+" FROM medicines WHERE id = $1 FOR UPDATE", id)
	m, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMedicineNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *medicineRepository) UpdateMedicineQuantityTx(ctx context.Context, tx *sql.Tx, id string, newQuantity int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE medicines SET quantity = $1, updated_at = NOW() WHERE id = $2", newQuantity, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMedicineNotFound
	}
	return nil
}
