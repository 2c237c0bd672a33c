package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Medicine представляет медикамент в каталоге аптеки
type Medicine struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	Price               decimal.Decimal `json:"price"`    // Цена, неотрицательная
	Quantity            int             `json:"quantity"` // Остаток на складе, не может быть отрицательным
	Category            string          `json:"category"`
	Manufacturer        string          `json:"manufacturer"`
	Prescription        bool            `json:"prescription"` // Требуется ли рецепт
	ImageURL            string          `json:"image_url"`
	ExpirationDate      *time.Time      `json:"expiration_date,omitempty"`
	InstructionURL      string          `json:"instruction_url,omitempty"`
	InstructionFilename string          `json:"instruction_filename,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
