package model

import (
	"time"

	"github.com/google/uuid"
)

// Company is a tenant. Every other row is scoped to one company.
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Settings *CompanySettings `gorm:"foreignKey:CompanyID"`
}

func (Company) TableName() string { return "companies" }

// CompanySettings holds the windows used by every recompute.
// LastSaleDays is the trailing window for the sales rate, NextSaleDays the
// forward window the need is projected over.
type CompanySettings struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	LastSaleDays int       `gorm:"not null;default:30"`
	NextSaleDays int       `gorm:"not null;default:100"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (CompanySettings) TableName() string { return "company_settings" }
