package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CreateCompanyRequest registers a tenant. Omitted windows fall back to the
// configured defaults.
type CreateCompanyRequest struct {
	Name         string `json:"name"           validate:"required,min=2,max=120"`
	LastSaleDays *int   `json:"last_sale_days" validate:"omitempty,min=1,max=365"`
	NextSaleDays *int   `json:"next_sale_days" validate:"omitempty,min=1,max=730"`
}

type UpdateSettingsRequest struct {
	LastSaleDays int `json:"last_sale_days" validate:"required,min=1,max=365"`
	NextSaleDays int `json:"next_sale_days" validate:"required,min=1,max=730"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SettingsResponse struct {
	CompanyID    string `json:"company_id"`
	LastSaleDays int    `json:"last_sale_days"`
	NextSaleDays int    `json:"next_sale_days"`
}

type CompanyResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Settings  *SettingsResponse `json:"settings"`
	CreatedAt string            `json:"created_at"`
}
