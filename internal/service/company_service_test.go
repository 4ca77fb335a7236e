package service_test

import (
	"context"
	"testing"

	"marketstock/internal/dto"
	"marketstock/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCompanySeedsDefaults(t *testing.T) {
	repo := newStubCompanyRepo()
	svc := service.NewCompanyService(repo, service.CompanyDefaults{LastSaleDays: 14, NextSaleDays: 60})

	resp, err := svc.Create(context.Background(), dto.CreateCompanyRequest{Name: "  Acme  "})
	require.NoError(t, err)
	assert.Equal(t, "Acme", resp.Name)
	require.NotNil(t, resp.Settings)
	assert.Equal(t, 14, resp.Settings.LastSaleDays)
	assert.Equal(t, 60, resp.Settings.NextSaleDays)

	id := uuid.MustParse(resp.ID)
	settings, err := svc.GetSettings(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 14, settings.LastSaleDays)
}

func TestCreateCompanyOverridesAndFallbacks(t *testing.T) {
	svc := service.NewCompanyService(newStubCompanyRepo(), service.CompanyDefaults{})
	last := 7
	resp, err := svc.Create(context.Background(), dto.CreateCompanyRequest{Name: "Acme", LastSaleDays: &last})
	require.NoError(t, err)
	assert.Equal(t, 7, resp.Settings.LastSaleDays)
	assert.Equal(t, 100, resp.Settings.NextSaleDays)

	zero := 0
	_, err = svc.Create(context.Background(), dto.CreateCompanyRequest{Name: "Acme", NextSaleDays: &zero})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.Create(context.Background(), dto.CreateCompanyRequest{Name: " "})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestSettingsMissingIsConfigurationError(t *testing.T) {
	repo := newStubCompanyRepo()
	id := repo.seed(-1, 0)
	svc := service.NewCompanyService(repo, service.CompanyDefaults{})

	_, err := svc.GetSettings(context.Background(), id)
	assert.ErrorIs(t, err, service.ErrConfiguration)
	_, err = svc.UpdateSettings(context.Background(), id, dto.UpdateSettingsRequest{LastSaleDays: 30, NextSaleDays: 90})
	assert.ErrorIs(t, err, service.ErrConfiguration)
}

func TestUpdateSettings(t *testing.T) {
	repo := newStubCompanyRepo()
	id := repo.seed(30, 100)
	svc := service.NewCompanyService(repo, service.CompanyDefaults{})

	resp, err := svc.UpdateSettings(context.Background(), id, dto.UpdateSettingsRequest{LastSaleDays: 45, NextSaleDays: 120})
	require.NoError(t, err)
	assert.Equal(t, 45, resp.LastSaleDays)
	assert.Equal(t, 120, repo.settings[id].NextSaleDays)

	_, err = svc.UpdateSettings(context.Background(), id, dto.UpdateSettingsRequest{LastSaleDays: 0, NextSaleDays: 1})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestGetCompanyAndListIDs(t *testing.T) {
	repo := newStubCompanyRepo()
	a := repo.seed(30, 100)
	repo.seed(30, 100)
	svc := service.NewCompanyService(repo, service.CompanyDefaults{})

	c, err := svc.Get(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, a.String(), c.ID)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrReferenceNotFound)

	ids, err := svc.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}
