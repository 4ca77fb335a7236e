package repository

import (
	"context"

	"marketstock/internal/dto"
	"marketstock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PriorityRepository stores the warehouse shipping-priority ranking.
type PriorityRepository interface {
	// List orders by shipping priority; the sort keys "1" and "-1" pick the
	// direction and "A-Z"/"Z-A" order by warehouse name instead.
	List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.PriorityShipment, int64, error)
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.PriorityShipment, error)
	// UpdateManual writes only the operator-edited day fields that are non-nil.
	UpdateManual(ctx context.Context, companyID, id uuid.UUID, travelDays, arriveDays *int) error

	FindByKeyForUpdateTx(tx *gorm.DB, companyID, warehouseID uuid.UUID, mp model.MarketplaceType) (*model.PriorityShipment, error)
	SaveTx(tx *gorm.DB, p *model.PriorityShipment) error
	DeleteExceptTx(tx *gorm.DB, companyID uuid.UUID, keep []uuid.UUID) error

	DB() *gorm.DB
}

type priorityRepo struct{ db *gorm.DB }

func NewPriorityRepository(db *gorm.DB) PriorityRepository { return &priorityRepo{db: db} }

func (r *priorityRepo) DB() *gorm.DB { return r.db }

func (r *priorityRepo) List(ctx context.Context, companyID uuid.UUID, f dto.ListFilter) ([]model.PriorityShipment, int64, error) {
	f.Normalize()
	q := r.db.WithContext(ctx).Model(&model.PriorityShipment{}).Preload("Warehouse").
		Joins("JOIN warehouses ON warehouses.id = priority_shipments.warehouse_id").
		Where("priority_shipments.company_id = ?", companyID)
	if f.Article != "" {
		q = q.Where("warehouses.name ILIKE ?", "%"+f.Article+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch f.Sort {
	case dto.SortVendorAsc:
		q = q.Order("warehouses.name ASC")
	case dto.SortVendorDesc:
		q = q.Order("warehouses.name DESC")
	case dto.SortQtyDesc:
		q = q.Order("priority_shipments.shipping_priority DESC")
	default:
		q = q.Order("priority_shipments.shipping_priority ASC").Order("priority_shipments.sales DESC")
	}

	var rows []model.PriorityShipment
	err := q.Select("priority_shipments.*").Offset(f.Offset()).Limit(f.PageSize).Find(&rows).Error
	return rows, total, err
}

func (r *priorityRepo) FindByID(ctx context.Context, companyID, id uuid.UUID) (*model.PriorityShipment, error) {
	var p model.PriorityShipment
	err := r.db.WithContext(ctx).Preload("Warehouse").
		Where("id = ? AND company_id = ?", id, companyID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *priorityRepo) UpdateManual(ctx context.Context, companyID, id uuid.UUID, travelDays, arriveDays *int) error {
	updates := map[string]interface{}{}
	if travelDays != nil {
		updates["travel_days"] = *travelDays
	}
	if arriveDays != nil {
		updates["arrive_days"] = *arriveDays
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.PriorityShipment{}).
		Where("id = ? AND company_id = ?", id, companyID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *priorityRepo) FindByKeyForUpdateTx(tx *gorm.DB, companyID, warehouseID uuid.UUID, mp model.MarketplaceType) (*model.PriorityShipment, error) {
	var p model.PriorityShipment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND warehouse_id = ? AND marketplace_type = ?", companyID, warehouseID, mp).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *priorityRepo) SaveTx(tx *gorm.DB, p *model.PriorityShipment) error {
	return tx.Omit(clause.Associations).Save(p).Error
}

func (r *priorityRepo) DeleteExceptTx(tx *gorm.DB, companyID uuid.UUID, keep []uuid.UUID) error {
	q := tx.Where("company_id = ?", companyID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	return q.Delete(&model.PriorityShipment{}).Error
}
