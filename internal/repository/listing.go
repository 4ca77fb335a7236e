package repository

import (
	"marketstock/internal/dto"

	"gorm.io/gorm"
)

// listPage joins the product listing of table, applies the article search,
// counts the matches, then orders and pages q into dest. qtyColumn is the
// column the numeric sort keys order by.
func listPage(q *gorm.DB, table, qtyColumn string, f dto.ListFilter, dest interface{}) (int64, error) {
	f.Normalize()
	q = q.Joins("JOIN products ON products.id = " + table + ".product_id")
	if f.Article != "" {
		q = q.Where("products.vendor_code ILIKE ?", "%"+f.Article+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, err
	}

	switch f.Sort {
	case dto.SortVendorAsc:
		q = q.Order("products.vendor_code ASC")
	case dto.SortVendorDesc:
		q = q.Order("products.vendor_code DESC")
	case dto.SortQtyAsc:
		q = q.Order(table + "." + qtyColumn + " ASC")
	case dto.SortQtyDesc:
		q = q.Order(table + "." + qtyColumn + " DESC")
	default:
		q = q.Order(table + ".created_at DESC")
	}
	err := q.Select(table + ".*").Offset(f.Offset()).Limit(f.PageSize).Find(dest).Error
	return total, err
}
