package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/okanvural/pickflow-backend/pkg/enums"
)

// Order is the header the pick queue works against. Header fields originate
// in the ERP; this service owns status and the completion annotations only.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNo      string            `gorm:"column:order_no;type:text;not null;uniqueIndex"`
	TripDate     time.Time         `gorm:"column:trip_date;type:date;not null"`
	CustomerCode *string           `gorm:"column:customer_code"`
	CustomerName *string           `gorm:"column:customer_name"`
	Region       *string           `gorm:"column:region"`
	Address      *string           `gorm:"column:address"`
	InvoiceNo    *string           `gorm:"column:invoice_no"`
	Status       enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null;default:'draft'"`
	PackageCount *int              `gorm:"column:package_count"`
	CompletedBy  *string           `gorm:"column:completed_by"`
	CompletedAt  *time.Time        `gorm:"column:completed_at"`
	Lines        []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
