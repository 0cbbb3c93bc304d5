package shipments

import (
	"time"

	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TripSummary is one trip header as the loader board lists it.
type TripSummary struct {
	ID           uuid.UUID `json:"id"`
	TripDate     time.Time `json:"trip_date"`
	OrderNo      string    `json:"order_no"`
	CustomerCode *string   `json:"customer_code,omitempty"`
	CustomerName *string   `json:"customer_name,omitempty"`
	Region       *string   `json:"region,omitempty"`
	InvoiceRoot  *string   `json:"invoice_root,omitempty"`
	PkgsTotal    int       `json:"pkgs_total"`
	PkgsOriginal int       `json:"pkgs_original"`
	PkgsLoaded   int       `json:"pkgs_loaded"`
	Closed       bool      `json:"closed"`
	EnRoute      bool      `json:"en_route"`
	CreatedAt    time.Time `json:"created_at"`
}

// TripList is a trip-date range listing.
type TripList struct {
	Trips []TripSummary `json:"trips"`
}

// PackageState is one package row on the trip detail.
type PackageState struct {
	PkgNo    int        `json:"pkg_no"`
	Loaded   bool       `json:"loaded"`
	LoadedBy *string    `json:"loaded_by,omitempty"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// ShippedLine is one line on the trip detail.
type ShippedLine struct {
	ItemCode    string          `json:"item_code"`
	WarehouseID string          `json:"warehouse_id"`
	QtyInvoiced decimal.Decimal `json:"qty_invoiced"`
	QtySent     decimal.Decimal `json:"qty_sent"`
}

// TripDetail is the header plus its packages and shipped lines.
type TripDetail struct {
	TripSummary
	Packages []PackageState `json:"packages"`
	Lines    []ShippedLine  `json:"lines"`
}

// ListTripsInput bounds the trip listing by trip date, inclusive.
type ListTripsInput struct {
	From time.Time
	To   time.Time
}

// MarkLoadedInput identifies one package scan by a loader.
type MarkLoadedInput struct {
	ShipmentID   uuid.UUID
	PkgNo        int
	ActorStation string
	ActorRole    enums.ActorRole
}

// LoadResult reports the outcome of a package scan. AlreadyLoaded means the
// scan was a repeat and nothing changed.
type LoadResult struct {
	ShipmentID    uuid.UUID `json:"shipment_id"`
	OrderNo       string    `json:"order_no"`
	PkgNo         int       `json:"pkg_no"`
	AlreadyLoaded bool      `json:"already_loaded"`
	PkgsLoaded    int       `json:"pkgs_loaded"`
	PkgsTotal     int       `json:"pkgs_total"`
	TripClosed    bool      `json:"trip_closed"`
}

// CloseTripInput identifies a manual trip close.
type CloseTripInput struct {
	ShipmentID   uuid.UUID
	ActorStation string
	ActorRole    enums.ActorRole
}
