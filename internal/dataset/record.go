// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package dataset

import (
	"math"
	"time"
)

// Record is one order item of the merged transaction table.
// Numeric fields hold NaN when the source value is missing; timestamps hold
// the zero time.
type Record struct {
	OrderID     string
	OrderStatus string

	PurchasedAt         time.Time
	DeliveredAt         time.Time
	EstimatedDeliveryAt time.Time

	CustomerID    string
	CustomerState string

	ProductID                string
	ProductCategory          string
	ProductNameLength        float64
	ProductDescriptionLength float64
	ProductPhotosQty         float64
	ProductWeightG           float64
	ProductLengthCm          float64
	ProductHeightCm          float64
	ProductWidthCm           float64

	SellerID    string
	SellerState string

	Price               float64
	FreightValue        float64
	PaymentSequential   float64
	PaymentType         string
	PaymentInstallments float64
	PaymentValue        float64
	ReviewScore         float64
}

// NewRecord returns a Record whose numeric fields are all missing.
func NewRecord() Record {
	nan := math.NaN()
	return Record{
		ProductNameLength:        nan,
		ProductDescriptionLength: nan,
		ProductPhotosQty:         nan,
		ProductWeightG:           nan,
		ProductLengthCm:          nan,
		ProductHeightCm:          nan,
		ProductWidthCm:           nan,
		Price:                    nan,
		FreightValue:             nan,
		PaymentSequential:        nan,
		PaymentInstallments:      nan,
		PaymentValue:             nan,
		ReviewScore:              nan,
	}
}

// Number returns the value of a numeric source column, or NaN when the
// column is not numeric.
func (r *Record) Number(column string) float64 {
	switch column {
	case ColProductNameLength:
		return r.ProductNameLength
	case ColProductDescriptionLength:
		return r.ProductDescriptionLength
	case ColProductPhotosQty:
		return r.ProductPhotosQty
	case ColProductWeightG:
		return r.ProductWeightG
	case ColProductLengthCm:
		return r.ProductLengthCm
	case ColProductHeightCm:
		return r.ProductHeightCm
	case ColProductWidthCm:
		return r.ProductWidthCm
	case ColPrice:
		return r.Price
	case ColFreightValue:
		return r.FreightValue
	case ColPaymentSequential:
		return r.PaymentSequential
	case ColPaymentInstallments:
		return r.PaymentInstallments
	case ColPaymentValue:
		return r.PaymentValue
	case ColReviewScore:
		return r.ReviewScore
	default:
		return math.NaN()
	}
}

// Text returns the value of a text source column, or "" when the column is
// not textual.
func (r *Record) Text(column string) string {
	switch column {
	case ColOrderID:
		return r.OrderID
	case ColOrderStatus:
		return r.OrderStatus
	case ColCustomerID:
		return r.CustomerID
	case ColCustomerState:
		return r.CustomerState
	case ColProductID:
		return r.ProductID
	case ColProductCategory:
		return r.ProductCategory
	case ColSellerID:
		return r.SellerID
	case ColSellerState:
		return r.SellerState
	case ColPaymentType:
		return r.PaymentType
	default:
		return ""
	}
}

// Time returns the value of a timestamp source column, or the zero time.
func (r *Record) Time(column string) time.Time {
	switch column {
	case ColPurchaseTimestamp:
		return r.PurchasedAt
	case ColDeliveredCustomerDate:
		return r.DeliveredAt
	case ColEstimatedDeliveryDate:
		return r.EstimatedDeliveryAt
	default:
		return time.Time{}
	}
}

// SetNumber assigns a numeric source column. Unknown columns are ignored.
func (r *Record) SetNumber(column string, v float64) {
	switch column {
	case ColProductNameLength:
		r.ProductNameLength = v
	case ColProductDescriptionLength:
		r.ProductDescriptionLength = v
	case ColProductPhotosQty:
		r.ProductPhotosQty = v
	case ColProductWeightG:
		r.ProductWeightG = v
	case ColProductLengthCm:
		r.ProductLengthCm = v
	case ColProductHeightCm:
		r.ProductHeightCm = v
	case ColProductWidthCm:
		r.ProductWidthCm = v
	case ColPrice:
		r.Price = v
	case ColFreightValue:
		r.FreightValue = v
	case ColPaymentSequential:
		r.PaymentSequential = v
	case ColPaymentInstallments:
		r.PaymentInstallments = v
	case ColPaymentValue:
		r.PaymentValue = v
	case ColReviewScore:
		r.ReviewScore = v
	}
}

// SetText assigns a text source column. Unknown columns are ignored.
func (r *Record) SetText(column, v string) {
	switch column {
	case ColOrderID:
		r.OrderID = v
	case ColOrderStatus:
		r.OrderStatus = v
	case ColCustomerID:
		r.CustomerID = v
	case ColCustomerState:
		r.CustomerState = v
	case ColProductID:
		r.ProductID = v
	case ColProductCategory:
		r.ProductCategory = v
	case ColSellerID:
		r.SellerID = v
	case ColSellerState:
		r.SellerState = v
	case ColPaymentType:
		r.PaymentType = v
	}
}

// SetTime assigns a timestamp source column. Unknown columns are ignored.
func (r *Record) SetTime(column string, v time.Time) {
	switch column {
	case ColPurchaseTimestamp:
		r.PurchasedAt = v
	case ColDeliveredCustomerDate:
		r.DeliveredAt = v
	case ColEstimatedDeliveryDate:
		r.EstimatedDeliveryAt = v
	}
}

// Table is an immutable batch of records plus the set of columns the source
// provided.
type Table struct {
	records []Record
	columns map[string]struct{}
}

// NewTable wraps records. columns lists the source columns present; nil
// means every known source column.
func NewTable(records []Record, columns []string) *Table {
	if columns == nil {
		columns = SourceColumns()
	}
	set := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return &Table{records: records, columns: set}
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns the underlying rows. Callers must not modify them.
func (t *Table) Records() []Record {
	return t.records
}

// Has reports whether the source provided column.
func (t *Table) Has(column string) bool {
	_, ok := t.columns[column]
	return ok
}

// Require returns a *SchemaError naming every column in required that the
// table lacks. model labels the error for diagnostics.
func (t *Table) Require(model string, required ...string) error {
	var missing []string
	for _, c := range required {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &SchemaError{Model: model, Missing: missing}
}

// MaxPurchase returns the latest purchase timestamp in the table. It is the
// recency anchor for every customer-level feature.
func (t *Table) MaxPurchase() time.Time {
	var latest time.Time
	for i := range t.records {
		if ts := t.records[i].PurchasedAt; ts.After(latest) {
			latest = ts
		}
	}
	return latest
}
