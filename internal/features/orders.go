// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package features

import (
	"math"
	"time"

	"github.com/tomtom215/ordersight/internal/dataset"
)

// Derived order-level columns.
const (
	ColDeliveryTime    = "delivery_time"
	ColDeliveryDays    = "delivery_days"
	ColEstimatedDays   = "estimated_days"
	ColIsLateDelivery  = "is_late_delivery"
	ColProductVolume   = "product_volume"
	ColPricePerWeight  = "price_per_weight"
	ColPricePerVolume  = "price_per_volume"
	ColFreightRatio    = "freight_ratio"
	ColTotalOrderValue = "total_order_value"
	ColPurchaseYear    = "purchase_year"
	ColPurchaseMonth   = "purchase_month"
	ColPurchaseDay     = "purchase_day"
	ColPurchaseHour    = "purchase_hour"
	ColPurchaseWeekday = "purchase_weekday"
)

// OrderColumns are the source columns the order-level derivation reads.
var OrderColumns = []string{
	dataset.ColOrderID,
	dataset.ColPurchaseTimestamp,
	dataset.ColDeliveredCustomerDate,
	dataset.ColPrice,
	dataset.ColFreightValue,
	dataset.ColProductWeightG,
	dataset.ColProductLengthCm,
	dataset.ColProductHeightCm,
	dataset.ColProductWidthCm,
}

// numericSourceColumns are copied into every order frame so models can
// select raw and derived features uniformly.
var numericSourceColumns = []string{
	dataset.ColPrice,
	dataset.ColFreightValue,
	dataset.ColProductNameLength,
	dataset.ColProductDescriptionLength,
	dataset.ColProductPhotosQty,
	dataset.ColProductWeightG,
	dataset.ColProductLengthCm,
	dataset.ColProductHeightCm,
	dataset.ColProductWidthCm,
	dataset.ColPaymentSequential,
	dataset.ColPaymentInstallments,
	dataset.ColPaymentValue,
	dataset.ColReviewScore,
}

var categoricalSourceColumns = []string{
	dataset.ColProductCategory,
	dataset.ColSellerState,
	dataset.ColCustomerState,
	dataset.ColPaymentType,
	dataset.ColOrderStatus,
}

// Days returns the whole days from start to end, rounding toward negative
// infinity, or NaN when either timestamp is missing.
func Days(start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() {
		return math.NaN()
	}
	return math.Floor(end.Sub(start).Hours() / 24)
}

// Orders builds the order-level frame without imputation: every numeric
// source column plus the derived delivery, ratio and calendar columns, one
// row per record, keyed by order id. Non-finite ratios are NaN.
func Orders(t *dataset.Table) (*Frame, error) {
	if err := t.Require("feature_deriver", OrderColumns...); err != nil {
		return nil, err
	}

	records := t.Records()
	n := len(records)
	keys := make([]string, n)
	for i := range records {
		keys[i] = records[i].OrderID
	}
	f := NewFrame(keys)

	for _, col := range numericSourceColumns {
		values := make([]float64, n)
		for i := range records {
			values[i] = finite(records[i].Number(col))
		}
		f.SetNumeric(col, values)
	}
	for _, col := range categoricalSourceColumns {
		values := make([]string, n)
		for i := range records {
			values[i] = records[i].Text(col)
		}
		f.SetCategorical(col, values)
	}

	delivery := make([]float64, n)
	estimated := make([]float64, n)
	late := make([]float64, n)
	volume := make([]float64, n)
	perWeight := make([]float64, n)
	perVolume := make([]float64, n)
	freightRatio := make([]float64, n)
	total := make([]float64, n)
	year := make([]float64, n)
	month := make([]float64, n)
	day := make([]float64, n)
	hour := make([]float64, n)
	weekday := make([]float64, n)

	for i := range records {
		r := &records[i]
		delivery[i] = Days(r.PurchasedAt, r.DeliveredAt)
		estimated[i] = Days(r.PurchasedAt, r.EstimatedDeliveryAt)
		// NaN comparisons are false, so unknown dates count as on time.
		if delivery[i] > estimated[i] {
			late[i] = 1
		}

		volume[i] = finite(r.ProductLengthCm * r.ProductHeightCm * r.ProductWidthCm)
		perWeight[i] = finite(r.Price / r.ProductWeightG)
		perVolume[i] = finite(r.Price / volume[i])
		freightRatio[i] = finite(r.FreightValue / r.Price)
		total[i] = finite(r.Price + r.FreightValue)

		if r.PurchasedAt.IsZero() {
			year[i], month[i], day[i], hour[i], weekday[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
			continue
		}
		ts := r.PurchasedAt
		year[i] = float64(ts.Year())
		month[i] = float64(ts.Month())
		day[i] = float64(ts.Day())
		hour[i] = float64(ts.Hour())
		// Monday is 0.
		weekday[i] = float64((int(ts.Weekday()) + 6) % 7)
	}

	f.SetNumeric(ColDeliveryTime, delivery)
	f.SetNumeric(ColDeliveryDays, append([]float64(nil), delivery...))
	f.SetNumeric(ColEstimatedDays, estimated)
	f.SetNumeric(ColIsLateDelivery, late)
	f.SetNumeric(ColProductVolume, volume)
	f.SetNumeric(ColPricePerWeight, perWeight)
	f.SetNumeric(ColPricePerVolume, perVolume)
	f.SetNumeric(ColFreightRatio, freightRatio)
	f.SetNumeric(ColTotalOrderValue, total)
	f.SetNumeric(ColPurchaseYear, year)
	f.SetNumeric(ColPurchaseMonth, month)
	f.SetNumeric(ColPurchaseDay, day)
	f.SetNumeric(ColPurchaseHour, hour)
	f.SetNumeric(ColPurchaseWeekday, weekday)

	return f, nil
}

// Derive builds the order-level frame and imputes every numeric column with
// its median over the same table. Applying it to the same table twice yields
// identical columns since nothing is carried over between calls.
func Derive(t *dataset.Table) (*Frame, map[string]float64, error) {
	f, err := Orders(t)
	if err != nil {
		return nil, nil, err
	}
	medians := f.Impute()
	return f, medians, nil
}
