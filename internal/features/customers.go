// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package features

import (
	"math"
	"sort"
	"time"

	"github.com/tomtom215/ordersight/internal/dataset"
)

// Customer-level feature columns.
const (
	ColRecency            = "recency"
	ColFrequency          = "frequency"
	ColMonetary           = "monetary"
	ColSatisfaction       = "satisfaction"
	ColProductDiversity   = "product_diversity"
	ColAvgDeliveryTime    = "avg_delivery_time"
	ColDaysSinceLastOrder = "days_since_last_order"
	ColOrderFrequency     = "order_frequency"
	ColAvgOrderValue      = "avg_order_value"
	ColDeliveredRate      = "delivered_rate"
)

// RFMColumns is the order of the customer feature vector.
var RFMColumns = []string{
	ColRecency,
	ColFrequency,
	ColMonetary,
	ColSatisfaction,
	ColProductDiversity,
	ColAvgDeliveryTime,
}

// CustomerColumns are the source columns the RFM derivation reads.
var CustomerColumns = []string{
	dataset.ColCustomerID,
	dataset.ColOrderID,
	dataset.ColPurchaseTimestamp,
	dataset.ColDeliveredCustomerDate,
	dataset.ColPaymentValue,
	dataset.ColReviewScore,
	dataset.ColProductCategory,
}

// Customer is the feature vector of one customer. After CustomerRFM returns,
// every field is finite and the RFM measures are non-negative.
type Customer struct {
	CustomerID       string  `json:"customer_id"`
	Recency          float64 `json:"recency"`
	Frequency        float64 `json:"frequency"`
	Monetary         float64 `json:"monetary"`
	Satisfaction     float64 `json:"satisfaction"`
	ProductDiversity float64 `json:"product_diversity"`
	AvgDeliveryTime  float64 `json:"avg_delivery_time"`

	// DeliveredRate is the share of the customer's rows with status "delivered".
	DeliveredRate float64 `json:"delivered_rate"`
}

// Vector returns the RFM measures in RFMColumns order.
func (c *Customer) Vector() []float64 {
	return []float64{c.Recency, c.Frequency, c.Monetary, c.Satisfaction, c.ProductDiversity, c.AvgDeliveryTime}
}

type customerAcc struct {
	lastPurchase  time.Time
	rows          int
	monetary      float64
	reviewSum     float64
	reviewCount   int
	categories    map[string]struct{}
	deliverySum   time.Duration
	deliveryCount int
	delivered     int
}

// CustomerRFM aggregates the table per customer id. Recency is measured from
// the table's latest purchase timestamp, not the wall clock. Residual gaps
// are imputed with the column median for recency, satisfaction and delivery
// time and with zero for the count-like measures. Customers are returned
// sorted by id.
func CustomerRFM(t *dataset.Table) ([]Customer, error) {
	if err := t.Require("customer_features", CustomerColumns...); err != nil {
		return nil, err
	}

	anchor := t.MaxPurchase()
	accs := make(map[string]*customerAcc)
	records := t.Records()
	for i := range records {
		r := &records[i]
		acc, ok := accs[r.CustomerID]
		if !ok {
			acc = &customerAcc{categories: make(map[string]struct{})}
			accs[r.CustomerID] = acc
		}
		acc.rows++
		if r.PurchasedAt.After(acc.lastPurchase) {
			acc.lastPurchase = r.PurchasedAt
		}
		if IsFinite(r.PaymentValue) {
			acc.monetary += r.PaymentValue
		}
		if IsFinite(r.ReviewScore) {
			acc.reviewSum += r.ReviewScore
			acc.reviewCount++
		}
		if r.ProductCategory != "" {
			acc.categories[r.ProductCategory] = struct{}{}
		}
		if !r.PurchasedAt.IsZero() && !r.DeliveredAt.IsZero() {
			acc.deliverySum += r.DeliveredAt.Sub(r.PurchasedAt)
			acc.deliveryCount++
		}
		if r.OrderStatus == "delivered" {
			acc.delivered++
		}
	}

	ids := make([]string, 0, len(accs))
	for id := range accs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Customer, len(ids))
	for i, id := range ids {
		acc := accs[id]
		c := Customer{
			CustomerID:       id,
			Recency:          Days(acc.lastPurchase, anchor),
			Frequency:        float64(acc.rows),
			Monetary:         acc.monetary,
			Satisfaction:     math.NaN(),
			ProductDiversity: float64(len(acc.categories)),
			AvgDeliveryTime:  math.NaN(),
			DeliveredRate:    float64(acc.delivered) / float64(acc.rows),
		}
		if acc.reviewCount > 0 {
			c.Satisfaction = acc.reviewSum / float64(acc.reviewCount)
		}
		if acc.deliveryCount > 0 {
			mean := acc.deliverySum / time.Duration(acc.deliveryCount)
			c.AvgDeliveryTime = math.Floor(mean.Hours() / 24)
		}
		out[i] = c
	}

	imputeCustomers(out)
	return out, nil
}

func imputeCustomers(customers []Customer) {
	recency := make([]float64, len(customers))
	satisfaction := make([]float64, len(customers))
	delivery := make([]float64, len(customers))
	for i := range customers {
		recency[i] = customers[i].Recency
		satisfaction[i] = customers[i].Satisfaction
		delivery[i] = customers[i].AvgDeliveryTime
	}
	fill := func(v *float64, median float64) {
		if IsFinite(*v) {
			return
		}
		if math.IsNaN(median) {
			median = 0
		}
		*v = median
	}
	recMed, satMed, delMed := Median(recency), Median(satisfaction), Median(delivery)
	for i := range customers {
		c := &customers[i]
		fill(&c.Recency, recMed)
		fill(&c.Satisfaction, satMed)
		fill(&c.AvgDeliveryTime, delMed)
		fill(&c.Frequency, 0)
		fill(&c.Monetary, 0)
		fill(&c.ProductDiversity, 0)
	}
}

// CustomerFrame converts customer vectors into a frame keyed by customer id
// with the RFM columns plus the churn-specific aggregates.
func CustomerFrame(customers []Customer) *Frame {
	n := len(customers)
	keys := make([]string, n)
	cols := map[string][]float64{}
	names := append(append([]string(nil), RFMColumns...),
		ColDaysSinceLastOrder, ColOrderFrequency, ColAvgOrderValue, ColDeliveredRate)
	for _, name := range names {
		cols[name] = make([]float64, n)
	}
	for i := range customers {
		c := &customers[i]
		keys[i] = c.CustomerID
		for j, v := range c.Vector() {
			cols[RFMColumns[j]][i] = v
		}
		cols[ColDaysSinceLastOrder][i] = c.Recency
		cols[ColOrderFrequency][i] = c.Frequency / 12
		cols[ColAvgOrderValue][i] = 0
		if c.Frequency > 0 {
			cols[ColAvgOrderValue][i] = c.Monetary / c.Frequency
		}
		cols[ColDeliveredRate][i] = c.DeliveredRate
	}
	f := NewFrame(keys)
	for _, name := range names {
		f.SetNumeric(name, cols[name])
	}
	return f
}
