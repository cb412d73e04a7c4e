// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package dataset

// Source column names. They follow the upstream merged table, including its
// historical "lenght" spelling.
const (
	ColOrderID                  = "order_id"
	ColOrderStatus              = "order_status"
	ColPurchaseTimestamp        = "order_purchase_timestamp"
	ColDeliveredCustomerDate    = "order_delivered_customer_date"
	ColEstimatedDeliveryDate    = "order_estimated_delivery_date"
	ColCustomerID               = "customer_id"
	ColCustomerState            = "customer_state"
	ColProductID                = "product_id"
	ColProductCategory          = "product_category_name"
	ColProductNameLength        = "product_name_lenght"
	ColProductDescriptionLength = "product_description_lenght"
	ColProductPhotosQty         = "product_photos_qty"
	ColProductWeightG           = "product_weight_g"
	ColProductLengthCm          = "product_length_cm"
	ColProductHeightCm          = "product_height_cm"
	ColProductWidthCm           = "product_width_cm"
	ColSellerID                 = "seller_id"
	ColSellerState              = "seller_state"
	ColPrice                    = "price"
	ColFreightValue             = "freight_value"
	ColPaymentSequential        = "payment_sequential"
	ColPaymentType              = "payment_type"
	ColPaymentInstallments      = "payment_installments"
	ColPaymentValue             = "payment_value"
	ColReviewScore              = "review_score"
)

// Kind is the semantic type of a source column.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindNumber
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

var columnKinds = map[string]Kind{
	ColOrderID:                  KindText,
	ColOrderStatus:              KindText,
	ColPurchaseTimestamp:        KindTimestamp,
	ColDeliveredCustomerDate:    KindTimestamp,
	ColEstimatedDeliveryDate:    KindTimestamp,
	ColCustomerID:               KindText,
	ColCustomerState:            KindText,
	ColProductID:                KindText,
	ColProductCategory:          KindText,
	ColProductNameLength:        KindNumber,
	ColProductDescriptionLength: KindNumber,
	ColProductPhotosQty:         KindNumber,
	ColProductWeightG:           KindNumber,
	ColProductLengthCm:          KindNumber,
	ColProductHeightCm:          KindNumber,
	ColProductWidthCm:           KindNumber,
	ColSellerID:                 KindText,
	ColSellerState:              KindText,
	ColPrice:                    KindNumber,
	ColFreightValue:             KindNumber,
	ColPaymentSequential:        KindNumber,
	ColPaymentType:              KindText,
	ColPaymentInstallments:      KindNumber,
	ColPaymentValue:             KindNumber,
	ColReviewScore:              KindNumber,
}

// KindOf returns the expected kind of a source column, or KindUnknown.
func KindOf(column string) Kind {
	return columnKinds[column]
}

// SourceColumns returns every known source column in a stable order.
func SourceColumns() []string {
	return []string{
		ColOrderID, ColOrderStatus, ColPurchaseTimestamp, ColDeliveredCustomerDate,
		ColEstimatedDeliveryDate, ColCustomerID, ColCustomerState, ColProductID,
		ColProductCategory, ColProductNameLength, ColProductDescriptionLength,
		ColProductPhotosQty, ColProductWeightG, ColProductLengthCm, ColProductHeightCm,
		ColProductWidthCm, ColSellerID, ColSellerState, ColPrice, ColFreightValue,
		ColPaymentSequential, ColPaymentType, ColPaymentInstallments, ColPaymentValue,
		ColReviewScore,
	}
}
