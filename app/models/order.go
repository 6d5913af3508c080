package models

import (
	"time"

	"gorm.io/gorm"
)

// Order statuses.
const (
	StatusPending    = "Pending"
	StatusProcessing = "Processing"
	StatusShipped    = "Shipped"
	StatusDelivered  = "Delivered"
	StatusCancelled  = "Cancelled"
)

// Payment statuses.
const (
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
)

// Payment methods.
const (
	MethodCOD        = "Cash on Delivery"
	MethodCreditCard = "Credit Card"
	MethodDebitCard  = "Debit Card"
	MethodUPI        = "UPI"
	MethodRazorpay   = "Razorpay"
)

var PaymentMethods = []string{MethodCOD, MethodCreditCard, MethodDebitCard, MethodUPI, MethodRazorpay}

// OrderStatuses in lifecycle order; Cancelled sits outside the forward chain.
var OrderStatuses = []string{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

var statusRank = map[string]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusShipped:    2,
	StatusDelivered:  3,
}

func IsValidStatus(s string) bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

func IsValidPaymentMethod(m string) bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func IsTerminal(s string) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order may move from one status to
// another. Forward moves may skip steps; Cancelled is reachable from any
// non-terminal status.
func CanTransition(from, to string) bool {
	if IsTerminal(from) || from == to {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	return ok1 && ok2 && tr > fr
}

// OrderItem is a denormalised snapshot of a product at purchase time.
type OrderItem struct {
	Product  string  `bson:"product"  json:"product"  validate:"required"`
	Name     string  `bson:"name"     json:"name"`
	Price    float64 `bson:"price"    json:"price"`
	Quantity int     `bson:"quantity" json:"quantity" validate:"required,min=1"`
	Image    string  `bson:"image"    json:"image"`
}

type ShippingAddress struct {
	FullName string `bson:"fullName" json:"fullName" validate:"required"`
	Phone    string `bson:"phone"    json:"phone"    validate:"required"`
	Street   string `bson:"street"   json:"street"   validate:"required"`
	City     string `bson:"city"     json:"city"     validate:"required"`
	State    string `bson:"state"    json:"state"    validate:"required"`
	ZipCode  string `bson:"zipCode"  json:"zipCode"  validate:"required"`
	Country  string `bson:"country"  json:"country"`
}

type PaymentResult struct {
	RazorpayOrderID   string `bson:"razorpayOrderId,omitempty"   json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string `bson:"razorpayPaymentId,omitempty" json:"razorpayPaymentId,omitempty"`
}

// Order is a customer purchase. GatewayPaymentID duplicates the gateway
// payment id in an indexed column so one payment maps to at most one order.
type Order struct {
	ID               string          `gorm:"primaryKey;size:24"             bson:"_id"                        json:"_id"`
	User             string          `gorm:"column:user_id;size:24;not null;index" bson:"user"                       json:"user"`
	OrderItems       []OrderItem     `gorm:"serializer:json;not null"       bson:"orderItems"                 json:"orderItems"`
	ShippingAddress  ShippingAddress `gorm:"serializer:json;not null"       bson:"shippingAddress"            json:"shippingAddress"`
	PaymentMethod    string          `gorm:"size:50;not null"               bson:"paymentMethod"              json:"paymentMethod"`
	PaymentResult    *PaymentResult  `gorm:"serializer:json"                bson:"paymentResult,omitempty"    json:"paymentResult,omitempty"`
	GatewayPaymentID *string         `gorm:"uniqueIndex;size:64"            bson:"gatewayPaymentId,omitempty" json:"-"`
	ItemsPrice       float64         `gorm:"not null;default:0"             bson:"itemsPrice"                 json:"itemsPrice"`
	TaxPrice         float64         `gorm:"not null;default:0"             bson:"taxPrice"                   json:"taxPrice"`
	ShippingPrice    float64         `gorm:"not null;default:0"             bson:"shippingPrice"              json:"shippingPrice"`
	TotalPrice       float64         `gorm:"not null;default:0"             bson:"totalPrice"                 json:"totalPrice"`
	OrderStatus      string          `gorm:"size:20;not null;index"         bson:"orderStatus"                json:"orderStatus"`
	PaymentStatus    string          `gorm:"size:20;not null"               bson:"paymentStatus"              json:"paymentStatus"`
	DeliveredAt      *time.Time      `                                      bson:"deliveredAt,omitempty"      json:"deliveredAt,omitempty"`
	OrderNotes       string          `gorm:"type:text"                      bson:"orderNotes,omitempty"       json:"orderNotes,omitempty"`
	CreatedAt        time.Time       `gorm:"index"                          bson:"createdAt"                  json:"createdAt"`
	UpdatedAt        time.Time       `                                      bson:"updatedAt"                  json:"updatedAt"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = NewID()
	}
	return nil
}
