// Package jobs holds the shop's background queue jobs.
package jobs

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/pkg/mail"
	"github.com/shashiranjanraj/kisanmart/pkg/queue"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Register makes the mail jobs known to the default queue.
func Register() {
	queue.Register(&OrderPlacedMail{}, &OrderStatusMail{})
}

// reference is the short order number shown to customers.
func reference(orderID string) string {
	if len(orderID) > 8 {
		orderID = orderID[len(orderID)-8:]
	}
	return strings.ToUpper(orderID)
}

// OrderPlacedMail confirms a new order to the customer.
type OrderPlacedMail struct {
	Email         string             `json:"email"`
	Name          string             `json:"name"`
	OrderID       string             `json:"orderId"`
	Items         []models.OrderItem `json:"items"`
	ItemsPrice    float64            `json:"itemsPrice"`
	TaxPrice      float64            `json:"taxPrice"`
	ShippingPrice float64            `json:"shippingPrice"`
	TotalPrice    float64            `json:"totalPrice"`
	PaymentMethod string             `json:"paymentMethod"`
	PaymentStatus string             `json:"paymentStatus"`
}

func (OrderPlacedMail) JobName() string { return "mail.order_placed" }

func (j *OrderPlacedMail) Reference() string { return reference(j.OrderID) }

func (j *OrderPlacedMail) Handle(ctx context.Context) error {
	return mail.To(j.Email).
		Subject(fmt.Sprintf("KisanMart order #%s confirmed", j.Reference())).
		Render(templates.Lookup("order_placed.html"), j).
		Send(ctx)
}

// OrderStatusMail tells the customer about a status change.
type OrderStatusMail struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	OrderID string `json:"orderId"`
	From    string `json:"from"`
	Status  string `json:"status"`
	Notes   string `json:"notes,omitempty"`
}

func (OrderStatusMail) JobName() string { return "mail.order_status" }

func (j *OrderStatusMail) Reference() string { return reference(j.OrderID) }

func (j *OrderStatusMail) Handle(ctx context.Context) error {
	return mail.To(j.Email).
		Subject(fmt.Sprintf("KisanMart order #%s is %s", j.Reference(), strings.ToLower(j.Status))).
		Render(templates.Lookup("order_status.html"), j).
		Send(ctx)
}
