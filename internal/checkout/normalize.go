package checkout

import (
	"errors"

	"github.com/shopspring/decimal"
)

// orderPayload is the loose wire shape of a checkout response. Backends have
// shipped the total under both "total" and "total_amount" and the id under
// both "order_id" and "id"; everything is normalized into a canonical Order
// immediately on receipt instead of threading ambiguous fields onwards.
type orderPayload struct {
	OrderID       string           `json:"order_id"`
	ID            string           `json:"id"`
	OrderNumber   string           `json:"order_number"`
	Status        string           `json:"status"`
	Total         *decimal.Decimal `json:"total"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`
	CustomerEmail string           `json:"customer_email"`
	Message       string           `json:"message"`
}

func (p *orderPayload) normalize() (*Order, error) {
	if p.OrderNumber == "" {
		return nil, errors.New("checkout: response is missing an order number")
	}

	order := &Order{
		OrderID:       p.OrderID,
		OrderNumber:   p.OrderNumber,
		Status:        p.Status,
		Total:         decimal.Zero,
		CustomerEmail: p.CustomerEmail,
		Message:       p.Message,
	}
	if order.OrderID == "" {
		order.OrderID = p.ID
	}
	switch {
	case p.Total != nil:
		order.Total = *p.Total
	case p.TotalAmount != nil:
		order.Total = *p.TotalAmount
	}
	return order, nil
}
