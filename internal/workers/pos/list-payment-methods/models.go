// internal/workers/pos/list-payment-methods/models.go
package listpaymentmethods

import "pos-interpreter/internal/models"

type Input struct {
	// NamesOnly drops the account lists from the output.
	NamesOnly bool `json:"namesOnly,omitempty"`
}

type Output struct {
	PaymentMethods []models.PaymentMethod `json:"paymentMethods"`
	Names          []string               `json:"paymentMethodNames"`
}
