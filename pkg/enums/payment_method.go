package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is how a sale was paid or a purchase settled.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "efectivo"
	PaymentMethodCard     PaymentMethod = "tarjeta"
	PaymentMethodTransfer PaymentMethod = "transferencia"
)

// paymentLabels doubles as the set of known methods; the label is what a
// printed receipt shows.
var paymentLabels = map[PaymentMethod]string{
	PaymentMethodCash:     "Efectivo",
	PaymentMethodCard:     "Tarjeta",
	PaymentMethodTransfer: "Transferencia bancaria",
}

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	_, ok := paymentLabels[p]
	return ok
}

// Label is the receipt wording, or the raw value for unknown methods.
func (p PaymentMethod) Label() string {
	if label, ok := paymentLabels[p]; ok {
		return label
	}
	return string(p)
}

// ParsePaymentMethod accepts the stored value in any case, with surrounding
// blanks.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(value)))
	if !method.IsValid() {
		return "", fmt.Errorf("invalid payment method %q", value)
	}
	return method, nil
}
