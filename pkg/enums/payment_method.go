package enums

import "fmt"

// PaymentMethod is the instrument a customer picked at checkout.
type PaymentMethod string

const (
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodNetBanking PaymentMethod = "net_banking"
	PaymentMethodWallet     PaymentMethod = "wallet"
	PaymentMethodGateway    PaymentMethod = "gateway"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodUPI,
	PaymentMethodCard,
	PaymentMethodNetBanking,
	PaymentMethodWallet,
	PaymentMethodGateway,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
