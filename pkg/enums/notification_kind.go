package enums

// NotificationKind labels the template an outgoing notification uses.
type NotificationKind string

const (
	NotificationOrderConfirmation   NotificationKind = "order_confirmation"
	NotificationAccountVerification NotificationKind = "account_verification"
	NotificationPasswordReset       NotificationKind = "password_reset"
	NotificationVendorDecision      NotificationKind = "vendor_decision"
)

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}
