package enums

import "fmt"

// RefundType distinguishes a full payout from a partial one.
type RefundType string

const (
	RefundTypeFull    RefundType = "full"
	RefundTypePartial RefundType = "partial"
)

var validRefundTypes = []RefundType{
	RefundTypeFull,
	RefundTypePartial,
}

// String implements fmt.Stringer.
func (t RefundType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known RefundType.
func (t RefundType) IsValid() bool {
	for _, candidate := range validRefundTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseRefundType converts raw input into a RefundType.
func ParseRefundType(value string) (RefundType, error) {
	for _, candidate := range validRefundTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund type %q", value)
}

// RefundTicketStatus tracks a ticket from request through payout.
type RefundTicketStatus string

const (
	RefundTicketStatusOpen     RefundTicketStatus = "open"
	RefundTicketStatusApproved RefundTicketStatus = "approved"
	RefundTicketStatusRejected RefundTicketStatus = "rejected"
	RefundTicketStatusPaid     RefundTicketStatus = "paid"
)

var validRefundTicketStatuses = []RefundTicketStatus{
	RefundTicketStatusOpen,
	RefundTicketStatusApproved,
	RefundTicketStatusRejected,
	RefundTicketStatusPaid,
}

// String implements fmt.Stringer.
func (s RefundTicketStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RefundTicketStatus.
func (s RefundTicketStatus) IsValid() bool {
	for _, candidate := range validRefundTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRefundTicketStatus converts raw input into a RefundTicketStatus.
func ParseRefundTicketStatus(value string) (RefundTicketStatus, error) {
	for _, candidate := range validRefundTicketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund ticket status %q", value)
}
