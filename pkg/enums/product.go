package enums

import "fmt"

// ProductStatus marks whether a product is purchasable.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

var validProductStatuses = []ProductStatus{
	ProductStatusActive,
	ProductStatusInactive,
}

// String implements fmt.Stringer.
func (s ProductStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductStatus.
func (s ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductStatus converts raw input into a ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}

// SaleMode distinguishes an individual blind box from a boxed set.
type SaleMode string

const (
	SaleModeIndividual SaleMode = "individual"
	SaleModeSet        SaleMode = "set"
)

var validSaleModes = []SaleMode{
	SaleModeIndividual,
	SaleModeSet,
}

// String implements fmt.Stringer.
func (m SaleMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known SaleMode.
func (m SaleMode) IsValid() bool {
	for _, candidate := range validSaleModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// SaleModeFor maps the wire-level is_set flag onto a SaleMode.
func SaleModeFor(isSet bool) SaleMode {
	if isSet {
		return SaleModeSet
	}
	return SaleModeIndividual
}
