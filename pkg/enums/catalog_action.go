package enums

// CatalogAction names the mutation recorded in a product audit entry.
type CatalogAction string

const (
	CatalogActionProductAdded       CatalogAction = "product_added"
	CatalogActionProductUpdated     CatalogAction = "product_updated"
	CatalogActionProductDeactivated CatalogAction = "product_deactivated"
	CatalogActionProductReactivated CatalogAction = "product_reactivated"
	CatalogActionStockDebited       CatalogAction = "stock_debited"
)

// String implements fmt.Stringer.
func (a CatalogAction) String() string {
	return string(a)
}
