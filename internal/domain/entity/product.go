package entity

// Product producto del catálogo. Solo los productos con TrackStock generan operaciones de stock.
type Product struct {
	ID         string
	SKU        string
	Name       string
	TrackStock bool
}
