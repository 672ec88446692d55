package domain

// StockUnit is the on-hand counter of one product variant.
// Version increases by one on every successful mutation.
type StockUnit struct {
	VariantID int64
	Quantity  int32
	Version   int64
}

// Reservation records one successful stock decrement made during a checkout.
type Reservation struct {
	VariantID int64
	Quantity  int32
}
