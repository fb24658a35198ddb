package order

// ListFilter selects orders for listing. A zero ForUserID lists every order.
type ListFilter struct {
	ForUserID int64
	Limit     int
	Offset    int
}
