package entities

// OperationKind names a provider API operation with a known unit cost.
type OperationKind string

const (
	// OpDelete removes one comment per item.
	OpDelete OperationKind = "delete"
	// OpList fetches comments a page at a time.
	OpList OperationKind = "list"
)

// Tariff holds the provider's unit costs.
type Tariff struct {
	DeleteCost int64
	ListCost   int64
	PageSize   int64
}

// EstimateCost returns the quota units an operation over itemCount items will
// consume. Deletions are charged per item; list reads are charged per page,
// rounded up.
func EstimateCost(kind OperationKind, itemCount int64, t Tariff) (int64, error) {
	if itemCount < 0 {
		itemCount = 0
	}
	switch kind {
	case OpDelete:
		return itemCount * t.DeleteCost, nil
	case OpList:
		if t.PageSize <= 0 {
			return 0, ErrUnknownOperation
		}
		pages := (itemCount + t.PageSize - 1) / t.PageSize
		return pages * t.ListCost, nil
	default:
		return 0, ErrUnknownOperation
	}
}
