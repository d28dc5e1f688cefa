package ingest

// CategoryGroup holds one customer's orders for a single canonical category, in the
// order the records appeared in the input batch.
type CategoryGroup struct {
	Category string
	Orders   []Order
}

// CustomerGroup holds one customer's categories in first-appearance order.
type CustomerGroup struct {
	CustomerID string
	Categories []CategoryGroup
}

// Grouped is the result of partitioning a raw order batch.
type Grouped struct {
	Customers []CustomerGroup
	// Dropped counts rows discarded for missing a customer or product identifier.
	Dropped int
}

// Lookup returns the category group for a (customer, category) pair, or nil.
func (g Grouped) Lookup(customerID, category string) *CategoryGroup {
	for i := range g.Customers {
		if g.Customers[i].CustomerID != customerID {
			continue
		}
		for j := range g.Customers[i].Categories {
			if g.Customers[i].Categories[j].Category == category {
				return &g.Customers[i].Categories[j]
			}
		}
	}
	return nil
}

// Grouper partitions raw orders into per-customer, per-category sequences.
type Grouper struct {
	normalizer *Normalizer
}

// NewGrouper builds a Grouper around the given normalizer. A nil normalizer selects
// the default category table.
func NewGrouper(normalizer *Normalizer) *Grouper {
	if normalizer == nil {
		normalizer = NewNormalizer(nil)
	}
	return &Grouper{normalizer: normalizer}
}

// Group resolves and buckets every raw order. Rows without an identifiable customer
// or product are counted in Dropped and skipped; everything else is kept verbatim,
// unsorted (date ordering is the caller's concern).
func (g *Grouper) Group(raw []RawOrder) Grouped {
	var out Grouped
	index := make(map[string]int)

	for _, rec := range raw {
		customerID, product, order, ok := Resolve(rec)
		if !ok {
			out.Dropped++
			continue
		}
		category := g.normalizer.Normalize(product)

		ci, seen := index[customerID]
		if !seen {
			ci = len(out.Customers)
			index[customerID] = ci
			out.Customers = append(out.Customers, CustomerGroup{CustomerID: customerID})
		}

		cust := &out.Customers[ci]
		placed := false
		for j := range cust.Categories {
			if cust.Categories[j].Category == category {
				cust.Categories[j].Orders = append(cust.Categories[j].Orders, order)
				placed = true
				break
			}
		}
		if !placed {
			cust.Categories = append(cust.Categories, CategoryGroup{
				Category: category,
				Orders:   []Order{order},
			})
		}
	}

	return out
}
