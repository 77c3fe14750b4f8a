package cart

// Item is one cart line. Product ids are unique within a cart and items
// keep their insertion order.
type Item struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// Customer is the billing/shipping snapshot captured during checkout. It
// travels with the cart and is frozen onto the order when payment completes.
type Customer struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Company   string `json:"company,omitempty" validate:"max=150"`
	Address1  string `json:"address_1" validate:"required,max=200"`
	Address2  string `json:"address_2,omitempty" validate:"max=200"`
	Postcode  string `json:"postcode" validate:"required,max=20"`
	City      string `json:"city" validate:"required,max=100"`
	Country   string `json:"country" validate:"required,iso3166_1_alpha2"`
	Telephone string `json:"telephone" validate:"required,max=30"`

	ShipToDifferent bool   `json:"ship_to_different,omitempty"`
	ShipAddress1    string `json:"ship_address_1,omitempty" validate:"max=200"`
	ShipAddress2    string `json:"ship_address_2,omitempty" validate:"max=200"`
	ShipPostcode    string `json:"ship_postcode,omitempty" validate:"max=20"`
	ShipCity        string `json:"ship_city,omitempty" validate:"max=100"`
	ShipCountry     string `json:"ship_country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
}

// Cart is the mutable per-token state held in Redis.
type Cart struct {
	Items    []Item    `json:"items"`
	Customer *Customer `json:"customer,omitempty"`
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

// maxQty bounds a single line quantity; anything above is clamped.
const maxQty = 999

// Add merges qty into an existing line or appends a new one.
func (c *Cart) Add(productID int64, qty int) {
	if qty < 1 {
		qty = 1
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Qty = clampQty(c.Items[i].Qty + qty)
			return
		}
	}
	c.Items = append(c.Items, Item{ProductID: productID, Qty: clampQty(qty)})
}

// SetQty replaces a line quantity. Zero or negative removes the line,
// preserving the order of the remaining items.
func (c *Cart) SetQty(productID int64, qty int) {
	if qty <= 0 {
		c.Remove(productID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Qty = clampQty(qty)
			return
		}
	}
}

// Remove drops a line if present.
func (c *Cart) Remove(productID int64) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

// ProductIDs returns the ids referenced by the cart, in item order.
func (c Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

func clampQty(qty int) int {
	if qty < 1 {
		return 1
	}
	if qty > maxQty {
		return maxQty
	}
	return qty
}
