package menu

// MaxCartLines is the number of distinct items a cart can hold.
const MaxCartLines = 20

// Line is one item in a cart: a snapshot of the menu entry plus a quantity.
type Line struct {
	ItemID    int    `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"price"`
	Quantity  int    `json:"qty"`
}

// Subtotal returns UnitPrice × Quantity.
func (l Line) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart is an ordered selection of lines, unique by item id, with a running
// total. The zero value is an empty cart holding up to MaxCartLines lines.
type Cart struct {
	lines    []Line
	total    int64
	capacity int
}

// NewCart returns an empty cart with the given line capacity. A capacity of
// zero or less means MaxCartLines.
func NewCart(capacity int) Cart {
	return Cart{capacity: capacity}
}

func (c *Cart) limit() int {
	if c.capacity <= 0 {
		return MaxCartLines
	}
	return c.capacity
}

// Add puts qty units of item into the cart. Returns false when qty is not
// positive or the item would need a new line in a full cart.
func (c *Cart) Add(item Item, qty int) bool {
	return c.AddLine(Line{ItemID: item.ID, Name: item.Name, UnitPrice: item.Price, Quantity: qty})
}

// AddLine merges a line into the cart, coalescing by item id. The name and
// price of an existing line are kept as first recorded.
func (c *Cart) AddLine(l Line) bool {
	if l.Quantity <= 0 {
		return false
	}
	for i := range c.lines {
		if c.lines[i].ItemID == l.ItemID {
			c.lines[i].Quantity += l.Quantity
			c.total += c.lines[i].UnitPrice * int64(l.Quantity)
			return true
		}
	}
	if len(c.lines) >= c.limit() {
		return false
	}
	l.Name = TruncateName(l.Name)
	c.lines = append(c.lines, l)
	c.total += l.Subtotal()
	return true
}

// Merge adds every line of other into c and returns how many lines were
// dropped for lack of capacity.
func (c *Cart) Merge(other Cart) (dropped int) {
	for _, l := range other.lines {
		if !c.AddLine(l) {
			dropped++
		}
	}
	return dropped
}

// Remove takes up to qty units of itemID out of the cart, deleting the line
// when nothing is left. It returns the amount subtracted from the total.
func (c *Cart) Remove(itemID, qty int) int64 {
	for i := range c.lines {
		if c.lines[i].ItemID != itemID {
			continue
		}
		if qty > c.lines[i].Quantity {
			qty = c.lines[i].Quantity
		}
		amount := c.lines[i].UnitPrice * int64(qty)
		c.lines[i].Quantity -= qty
		c.total -= amount
		if c.lines[i].Quantity == 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		return amount
	}
	return 0
}

// Lines returns a copy of the cart lines in insertion order.
func (c Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total is Σ UnitPrice × Quantity over all lines.
func (c Cart) Total() int64 { return c.total }

// Len is the number of distinct lines.
func (c Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Reset empties the cart, keeping its capacity.
func (c *Cart) Reset() {
	c.lines = nil
	c.total = 0
}

// Clone returns an independent copy.
func (c Cart) Clone() Cart {
	return Cart{lines: c.Lines(), total: c.total, capacity: c.capacity}
}
