// Package menu holds the static menu catalog and the cart type shared by
// the host and the table terminals.
package menu

import "unicode/utf8"

// MaxNameLen bounds item names, matching the fixed-size name buffers of the
// table units.
const MaxNameLen = 31

// Item is a menu entry. Prices are integer currency units.
type Item struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Catalog is an ordered, read-only list of menu items.
type Catalog []Item

// Default is the menu compiled into every terminal and the host.
var Default = Catalog{
	{ID: 1, Name: "Paneer Tikka", Price: 250},
	{ID: 2, Name: "Chicken Biryani", Price: 300},
	{ID: 3, Name: "Veg Biryani", Price: 200},
	{ID: 4, Name: "Dal Makhani", Price: 180},
	{ID: 5, Name: "Butter Naan", Price: 50},
	{ID: 6, Name: "Roti", Price: 20},
	{ID: 7, Name: "Masala Dosa", Price: 120},
	{ID: 8, Name: "Idli Sambar", Price: 80},
	{ID: 9, Name: "Chole Bhature", Price: 150},
	{ID: 10, Name: "Gulab Jamun", Price: 60},
}

// Len returns the number of items.
func (c Catalog) Len() int { return len(c) }

// At returns the item at position i and false when i is out of range.
func (c Catalog) At(i int) (Item, bool) {
	if i < 0 || i >= len(c) {
		return Item{}, false
	}
	return c[i], true
}

// TruncateName clips a name to MaxNameLen bytes.
func TruncateName(name string) string {
	return Clip(name, MaxNameLen)
}

// Clip shortens s to at most n bytes without splitting a UTF-8 sequence.
func Clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
