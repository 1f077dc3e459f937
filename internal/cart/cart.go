// Package cart prices a set of line items. It holds no connections and is
// rebuilt from the checkout request on every call.
package cart

import (
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Item struct {
	Product  model.Product
	Quantity int
}

// LineItem is a single provider line, priced per unit in minor currency units.
type LineItem struct {
	ProductID  uint
	Name       string
	UnitAmount int64
	Quantity   int64
}

type Cart struct {
	items        []Item
	discountRate decimal.Decimal
}

func New() *Cart {
	return &Cart{}
}

// AddItem merges into an existing entry for the same product, otherwise appends.
func (c *Cart) AddItem(product model.Product, quantity int) {
	for i := range c.items {
		if c.items[i].Product.ID == product.ID {
			c.items[i].Quantity += quantity
			return
		}
	}
	c.items = append(c.items, Item{Product: product, Quantity: quantity})
}

func (c *Cart) UpdateQuantity(productID uint, quantity int) {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			c.items[i].Quantity = quantity
			return
		}
	}
}

func (c *Cart) RemoveItem(productID uint) {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.items = nil
	c.discountRate = decimal.Zero
}

// Items returns a copy of the entries in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Subtotal is recomputed on every call.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.items {
		sum = sum.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// ApplyDiscount replaces any previous discount. A zero rate removes it.
func (c *Cart) ApplyDiscount(rate decimal.Decimal) {
	c.discountRate = rate
}

func (c *Cart) DiscountRate() decimal.Decimal {
	return c.discountRate
}

// Total is the subtotal scaled by (1 - rate), rounded to cents.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Mul(decimal.NewFromInt(1).Sub(c.discountRate)).Round(2)
}

func (c *Cart) Discount() decimal.Decimal {
	return c.Subtotal().Sub(c.Total())
}

// LineItems prices each entry per unit in cents; the provider multiplies by quantity.
func (c *Cart) LineItems() []LineItem {
	lines := make([]LineItem, 0, len(c.items))
	for _, it := range c.items {
		lines = append(lines, LineItem{
			ProductID:  it.Product.ID,
			Name:       it.Product.Name,
			UnitAmount: ToCents(it.Product.Price),
			Quantity:   int64(it.Quantity),
		})
	}
	return lines
}

// ToCents rounds a decimal amount to the nearest minor unit.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
