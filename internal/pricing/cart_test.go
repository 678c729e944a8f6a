package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddMergesQuantityAndOverwritesDiscount(t *testing.T) {
	p := Product{ID: "p1", UnitPrice: Units(100), AvailableQty: 10}
	var c Cart
	c, err := c.Add(p, 2, 0)
	require.NoError(t, err)
	c, err = c.Add(p, 3, Units(10))
	require.NoError(t, err)

	require.Equal(t, 1, c.Len())
	line, ok := c.Line("p1")
	require.True(t, ok)
	require.Equal(t, 5, line.Qty)
	require.Equal(t, Units(10), line.Discount)
	require.Equal(t, Units(90), line.UnitPrice)
	require.Equal(t, Units(450), line.Total())
}

func TestAddLaterDiscountReplacesEarlierOne(t *testing.T) {
	p := Product{ID: "p1", UnitPrice: Units(100), AvailableQty: 10}
	c, _ := Cart{}.Add(p, 1, Units(40))
	c, _ = c.Add(p, 1, Units(10))
	line, _ := c.Line("p1")
	// No averaging: the last add's discount applies to every unit.
	require.Equal(t, Units(10), line.Discount)
	require.Equal(t, Units(180), line.Total())
}

func TestAddClampsQtyAndDiscount(t *testing.T) {
	p := Product{ID: "p1", UnitPrice: Units(20), AvailableQty: 4}
	c, err := Cart{}.Add(p, 99, Units(500))
	require.NoError(t, err)
	line, _ := c.Line("p1")
	require.Equal(t, 4, line.Qty)
	require.Equal(t, Units(20), line.Discount)
	require.Equal(t, Money(0), line.UnitPrice)

	c, err = Cart{}.Add(p, -3, -Units(1))
	require.NoError(t, err)
	line, _ = c.Line("p1")
	require.Equal(t, 1, line.Qty)
	require.Equal(t, Money(0), line.Discount)
	require.Equal(t, Units(20), line.UnitPrice)
}

func TestAddOutOfStock(t *testing.T) {
	c := Cart{}
	next, err := c.Add(Product{ID: "p1", UnitPrice: Units(20)}, 1, 0)
	require.True(t, errors.Is(err, ErrOutOfStock))
	require.Equal(t, 0, next.Len())
}

func TestAddDoesNotMutateReceiver(t *testing.T) {
	p := Product{ID: "p1", UnitPrice: Units(20), AvailableQty: 9}
	base, _ := Cart{}.Add(p, 1, 0)
	_, _ = base.Add(p, 2, Units(5))
	line, _ := base.Line("p1")
	require.Equal(t, 1, line.Qty)
	require.Equal(t, Money(0), line.Discount)
}

func TestRemoveIgnoresQuantity(t *testing.T) {
	c, _ := Cart{}.Add(Product{ID: "a", UnitPrice: Units(1), AvailableQty: 9}, 7, 0)
	c, _ = c.Add(Product{ID: "b", UnitPrice: Units(1), AvailableQty: 9}, 1, 0)
	c = c.Remove("a")
	require.Equal(t, 1, c.Len())
	_, ok := c.Line("a")
	require.False(t, ok)
	require.Equal(t, 1, c.Remove("missing").Len())
}

func TestChangeQty(t *testing.T) {
	c, _ := Cart{}.Add(Product{ID: "a", UnitPrice: Units(3), AvailableQty: 5}, 2, 0)

	up := c.ChangeQty("a", 1)
	line, _ := up.Line("a")
	require.Equal(t, 3, line.Qty)

	capped := c.ChangeQty("a", 10)
	line, _ = capped.Line("a")
	require.Equal(t, 5, line.Qty)

	down := c.ChangeQty("a", -1)
	line, _ = down.Line("a")
	require.Equal(t, 1, line.Qty)

	gone := c.ChangeQty("a", -2)
	require.Equal(t, 0, gone.Len())

	below := c.ChangeQty("a", -10)
	require.Equal(t, 0, below.Len())

	require.Equal(t, 1, c.ChangeQty("missing", 1).Len())
	line, _ = c.Line("a")
	require.Equal(t, 2, line.Qty)
}

func TestItemCount(t *testing.T) {
	c, _ := Cart{}.Add(Product{ID: "a", UnitPrice: Units(3), AvailableQty: 5}, 2, 0)
	c, _ = c.Add(Product{ID: "b", UnitPrice: Units(3), AvailableQty: 5}, 3, 0)
	require.Equal(t, 5, c.ItemCount())
}
