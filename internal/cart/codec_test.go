package cart

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/entity"
)

func TestEncodeDecodeKeepsLinesAndOrder(t *testing.T) {
	c := New()
	c.Add(retro())
	c.Add(retro())
	c.Add(Item{ID: "feed-doc-9", Name: "Boné", PriceCents: 3999, Image: "/b.jpg"})

	state, err := c.Encode()
	require.NoError(t, err)

	back, err := Decode(state)
	require.NoError(t, err)
	assert.Equal(t, c.Entries(), back.Entries())
	assert.Equal(t, c.Totals(), back.Totals())
}

func TestEncodeEmptyCart(t *testing.T) {
	state, err := New().Encode()
	require.NoError(t, err)
	assert.Equal(t, "[]", state)

	back, err := Decode("")
	require.NoError(t, err)
	assert.Equal(t, 0, back.Len())
}

func TestDecodeClampsQuantityAndPrice(t *testing.T) {
	c, err := Decode(`[{"id":"1","price_cents":-5,"qty":0},{"id":"2","name":"B","price_cents":999999999999,"qty":2635249153387078803}]`)
	require.NoError(t, err)

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Produto", entries[0].Name)
	assert.Equal(t, 1, entries[0].Qty)
	assert.Equal(t, int64(0), entries[0].PriceCents)
	assert.Equal(t, entity.MaxItemQty, entries[1].Qty)
	assert.Equal(t, int64(entity.MaxPriceCents), entries[1].PriceCents)
}

func TestDecodeRejectsBadState(t *testing.T) {
	_, err := Decode("{not json")
	assert.Error(t, err)

	_, err = Decode(`[{"name":"sem id"}]`)
	assert.Error(t, err)

	lines := make([]string, MaxLines+1)
	for i := range lines {
		lines[i] = fmt.Sprintf(`{"id":"%d","qty":1}`, i)
	}
	_, err = Decode("[" + strings.Join(lines, ",") + "]")
	assert.ErrorIs(t, err, ErrTooManyLines)
}

func TestIncrementStopsAtMaxQty(t *testing.T) {
	c, err := Decode(fmt.Sprintf(`[{"id":"1","name":"A","price_cents":100,"qty":%d}]`, entity.MaxItemQty))
	require.NoError(t, err)

	require.NoError(t, c.Increment(0))
	c.Add(Item{ID: "1"})
	assert.Equal(t, entity.MaxItemQty, c.Entries()[0].Qty)
}
