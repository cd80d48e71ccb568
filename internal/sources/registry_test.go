package sources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatic(t *testing.T) {
	assets := []string{"BTC/USDT", "ETH/USDT"}
	reg := NewStatic(assets, []string{"Crypto Trading"})
	ctx := context.Background()

	assets[0] = "DOGE/USDT"
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, reg.Assets(ctx), "input slice is copied")

	got := reg.Assets(ctx)
	got[1] = "SOL/USDT"
	assert.Equal(t, "ETH/USDT", reg.Assets(ctx)[1], "output slice is copied")

	reg.Replace([]string{"SOL/USDT"}, nil)
	assert.Equal(t, []string{"SOL/USDT"}, reg.Assets(ctx))
	assert.Empty(t, reg.Topics(ctx))
}
