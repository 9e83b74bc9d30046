package idhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRunIDIsDeterministic(t *testing.T) {
	a := ComputeRunID("btc-grid", "BTC", 5000, 5, 1_700_000_000_000, 1_700_000_240_000)
	b := ComputeRunID("btc-grid", "BTC", 5000, 5, 1_700_000_000_000, 1_700_000_240_000)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestComputeRunIDChangesWithInputs(t *testing.T) {
	base := ComputeRunID("btc-grid", "BTC", 5000, 5, 1_700_000_000_000, 1_700_000_240_000)

	assert.NotEqual(t, base, ComputeRunID("eth-grid", "BTC", 5000, 5, 1_700_000_000_000, 1_700_000_240_000))
	assert.NotEqual(t, base, ComputeRunID("btc-grid", "ETH", 5000, 5, 1_700_000_000_000, 1_700_000_240_000))
	assert.NotEqual(t, base, ComputeRunID("btc-grid", "BTC", 1000, 5, 1_700_000_000_000, 1_700_000_240_000))
	assert.NotEqual(t, base, ComputeRunID("btc-grid", "BTC", 5000, 6, 1_700_000_000_000, 1_700_000_240_000))
	assert.NotEqual(t, base, ComputeRunID("btc-grid", "BTC", 5000, 5, 1_700_000_000_001, 1_700_000_240_000))
}
