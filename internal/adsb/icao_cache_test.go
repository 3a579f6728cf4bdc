package adsb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestICAOCache_AddAndExpire(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewICAOCache(5 * time.Second)
	c.nowFunc = func() time.Time { return now }

	c.Add(0xABCDEF)
	assert.True(t, c.Contains(0xABCDEF))

	now = now.Add(3 * time.Second)
	assert.True(t, c.Contains(0xABCDEF))

	now = now.Add(3 * time.Second)
	assert.False(t, c.Contains(0xABCDEF))
}

func TestICAOCache_UnseenAddressNotContained(t *testing.T) {
	c := NewICAOCache(time.Minute)
	assert.False(t, c.Contains(0x000001))
}

func TestICAOCache_BucketCollisionEvictsOlder(t *testing.T) {
	c := NewICAOCache(time.Minute)
	// find two addresses that collide in the same bucket
	a := uint32(1)
	b := a + icaoCacheBuckets
	c.Add(a)
	c.Add(b)
	assert.False(t, c.Contains(a))
	assert.True(t, c.Contains(b))
}
