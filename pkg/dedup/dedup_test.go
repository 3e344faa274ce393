package dedup

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeduper_TTL(t *testing.T) {
	d := New(time.Minute, 10)
	now := time.Unix(1000, 0)
	d.now = func() time.Time { return now }

	assert.True(t, d.ShouldProcess("a"))
	assert.False(t, d.ShouldProcess("a"))
	assert.True(t, d.ShouldProcess(""))
	assert.True(t, d.ShouldProcess(""))

	now = now.Add(time.Minute)
	assert.True(t, d.ShouldProcess("a"))
}

func TestDeduper_Bounded(t *testing.T) {
	d := New(time.Hour, 3)
	now := time.Unix(0, 0)
	d.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		assert.True(t, d.ShouldProcess(strconv.Itoa(i)))
	}
	assert.Equal(t, 3, d.Len())
	assert.True(t, d.ShouldProcess("0"), "oldest id was evicted")
	assert.False(t, d.ShouldProcess("4"))
}

func TestNew_Defaults(t *testing.T) {
	d := New(0, 0)
	assert.Equal(t, 10*time.Minute, d.ttl)
	assert.Equal(t, 10000, d.max)
}
