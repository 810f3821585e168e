package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.FixedZone("x", 3600))
	prev := NowFunc
	NowFunc = func() time.Time { return fixed }
	defer func() { NowFunc = prev }()

	actual := Now()
	assert.Equal(t, time.UTC, actual.Location())
	assert.Equal(t, 123456000, actual.Nanosecond())
	assert.True(t, actual.Equal(fixed.Truncate(time.Microsecond)))
}
