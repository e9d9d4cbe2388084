package openpgp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakedSystemTime(t *testing.T) {
	defer ClearFakedSystemTime()

	SetFakedSystemTime(time.Unix(1700000000, 0))
	assert.Equal(t, int64(1700000000), Now().Unix())

	ClearFakedSystemTime()
	assert.InDelta(t, time.Now().Unix(), Now().Unix(), 2)
}
