//go:build !(tinygo || wasip1)

package hostfn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type namedHost struct {
	Host
	name string
}

func TestInstallRestore(t *testing.T) {
	assert.PanicsWithValue(t, ErrNoHost, func() { Default() })

	first := &namedHost{name: "first"}
	restoreFirst := Install(first)
	assert.Same(t, first, Default())

	second := &namedHost{name: "second"}
	restoreSecond := Install(second)
	assert.Same(t, second, Default())

	restoreSecond()
	assert.Same(t, first, Default())
	restoreFirst()
	assert.PanicsWithValue(t, ErrNoHost, func() { Default() })
}
