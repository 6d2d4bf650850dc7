package hostsim

import "fmt"

// GasMeter tracks the gas of one call frame.
type GasMeter struct {
	limit uint64
	left  uint64
	used  uint64
}

// NewGasMeter returns a meter with limit gas available.
func NewGasMeter(limit uint64) *GasMeter {
	return &GasMeter{limit: limit, left: limit}
}

// Limit returns the gas the meter started with.
func (g *GasMeter) Limit() uint64 {
	return g.limit
}

// Left returns the remaining gas.
func (g *GasMeter) Left() uint64 {
	return g.left
}

// Used returns the consumed gas.
func (g *GasMeter) Used() uint64 {
	return g.used
}

// Consume charges amount. Running out of gas traps the frame.
func (g *GasMeter) Consume(amount uint64) {
	if amount == 0 {
		return
	}
	if g.left < amount {
		panic(fmt.Errorf("%w: left=%d, need=%d", ErrOutOfGas, g.left, amount))
	}
	g.left -= amount
	g.used += amount
}

// Refund returns amount previously consumed.
func (g *GasMeter) Refund(amount uint64) {
	if g.used < amount {
		panic(fmt.Sprintf("invalid refund: used=%d, refund=%d", g.used, amount))
	}
	g.left += amount
	g.used -= amount
}
