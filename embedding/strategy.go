package embedding

import (
	"fmt"
	"strings"
)

// UpdateStrategy selects how a vector update is shipped downstream.
type UpdateStrategy uint8

const (
	// StrategyAuto ships whichever of delta or full vector is smaller.
	StrategyAuto UpdateStrategy = iota
	// StrategyFull always ships the complete vector.
	StrategyFull
	// StrategyDelta always ships the delta.
	StrategyDelta
)

func (s UpdateStrategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyFull:
		return "full"
	case StrategyDelta:
		return "delta"
	}
	return fmt.Sprintf("strategy(%d)", uint8(s))
}

// ParseUpdateStrategy parses "auto", "full" or "delta". Empty means auto.
func ParseUpdateStrategy(s string) (UpdateStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return StrategyAuto, nil
	case "full":
		return StrategyFull, nil
	case "delta":
		return StrategyDelta, nil
	}
	return 0, fmt.Errorf("embedding: unknown update strategy %q", s)
}

// ChooseStrategy resolves s for a concrete delta against a vector of dim
// elements. It never returns StrategyAuto. Auto picks the delta only when
// its encoding is strictly smaller than the raw vector bytes.
func ChooseStrategy(d *VectorDelta, dim uint32, s UpdateStrategy) UpdateStrategy {
	if s != StrategyAuto {
		return s
	}
	full := int(dim) * d.elemType().Size()
	if d.EncodedSize() < full {
		return StrategyDelta
	}
	return StrategyFull
}
