package engine

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"sync"

	"github.com/viant/vecdelta/embedding"
	sqlite "modernc.org/sqlite"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterDeltaFunctions registers the delta SQL functions with the driver
// so they are available on new connections opened after this call:
//
//	vec_delta(base BLOB, target BLOB, base_id INTEGER) -> encoded delta BLOB
//	vec_delta_apply(base BLOB, delta BLOB)            -> embedding BLOB
//	vec_delta_count(delta BLOB)                       -> number of changes
//	vec_l2(a BLOB, b BLOB)                            -> L2 distance
//
// Embedding BLOBs use the F32 layout. Existing open connections will not
// see the functions.
func RegisterDeltaFunctions(_ *sql.DB) error {
	registerOnce.Do(func() {
		for _, fn := range []struct {
			name  string
			nArgs int32
			impl  func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error)
		}{
			{"vec_delta", 3, vecDeltaImpl},
			{"vec_delta_apply", 2, vecDeltaApplyImpl},
			{"vec_delta_count", 1, vecDeltaCountImpl},
			{"vec_l2", 2, vecL2Impl},
		} {
			if err := sqlite.RegisterDeterministicScalarFunction(fn.name, fn.nArgs, fn.impl); err != nil && registerErr == nil {
				registerErr = fmt.Errorf("engine: register %s: %w", fn.name, err)
			}
		}
	})
	return registerErr
}

func asVector(arg driver.Value) (embedding.Vector, bool, error) {
	switch v := arg.(type) {
	case nil:
		return embedding.Vector{}, false, nil
	case []byte:
		if len(v)%4 != 0 {
			return embedding.Vector{}, false, fmt.Errorf("vec: invalid embedding blob length %d", len(v))
		}
		data := make([]byte, len(v))
		copy(data, v)
		return embedding.Vector{Dim: uint32(len(v) / 4), DType: embedding.F32, Data: data}, true, nil
	default:
		return embedding.Vector{}, false, fmt.Errorf("vec: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

func asDelta(arg driver.Value) (*embedding.VectorDelta, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return embedding.Decode(v)
	default:
		return nil, fmt.Errorf("vec: unsupported argument type %T for delta; want BLOB", arg)
	}
}

func vecDeltaImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("vec_delta: expected 3 arguments, got %d", len(args))
	}
	base, ok, err := asVector(args[0])
	if err != nil || !ok {
		return nil, err
	}
	target, ok, err := asVector(args[1])
	if err != nil || !ok {
		return nil, err
	}
	baseID, ok := args[2].(int64)
	if !ok {
		return nil, fmt.Errorf("vec_delta: base_id must be INTEGER, got %T", args[2])
	}
	delta, err := embedding.FromVectors(base, target, uint64(baseID))
	if err != nil {
		return nil, err
	}
	return delta.Encode()
}

func vecDeltaApplyImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_delta_apply: expected 2 arguments, got %d", len(args))
	}
	base, ok, err := asVector(args[0])
	if err != nil || !ok {
		return nil, err
	}
	delta, err := asDelta(args[1])
	if err != nil || delta == nil {
		return nil, err
	}
	out, err := delta.Apply(base)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

func vecDeltaCountImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("vec_delta_count: expected 1 argument, got %d", len(args))
	}
	delta, err := asDelta(args[0])
	if err != nil || delta == nil {
		return nil, err
	}
	return int64(len(delta.Changes)), nil
}

func vecL2Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_l2: expected 2 arguments, got %d", len(args))
	}
	a, ok, err := asVector(args[0])
	if err != nil || !ok {
		return nil, err
	}
	b, ok, err := asVector(args[1])
	if err != nil || !ok {
		return nil, err
	}
	if a.Dim != b.Dim {
		return nil, fmt.Errorf("vec: L2 dim mismatch %d vs %d", a.Dim, b.Dim)
	}
	var sum float64
	for i := 0; i < int(a.Dim); i++ {
		d := float64(a.At(i)) - float64(b.At(i))
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
