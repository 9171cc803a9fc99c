package runtime

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/sbl8/tinysine/core"
	"github.com/sbl8/tinysine/model"
)

// absModel computes relu(x) + relu(-x) with unit scales, so every
// requantization is exact.
func absModel() *model.Model {
	unit := core.QuantParams{Scale: 1}
	i32 := func(vals ...int32) []byte {
		b := make([]byte, 4*len(vals))
		for i, v := range vals {
			binary.LittleEndian.PutUint32(b[i*4:], uint32(v))
		}
		return b
	}

	return &model.Model{
		Version: model.SchemaVersion,
		Tensors: []model.Tensor{
			{Type: core.DTypeInt8, Shape: []int32{1, 1}, Buffer: model.NoBuffer, Params: unit},
			{Type: core.DTypeInt8, Shape: []int32{2, 1}, Buffer: 0, Params: unit},
			{Type: core.DTypeInt32, Shape: []int32{2}, Buffer: 1},
			{Type: core.DTypeInt8, Shape: []int32{1, 2}, Buffer: model.NoBuffer, Params: unit},
			{Type: core.DTypeInt8, Shape: []int32{1, 2}, Buffer: model.NoBuffer, Params: unit},
			{Type: core.DTypeInt8, Shape: []int32{1, 2}, Buffer: 2, Params: unit},
			{Type: core.DTypeInt8, Shape: []int32{1, 1}, Buffer: model.NoBuffer, Params: unit},
		},
		Operators: []model.Operator{
			{Opcode: model.OpFullyConnected, Inputs: []uint16{0, 1, 2}, Outputs: []uint16{3}},
			{Opcode: model.OpRelu, Inputs: []uint16{3}, Outputs: []uint16{4}},
			{Opcode: model.OpFullyConnected, Inputs: []uint16{4, 5}, Outputs: []uint16{6}},
		},
		Buffers: [][]byte{{1, 0xFF}, i32(0, 0), {1, 1}},
		Inputs:  []uint16{0},
		Outputs: []uint16{6},
	}
}

func fullResolver(t testing.TB) *MutableOpResolver {
	t.Helper()
	r := NewMutableOpResolver(4)
	for _, add := range []func() error{r.AddFullyConnected, r.AddRelu, r.AddQuantize, r.AddDequantize} {
		if err := add(); err != nil {
			t.Fatalf("resolver: %v", err)
		}
	}
	return r
}

func newInterpreter(t testing.TB, m *model.Model, arenaSize uintptr) (*Interpreter, *Arena) {
	t.Helper()
	arena, err := NewArena(arenaSize)
	if err != nil {
		t.Fatalf("NewArena failed: %v", err)
	}
	ip, err := NewInterpreter(m, fullResolver(t), arena, &InterpreterOptions{EnableStats: true})
	if err != nil {
		t.Fatalf("NewInterpreter failed: %v", err)
	}
	return ip, arena
}

func TestInterpreterInvoke(t *testing.T) {
	t.Parallel()
	ip, _ := newInterpreter(t, absModel(), 1024)
	if err := ip.AllocateTensors(); err != nil {
		t.Fatalf("AllocateTensors failed: %v", err)
	}

	in, out := ip.Input(0), ip.Output(0)
	if in == nil || out == nil {
		t.Fatal("nil graph tensors after allocation")
	}
	if ip.Input(1) != nil || ip.Output(-1) != nil {
		t.Error("out-of-range graph tensor is not nil")
	}

	tests := []struct {
		x, want int8
	}{
		{5, 5},
		{-7, 7},
		{0, 0},
		{-128, 127},
	}
	for _, tt := range tests {
		in.SetInt8(0, tt.x)
		if err := ip.Invoke(); err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
		if got := out.Int8(0); got != tt.want {
			t.Errorf("abs(%d) = %d, want %d", tt.x, got, tt.want)
		}
	}

	if got := ip.Stats().TotalInvocations; got != int64(len(tests)) {
		t.Errorf("TotalInvocations = %d, want %d", got, len(tests))
	}
	// Four activation tensors, each on its own 16-byte boundary.
	if got := ip.ArenaUsedBytes(); got != 48+1 {
		t.Errorf("ArenaUsedBytes() = %d, want %d", got, 48+1)
	}
}

func TestInterpreterAllocateTwice(t *testing.T) {
	t.Parallel()
	ip, arena := newInterpreter(t, absModel(), 1024)
	if err := ip.AllocateTensors(); err != nil {
		t.Fatal(err)
	}
	used := arena.UsedSize()
	if err := ip.AllocateTensors(); err != nil {
		t.Fatalf("second AllocateTensors failed: %v", err)
	}
	if arena.UsedSize() != used {
		t.Errorf("second AllocateTensors consumed arena: %d -> %d", used, arena.UsedSize())
	}
}

func TestInterpreterArenaTooSmall(t *testing.T) {
	t.Parallel()
	ip, arena := newInterpreter(t, absModel(), 32)

	err := ip.AllocateTensors()
	if !errors.Is(err, ErrArenaExhausted) {
		t.Fatalf("AllocateTensors() error = %v, want %v", err, ErrArenaExhausted)
	}
	if arena.UsedSize() != 0 {
		t.Errorf("failed allocation left %d bytes used", arena.UsedSize())
	}
	if ip.Input(0) != nil || ip.Output(0) != nil {
		t.Error("graph tensors available after failed allocation")
	}
	if err := ip.Invoke(); !errors.Is(err, ErrNotAllocated) {
		t.Errorf("Invoke() error = %v, want %v", err, ErrNotAllocated)
	}
}

func TestInterpreterUnsupportedOp(t *testing.T) {
	t.Parallel()
	arena, err := NewArena(1024)
	if err != nil {
		t.Fatal(err)
	}
	r := NewMutableOpResolver(4)
	if err := r.AddFullyConnected(); err != nil {
		t.Fatal(err)
	}
	ip, err := NewInterpreter(absModel(), r, arena, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := ip.AllocateTensors(); !errors.Is(err, ErrUnsupportedOp) {
		t.Fatalf("AllocateTensors() error = %v, want %v", err, ErrUnsupportedOp)
	}
	if arena.UsedSize() != 0 {
		t.Errorf("failed allocation left %d bytes used", arena.UsedSize())
	}
}

func TestInterpreterSchemaMismatch(t *testing.T) {
	t.Parallel()
	m := absModel()
	m.Version = model.SchemaVersion + 1
	arena, err := NewArena(1024)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewInterpreter(m, fullResolver(t), arena, nil); !errors.Is(err, model.ErrSchemaMismatch) {
		t.Errorf("NewInterpreter() error = %v, want %v", err, model.ErrSchemaMismatch)
	}
}

func TestInterpreterInvokeDoesNotAllocate(t *testing.T) {
	ip, _ := newInterpreter(t, absModel(), 1024)
	if err := ip.AllocateTensors(); err != nil {
		t.Fatal(err)
	}
	in := ip.Input(0)

	allocs := testing.AllocsPerRun(100, func() {
		in.SetInt8(0, 3)
		_ = ip.Invoke()
	})
	if allocs != 0 {
		t.Errorf("Invoke allocated %.1f times per run", allocs)
	}
}

func TestMutableOpResolver(t *testing.T) {
	t.Parallel()
	r := NewMutableOpResolver(2)
	if err := r.AddFullyConnected(); err != nil {
		t.Fatal(err)
	}
	if err := r.AddFullyConnected(); err == nil {
		t.Error("expected error registering an operator twice")
	}
	if err := r.AddRelu(); err != nil {
		t.Fatal(err)
	}
	if err := r.AddQuantize(); !errors.Is(err, ErrResolverFull) {
		t.Errorf("AddQuantize() error = %v, want %v", err, ErrResolverFull)
	}

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	if _, ok := r.FindOp(model.OpRelu); !ok {
		t.Error("RELU not found")
	}
	if _, ok := r.FindOp(model.OpDequantize); ok {
		t.Error("DEQUANTIZE found but never added")
	}
}

func BenchmarkInterpreterInvoke(b *testing.B) {
	ip, _ := newInterpreter(b, absModel(), 1024)
	if err := ip.AllocateTensors(); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ip.Invoke()
	}
}
