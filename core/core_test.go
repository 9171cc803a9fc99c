package core

import (
	"math"
	"testing"
)

func TestTensorValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		tensor  *Tensor
		wantErr bool
	}{
		{
			name:    "nil tensor",
			tensor:  nil,
			wantErr: true,
		},
		{
			name:    "unknown type",
			tensor:  &Tensor{Type: DTypeInvalid, Shape: []int32{1}, Data: []byte{0}},
			wantErr: true,
		},
		{
			name:    "storage too small",
			tensor:  &Tensor{Type: DTypeFloat32, Shape: []int32{1, 2}, Data: make([]byte, 4)},
			wantErr: true,
		},
		{
			name:    "zero dimension",
			tensor:  &Tensor{Type: DTypeInt8, Shape: []int32{0}, Data: nil, Params: QuantParams{Scale: 1}},
			wantErr: true,
		},
		{
			name:    "quantized without scale",
			tensor:  &Tensor{Type: DTypeInt8, Shape: []int32{1}, Data: []byte{0}},
			wantErr: true,
		},
		{
			name:    "valid int8 scalar",
			tensor:  &Tensor{Type: DTypeInt8, Shape: []int32{1, 1}, Data: []byte{0}, Params: QuantParams{Scale: 0.5, ZeroPoint: -3}},
			wantErr: false,
		},
		{
			name:    "valid float vector",
			tensor:  &Tensor{Type: DTypeFloat32, Shape: []int32{4}, Data: make([]byte, 16)},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tensor.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Tensor.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTensorAccessors(t *testing.T) {
	t.Parallel()
	data := []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0x40} // 1.0, 2.0 in little-endian float32
	f := &Tensor{Type: DTypeFloat32, Shape: []int32{2}, Data: data}

	if got := f.Float32(0); got != 1.0 {
		t.Errorf("Float32(0) = %v, want 1.0", got)
	}
	if got := f.Float32(1); got != 2.0 {
		t.Errorf("Float32(1) = %v, want 2.0", got)
	}
	f.SetFloat32(1, -0.25)
	if got := f.Float32(1); got != -0.25 {
		t.Errorf("after SetFloat32, Float32(1) = %v", got)
	}

	i8 := &Tensor{Type: DTypeInt8, Shape: []int32{3}, Data: make([]byte, 3), Params: QuantParams{Scale: 1}}
	i8.SetInt8(0, -128)
	i8.SetInt8(2, 127)
	if i8.Int8(0) != -128 || i8.Int8(1) != 0 || i8.Int8(2) != 127 {
		t.Errorf("int8 round trip failed: %v", i8.Data)
	}

	i32 := &Tensor{Type: DTypeInt32, Shape: []int32{2}, Data: make([]byte, 8)}
	i32.SetInt32(1, math.MinInt32)
	if got := i32.Int32(1); got != math.MinInt32 {
		t.Errorf("Int32(1) = %d, want %d", got, math.MinInt32)
	}

	i32.Zero()
	for i, b := range i32.Data {
		if b != 0 {
			t.Fatalf("byte %d not cleared", i)
		}
	}
}

func TestDTypeRange(t *testing.T) {
	t.Parallel()
	lo, hi := DTypeInt8.Range()
	if lo != -128 || hi != 127 {
		t.Errorf("int8 range = [%d, %d]", lo, hi)
	}
	if DTypeFloat32.Quantized() {
		t.Error("float32 reported as quantized")
	}
	if DTypeInt8.Size() != 1 || DTypeFloat32.Size() != 4 || DTypeInt32.Size() != 4 {
		t.Error("unexpected element sizes")
	}
}

func TestAlignment(t *testing.T) {
	t.Parallel()
	for _, size := range []int{1, 15, 16, 100, 8192} {
		buf := AlignedBytes(size, TensorAlignment)
		if len(buf) != size {
			t.Errorf("AlignedBytes(%d) len = %d", size, len(buf))
		}
		if !IsAligned(AddressOf(buf), TensorAlignment) {
			t.Errorf("AlignedBytes(%d) not aligned", size)
		}
	}

	if got := AlignSize(17, 16); got != 32 {
		t.Errorf("AlignSize(17, 16) = %d, want 32", got)
	}
	if got := AlignSize(32, 16); got != 32 {
		t.Errorf("AlignSize(32, 16) = %d, want 32", got)
	}
}

func BenchmarkTensorFloat32(b *testing.B) {
	tensor := &Tensor{Type: DTypeFloat32, Shape: []int32{16}, Data: make([]byte, 64)}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tensor.SetFloat32(i%16, float32(i))
		_ = tensor.Float32(i % 16)
	}
}
