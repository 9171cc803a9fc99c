// Package model defines the serialized Model Artifact consumed by the runtime.
//
// An artifact describes a small feed-forward network: a table of tensors
// (type, shape, quantization parameters and an optional constant buffer), an
// ordered list of operators referencing those tensors, the constant buffers
// themselves, and the indices of the graph inputs and outputs.
//
// Binary layout (little endian):
//
//	header   magic u32 "SUBM" | schema u32 | tensors u16 | operators u16 |
//	         buffers u16 | inputs u8 | outputs u8 | crc32(body) u32
//	body     inputs u16×n | outputs u16×n |
//	         tensor  { dtype u8 | rank u8 | buffer u16 | dims i32×rank | scale f32 | zero_point i32 }×n |
//	         op      { opcode u8 | activation u8 | nin u8 | nout u8 | in u16×nin | out u16×nout }×n |
//	         buffer  { len u32 | bytes padded to 4 }×n
//
// Artifacts are produced offline (see package compiler), embedded read-only
// in the binary and never mutated. Parsed constant buffers alias the artifact
// bytes rather than copying them.
package model

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/sbl8/tinysine/core"
)

const (
	// Magic is "SUBM" in little endian.
	Magic = 0x4D425553

	// SchemaVersion is the only artifact schema this runtime executes.
	SchemaVersion = 3

	// HeaderSize is the fixed size of the artifact header in bytes.
	HeaderSize = 20

	// NoBuffer marks a tensor whose storage is carved from the arena.
	NoBuffer = 0xFFFF
)

var (
	ErrTruncated      = errors.New("model artifact truncated")
	ErrInvalidMagic   = errors.New("model artifact has invalid magic")
	ErrChecksum       = errors.New("model artifact checksum mismatch")
	ErrSchemaMismatch = errors.New("model schema version not supported")
)

// Opcode identifies an operator kernel. Values follow the builtin operator numbering.
type Opcode uint8

const (
	OpDequantize     Opcode = 6
	OpFullyConnected Opcode = 9
	OpRelu           Opcode = 19
	OpQuantize       Opcode = 114
)

func (o Opcode) String() string {
	switch o {
	case OpDequantize:
		return "DEQUANTIZE"
	case OpFullyConnected:
		return "FULLY_CONNECTED"
	case OpRelu:
		return "RELU"
	case OpQuantize:
		return "QUANTIZE"
	default:
		return fmt.Sprintf("OP(%d)", uint8(o))
	}
}

// Activation is a fused activation applied to an operator's output.
type Activation uint8

const (
	ActNone Activation = 0
	ActRelu Activation = 1
)

// Header is the fixed-size artifact preamble.
type Header struct {
	Magic     uint32
	Version   uint32
	Tensors   uint16
	Operators uint16
	Buffers   uint16
	Inputs    uint8
	Outputs   uint8
	Checksum  uint32
}

// Tensor describes one tensor of the graph.
type Tensor struct {
	Type   core.DType
	Shape  []int32
	Buffer uint16 // index into Model.Buffers, or NoBuffer
	Params core.QuantParams
}

// Constant reports whether the tensor is backed by a model buffer.
func (t *Tensor) Constant() bool {
	return t.Buffer != NoBuffer
}

// MaxTensorBytes bounds the storage of any single tensor.
const MaxTensorBytes = 1 << 30

// ByteSize returns the storage the tensor's shape and type need. Every
// dimension must be positive and the total must not exceed MaxTensorBytes.
func (t *Tensor) ByteSize() (int, error) {
	size := t.Type.Size()
	if size == 0 {
		return 0, fmt.Errorf("unsupported type %s", t.Type)
	}
	for _, d := range t.Shape {
		if d <= 0 {
			return 0, fmt.Errorf("invalid dimension %d in shape %v", d, t.Shape)
		}
		if size > MaxTensorBytes/int(d) {
			return 0, fmt.Errorf("shape %v of %s exceeds %d bytes", t.Shape, t.Type, MaxTensorBytes)
		}
		size *= int(d)
	}
	return size, nil
}

// Operator is one node of the graph, executed in list order.
type Operator struct {
	Opcode     Opcode
	Activation Activation
	Inputs     []uint16
	Outputs    []uint16
}

// Model is a parsed, immutable artifact.
type Model struct {
	Version   uint32
	Tensors   []Tensor
	Operators []Operator
	Buffers   [][]byte
	Inputs    []uint16
	Outputs   []uint16
}

// ReadHeader decodes and checks the artifact preamble without touching the body.
func ReadHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(data), HeaderSize)
	}
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return h, err
	}
	if h.Magic != Magic {
		return h, fmt.Errorf("%w: %#08x", ErrInvalidMagic, h.Magic)
	}
	return h, nil
}

// CheckVersion fails with ErrSchemaMismatch unless the artifact declares SchemaVersion.
func CheckVersion(data []byte) error {
	h, err := ReadHeader(data)
	if err != nil {
		return err
	}
	if h.Version != SchemaVersion {
		return fmt.Errorf("%w: model provided is schema version %d not equal to supported version %d",
			ErrSchemaMismatch, h.Version, SchemaVersion)
	}
	return nil
}

// Parse decodes an artifact. The schema version is recorded, not enforced;
// callers that execute the model gate on CheckVersion first.
func Parse(data []byte) (*Model, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	body := data[HeaderSize:]
	if crc32.ChecksumIEEE(body) != h.Checksum {
		return nil, ErrChecksum
	}

	r := &reader{data: body}
	m := &Model{Version: h.Version}

	m.Inputs = r.indices(int(h.Inputs))
	m.Outputs = r.indices(int(h.Outputs))

	m.Tensors = make([]Tensor, h.Tensors)
	for i := range m.Tensors {
		t := &m.Tensors[i]
		t.Type = core.DType(r.u8())
		rank := int(r.u8())
		t.Buffer = r.u16()
		t.Shape = make([]int32, rank)
		for d := range t.Shape {
			t.Shape[d] = int32(r.u32())
		}
		t.Params.Scale = math.Float32frombits(r.u32())
		t.Params.ZeroPoint = int32(r.u32())
	}

	m.Operators = make([]Operator, h.Operators)
	for i := range m.Operators {
		op := &m.Operators[i]
		op.Opcode = Opcode(r.u8())
		op.Activation = Activation(r.u8())
		nin, nout := int(r.u8()), int(r.u8())
		op.Inputs = r.indices(nin)
		op.Outputs = r.indices(nout)
	}

	m.Buffers = make([][]byte, h.Buffers)
	for i := range m.Buffers {
		n := int(r.u32())
		m.Buffers[i] = r.bytes(n)
		r.skip(padding(n))
	}

	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(body) {
		return nil, fmt.Errorf("model artifact has %d trailing bytes", len(body)-r.off)
	}
	return m, nil
}

// Serialize encodes the model. The header carries m.Version as given so
// tooling can emit artifacts for other schema versions.
func (m *Model) Serialize() ([]byte, error) {
	var body bytes.Buffer
	w := func(v any) {
		// bytes.Buffer writes cannot fail
		_ = binary.Write(&body, binary.LittleEndian, v)
	}

	w(m.Inputs)
	w(m.Outputs)
	for _, t := range m.Tensors {
		if len(t.Shape) > math.MaxUint8 {
			return nil, fmt.Errorf("tensor rank %d too large", len(t.Shape))
		}
		w(uint8(t.Type))
		w(uint8(len(t.Shape)))
		w(t.Buffer)
		w(t.Shape)
		w(math.Float32bits(t.Params.Scale))
		w(t.Params.ZeroPoint)
	}
	for _, op := range m.Operators {
		if len(op.Inputs) > math.MaxUint8 || len(op.Outputs) > math.MaxUint8 {
			return nil, fmt.Errorf("operator %s has too many operands", op.Opcode)
		}
		w(uint8(op.Opcode))
		w(uint8(op.Activation))
		w(uint8(len(op.Inputs)))
		w(uint8(len(op.Outputs)))
		w(op.Inputs)
		w(op.Outputs)
	}
	for _, b := range m.Buffers {
		w(uint32(len(b)))
		body.Write(b)
		body.Write(make([]byte, padding(len(b))))
	}

	if len(m.Tensors) > math.MaxUint16 || len(m.Operators) > math.MaxUint16 || len(m.Buffers) > math.MaxUint16 {
		return nil, errors.New("model too large for artifact format")
	}
	if len(m.Inputs) > math.MaxUint8 || len(m.Outputs) > math.MaxUint8 {
		return nil, errors.New("too many graph inputs or outputs")
	}

	h := Header{
		Magic:     Magic,
		Version:   m.Version,
		Tensors:   uint16(len(m.Tensors)),
		Operators: uint16(len(m.Operators)),
		Buffers:   uint16(len(m.Buffers)),
		Inputs:    uint8(len(m.Inputs)),
		Outputs:   uint8(len(m.Outputs)),
		Checksum:  crc32.ChecksumIEEE(body.Bytes()),
	}

	out := bytes.NewBuffer(make([]byte, 0, HeaderSize+body.Len()))
	if err := binary.Write(out, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// WriteTo writes the serialized model to w.
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	data, err := m.Serialize()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Validate checks graph consistency: operand indices, buffer references and
// constant buffer sizes.
func (m *Model) Validate() error {
	if len(m.Operators) == 0 {
		return errors.New("model has no operators")
	}
	if len(m.Inputs) == 0 || len(m.Outputs) == 0 {
		return errors.New("model declares no inputs or outputs")
	}

	checkIndex := func(what string, idx uint16) error {
		if int(idx) >= len(m.Tensors) {
			return fmt.Errorf("%s references tensor %d, model has %d", what, idx, len(m.Tensors))
		}
		return nil
	}
	// Graph inputs and outputs are written by callers and kernels, so they
	// must live in the arena, never in the artifact's buffers.
	for _, idx := range m.Inputs {
		if err := checkIndex("graph input", idx); err != nil {
			return err
		}
		if m.Tensors[idx].Constant() {
			return fmt.Errorf("graph input %d is a constant tensor", idx)
		}
	}
	for _, idx := range m.Outputs {
		if err := checkIndex("graph output", idx); err != nil {
			return err
		}
		if m.Tensors[idx].Constant() {
			return fmt.Errorf("graph output %d is a constant tensor", idx)
		}
	}

	for i := range m.Tensors {
		t := &m.Tensors[i]
		want, err := t.ByteSize()
		if err != nil {
			return fmt.Errorf("tensor %d: %w", i, err)
		}
		if !t.Constant() {
			continue
		}
		if int(t.Buffer) >= len(m.Buffers) {
			return fmt.Errorf("tensor %d references buffer %d, model has %d", i, t.Buffer, len(m.Buffers))
		}
		if len(m.Buffers[t.Buffer]) != want {
			return fmt.Errorf("tensor %d buffer is %d bytes, shape %v of %s needs %d", i, len(m.Buffers[t.Buffer]), t.Shape, t.Type, want)
		}
	}

	for i, op := range m.Operators {
		for _, idx := range op.Inputs {
			if err := checkIndex(fmt.Sprintf("operator %d (%s) input", i, op.Opcode), idx); err != nil {
				return err
			}
		}
		for _, idx := range op.Outputs {
			if err := checkIndex(fmt.Sprintf("operator %d (%s) output", i, op.Opcode), idx); err != nil {
				return err
			}
			if m.Tensors[idx].Constant() {
				return fmt.Errorf("operator %d (%s) writes constant tensor %d", i, op.Opcode, idx)
			}
		}
	}
	return nil
}

// Opcodes returns the distinct operator codes used by the graph, in first-use order.
func (m *Model) Opcodes() []Opcode {
	var seen [256]bool
	var out []Opcode
	for _, op := range m.Operators {
		if !seen[op.Opcode] {
			seen[op.Opcode] = true
			out = append(out, op.Opcode)
		}
	}
	return out
}

func padding(n int) int {
	return (4 - n%4) % 4
}

// reader is a sticky-error cursor over the artifact body.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, HeaderSize+r.off, len(r.data)-r.off)
		return nil
	}
	b := r.data[r.off : r.off+n : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) indices(n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = r.u16()
	}
	return out
}

func (r *reader) bytes(n int) []byte {
	return r.take(n)
}

func (r *reader) skip(n int) {
	r.take(n)
}
