// Package diag writes and reads the per-cycle diagnostic stream:
//
//	Pred:0.98,True:1.00
//
// one line per cycle, two decimals each, for an external plotter. A fatal
// error is reported on the same stream as "Fatal:<cause>" before the loop
// halts.
package diag

import (
	"io"
	"regexp"
	"strconv"
	"strings"
)

const (
	predPrefix  = "Pred:"
	truePrefix  = ",True:"
	fatalPrefix = "Fatal:"
)

// Writer formats diagnostic lines into a fixed buffer. Emit does not
// allocate as long as w's Write does not. Not safe for concurrent use.
type Writer struct {
	w   io.Writer
	buf [64]byte
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Emit writes one "Pred:%.2f,True:%.2f" line.
func (d *Writer) Emit(pred, truth float64) error {
	b := append(d.buf[:0], predPrefix...)
	b = strconv.AppendFloat(b, pred, 'f', 2, 64)
	b = append(b, truePrefix...)
	b = strconv.AppendFloat(b, truth, 'f', 2, 64)
	b = append(b, '\n')
	_, err := d.w.Write(b)
	return err
}

// Fatal writes a "Fatal:<cause>" line. Newlines in the cause are flattened
// so the report stays on one line.
func (d *Writer) Fatal(cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = strings.ReplaceAll(cause.Error(), "\n", " ")
	}
	_, err := io.WriteString(d.w, fatalPrefix+msg+"\n")
	return err
}

// Sample is one parsed diagnostic line.
type Sample struct {
	Pred float64
	True float64
}

// Error returns |Pred - True|.
func (s Sample) Error() float64 {
	if s.Pred > s.True {
		return s.Pred - s.True
	}
	return s.True - s.Pred
}

// number accepts "1", "-0.50", ".5" and "+2"; exponents are not produced by
// Emit and not accepted.
var lineRE = regexp.MustCompile(`Pred:([-+]?\d*\.\d+|[-+]?\d+),True:([-+]?\d*\.\d+|[-+]?\d+)`)

// ParseLine extracts a Sample from line. Text around the match is ignored,
// so lines with a prefix added by a terminal or logger still parse.
func ParseLine(line string) (Sample, bool) {
	m := lineRE.FindStringSubmatch(line)
	if m == nil {
		return Sample{}, false
	}
	pred, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Sample{}, false
	}
	truth, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Sample{}, false
	}
	return Sample{Pred: pred, True: truth}, true
}

// ParseFatal reports the cause carried by a "Fatal:" marker anywhere in
// line, so device timestamps or boot noise ahead of it are tolerated.
func ParseFatal(line string) (string, bool) {
	i := strings.Index(line, fatalPrefix)
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(line[i+len(fatalPrefix):]), true
}
