package backend

import (
	"bufio"
	"encoding/binary"
	"strings"
	"sync/atomic"

	"tlog.app/go/errors"
)

type EncodingMode int32

const (
	EncodingProduction EncodingMode = iota
	// EncodingTesting is a fixed-width layout: 2-byte opcodes and 8-byte immediates.
	EncodingTesting
)

var encodingMode atomic.Int32

// SetEncodingMode switches bytecode encoding for the whole process.
// A worker sets it once before its only compilation.
func SetEncodingMode(m EncodingMode) {
	encodingMode.Store(int32(m))
}

func CurrentEncodingMode() EncodingMode {
	return EncodingMode(encodingMode.Load())
}

func (m EncodingMode) String() string {
	if m == EncodingTesting {
		return "testing"
	}

	return "production"
}

// ParseAssembly parses assembly text into instructions.
// Labels are written as "name:" on their own line.
func ParseAssembly(text string) (code []Instr, err error) {
	s := bufio.NewScanner(strings.NewReader(text))
	line := 0

	for s.Scan() {
		line++

		l := strings.TrimSpace(stripComment(s.Text()))
		if l == "" {
			continue
		}

		if name, ok := strings.CutSuffix(l, ":"); ok && !strings.ContainsAny(name, " \t") {
			code = append(code, Instr{Op: OpLabel, Label: name})
			continue
		}

		x, err := parseInstr(strings.Fields(l))
		if err != nil {
			return nil, errors.Wrap(err, "line %d", line)
		}

		if x.Op == OpLabel {
			return nil, errors.New("line %d: use \"name:\" to define labels", line)
		}

		code = append(code, x)
	}

	if err = s.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}

	if len(code) == 0 {
		return nil, errors.New("empty assembly")
	}

	return code, nil
}

// Assemble encodes instructions resolving labels to byte offsets.
func Assemble(code []Instr, mode EncodingMode) (b []byte, err error) {
	labels := map[string]int{}
	size := 0

	for _, x := range code {
		if x.Op == OpLabel {
			if _, ok := labels[x.Label]; ok {
				return nil, errors.New("label %v redefined", x.Label)
			}

			labels[x.Label] = size
		}

		size += instrSize(x, mode)
	}

	b = make([]byte, 0, size)

	for _, x := range code {
		b, err = encode(b, x, mode, labels)
		if err != nil {
			return nil, errors.Wrap(err, "%s", x.AppendText(nil))
		}
	}

	return b, nil
}

func instrSize(x Instr, mode EncodingMode) int {
	if x.Op == OpLabel {
		return 0
	}

	op, imm := 1, map[operand]int{immOperand: 8, slotOperand: 1, labelOperand: 4}
	if mode == EncodingTesting {
		op, imm = 2, map[operand]int{immOperand: 8, slotOperand: 8, labelOperand: 8}
	}

	info := ops[x.Op]

	if info.operand == tableOperand {
		return op + imm[slotOperand] + 2*imm[labelOperand]*len(x.Table) + 1
	}

	return op + imm[info.operand]
}

func encode(b []byte, x Instr, mode EncodingMode, labels map[string]int) ([]byte, error) {
	info := ops[x.Op]

	if x.Op == OpLabel {
		return b, nil
	}

	wide := mode == EncodingTesting

	if wide {
		b = binary.BigEndian.AppendUint16(b, uint16(info.code))
	} else {
		b = append(b, info.code)
	}

	switch info.operand {
	case immOperand:
		b = binary.BigEndian.AppendUint64(b, x.Imm)
	case slotOperand:
		if wide {
			b = binary.BigEndian.AppendUint64(b, x.Imm)
			break
		}

		if x.Imm > 0xff {
			return nil, errors.New("slot %d out of range", x.Imm)
		}

		b = append(b, byte(x.Imm))
	case labelOperand:
		off, ok := labels[x.Label]
		if !ok {
			return nil, errors.New("undefined label %v", x.Label)
		}

		b = appendOffset(b, off, wide)
	case tableOperand:
		if !wide && len(x.Table) > 0xff {
			return nil, errors.New("jump table too large: %d", len(x.Table))
		}

		if wide {
			b = binary.BigEndian.AppendUint64(b, uint64(len(x.Table)))
		} else {
			b = append(b, byte(len(x.Table)))
		}

		for _, c := range x.Table {
			off, ok := labels[c.Label]
			if !ok {
				return nil, errors.New("undefined label %v", c.Label)
			}

			b = appendOffset(b, int(c.Selector), wide)
			b = appendOffset(b, off, wide)
		}

		// table terminator
		b = append(b, 0)
	}

	return b, nil
}

func appendOffset(b []byte, v int, wide bool) []byte {
	if wide {
		return binary.BigEndian.AppendUint64(b, uint64(v))
	}

	return binary.BigEndian.AppendUint32(b, uint32(v))
}
