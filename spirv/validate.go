package spirv

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrIdentifier is wrapped by every identifier invariant violation.
var ErrIdentifier = errors.New("spirv: identifier invariant violated")

// maxViolations bounds the errors Validate collects.
const maxViolations = 16

// Validate checks the identifier invariant of buf: every id is defined
// once, every operand references a defined id, and definitions precede
// uses in buffer order. Debug names, annotations, entry points, execution
// modes, branch targets and callees may refer forward.
func Validate(buf *Buffer) error {
	type def struct {
		order int
		op    OpCode
	}
	defs := make(map[uint32]def)
	var errs error
	n := 0
	report := func(format string, args ...any) {
		if n < maxViolations {
			errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrIdentifier}, args...)...))
		}
		n++
	}

	order := 0
	for s := range buf.Sections {
		for _, inst := range buf.Sections[s] {
			if id := inst.Result(); id != 0 {
				if d, ok := defs[id]; ok {
					report("%%%d defined by %s and %s", id, d.op, inst.Op)
				} else {
					defs[id] = def{order: order, op: inst.Op}
				}
				if id >= buf.Bound {
					report("%%%d is not below the bound %d", id, buf.Bound)
				}
			}
			order++
		}
	}

	order = 0
	for s := range buf.Sections {
		forward := s == int(SectionDebug) || s == int(SectionAnnotation) ||
			s == int(SectionEntryPoint) || s == int(SectionExecutionMode)
		for _, inst := range buf.Sections[s] {
			inst.IDs(func(p *uint32) {
				d, ok := defs[*p]
				switch {
				case !ok:
					report("%s at %d uses undefined %%%d", inst.Op, order, *p)
				case d.order < order || forward:
				case d.op == OpLabel && isBranch(inst.Op):
				case d.op == OpFunction && inst.Op == OpFunctionCall:
				default:
					report("%s at %d uses %%%d before its definition", inst.Op, order, *p)
				}
			})
			order++
		}
	}
	if n > maxViolations {
		errs = multierr.Append(errs, fmt.Errorf("%w: %d more violations", ErrIdentifier, n-maxViolations))
	}
	return errs
}

func isBranch(op OpCode) bool {
	switch op {
	case OpBranch, OpBranchConditional, OpSelectionMerge, OpLoopMerge, OpPhi:
		return true
	}
	return false
}
