package spirv

// EliminateDeadFunctions removes the functions that no entry point and no
// root reaches through calls, along with the debug names and decorations
// of the ids they defined. It returns the number of removed functions.
func EliminateDeadFunctions(buf *Buffer, roots []uint32) int {
	ranges := buf.FunctionRanges()
	byID := make(map[uint32]FunctionRange, len(ranges))
	for _, r := range ranges {
		byID[r.ID] = r
	}

	live := make(map[uint32]bool)
	var work []uint32
	mark := func(fn uint32) {
		if _, ok := byID[fn]; ok && !live[fn] {
			live[fn] = true
			work = append(work, fn)
		}
	}
	for _, inst := range buf.Sections[SectionEntryPoint] {
		if len(inst.Words) > 1 {
			mark(inst.Words[1])
		}
	}
	for _, fn := range roots {
		mark(fn)
	}
	insts := buf.Sections[SectionFunction]
	for len(work) > 0 {
		fn := work[len(work)-1]
		work = work[:len(work)-1]
		r := byID[fn]
		for _, inst := range insts[r.Start:r.End] {
			if inst.Op == OpFunctionCall && len(inst.Words) > 2 {
				mark(inst.Words[2])
			}
		}
	}

	dead := make(map[uint32]bool)
	var kept []Instruction
	removed := 0
	for _, r := range ranges {
		if live[r.ID] {
			kept = append(kept, insts[r.Start:r.End]...)
			continue
		}
		removed++
		for _, inst := range insts[r.Start:r.End] {
			if id := inst.Result(); id != 0 {
				dead[id] = true
			}
		}
	}
	if removed == 0 {
		return 0
	}
	buf.Sections[SectionFunction] = kept
	for _, s := range []Section{SectionDebug, SectionAnnotation} {
		out := buf.Sections[s][:0]
		for _, inst := range buf.Sections[s] {
			if len(inst.Words) > 0 && dead[inst.Words[0]] {
				continue
			}
			out = append(out, inst)
		}
		buf.Sections[s] = out
	}
	return removed
}
