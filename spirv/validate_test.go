package spirv

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/sdsl/sema"
	"go.uber.org/multierr"
)

// module builds an entry point void main() whose body is empty. Function
// body instructions go in at index 2.
func module() (*Buffer, *Context) {
	buf := NewBuffer(Version1_3)
	ctx := NewContext(buf)
	buf.AddCapability(CapabilityShader)
	buf.Add(SectionMemoryModel, OpMemoryModel, uint32(AddressingModelLogical), uint32(MemoryModelGLSL450))
	void := ctx.MustType(sema.VoidType)
	fnType := ctx.FunctionType(void, nil)
	fn := ctx.NextID()
	buf.AddName(fn, "main")
	buf.Add(SectionFunction, OpFunction, void, fn, 0, fnType)
	buf.Add(SectionFunction, OpLabel, ctx.NextID())
	buf.Add(SectionFunction, OpReturn)
	buf.Add(SectionFunction, OpFunctionEnd)
	buf.AddEntryPoint(ExecutionModelFragment, fn, "main", nil)
	return buf, ctx
}

func TestValidate(t *testing.T) {
	buf, _ := module()
	if err := Validate(buf); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	tests := []struct {
		name string
		body func(float, one uint32) []Instruction
		want string
	}{
		{"undefined", func(float, one uint32) []Instruction {
			return []Instruction{NewInstruction(OpFAdd, float, 500, one, 999)}
		}, "undefined %999"},
		{"twice", func(float, one uint32) []Instruction {
			return []Instruction{NewInstruction(OpFAdd, float, one, one, one)}
		}, "defined by"},
		{"before", func(float, one uint32) []Instruction {
			return []Instruction{
				NewInstruction(OpFAdd, float, 50, one, 51),
				NewInstruction(OpFAdd, float, 51, one, one),
			}
		}, "before its definition"},
	}
	for _, tt := range tests {
		buf, ctx := module()
		float := ctx.MustType(sema.Float)
		one := ctx.Constant(sema.Float, 0x3f800000)
		buf.Insert(2, tt.body(float, one))
		buf.Bound = 1000
		err := Validate(buf)
		if !errors.Is(err, ErrIdentifier) {
			t.Errorf("%s: Validate = %v, want ErrIdentifier", tt.name, err)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.want)
		}
	}
}

func TestValidateBound(t *testing.T) {
	buf, ctx := module()
	float := ctx.MustType(sema.Float)
	buf.Add(SectionGlobal, OpConstant, float, buf.Bound, 0)
	if err := Validate(buf); !errors.Is(err, ErrIdentifier) {
		t.Errorf("Validate = %v, want ErrIdentifier", err)
	}
}

func TestValidateLimit(t *testing.T) {
	buf, ctx := module()
	float := ctx.MustType(sema.Float)
	var body []Instruction
	for i := range 40 {
		body = append(body, NewInstruction(OpCopyObject, float, uint32(100+i), 900))
	}
	buf.Insert(2, body)
	buf.Bound = 1000
	errs := multierr.Errors(Validate(buf))
	if len(errs) != maxViolations+1 {
		t.Fatalf("got %d errors, want %d", len(errs), maxViolations+1)
	}
	if !strings.Contains(errs[maxViolations].Error(), "24 more violations") {
		t.Errorf("last error = %v", errs[maxViolations])
	}
}
