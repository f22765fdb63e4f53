package rotate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/freenet-go/nodelog/util"
)

// DefaultFormat is the directive template used when a caller configures none.
const DefaultFormat = "d:c:h:t:p:m"

// InstructionKind distinguishes a literal run of characters from a directive.
type InstructionKind int

const (
	InstrLiteral InstructionKind = iota
	InstrDirective
)

// Instruction is one step of a compiled format template: either a literal
// string to copy verbatim, or a single-letter directive to be evaluated by
// the caller. Directive kinds: d=date, c=class, h=object hash, t=thread,
// p=priority, m=message, u=host identity.
type Instruction struct {
	Kind      InstructionKind
	Literal   string
	Directive byte
}

var validDirectives = "dchtpmu"

// CompileTemplate parses a format string into a sequence of instructions.
// `\` escapes the following character into the surrounding literal run,
// letting a literal d/c/h/t/p/m/u appear in the output.
func CompileTemplate(spec string) ([]Instruction, error) {
	var out []Instruction
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			out = append(out, Instruction{Kind: InstrLiteral, Literal: lit.String()})
			lit.Reset()
		}
	}

	runes := []rune(spec)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch == '\\' {
			i++
			if i >= len(runes) {
				return nil, fmt.Errorf("rotate: format %q ends with a trailing escape", spec)
			}
			lit.WriteRune(runes[i])
			continue
		}
		if ch < 128 && strings.IndexByte(validDirectives, byte(ch)) >= 0 {
			flush()
			out = append(out, Instruction{Kind: InstrDirective, Directive: byte(ch)})
			continue
		}
		lit.WriteRune(ch)
	}
	flush()
	return out, nil
}

// RenderContext supplies the per-record values a compiled template's
// directives evaluate against. Evaluation lives here as a convenience for
// callers that have no formatter of their own; the template stays the
// interface, not this helper.
type RenderContext struct {
	When     time.Time
	Class    string
	ObjHash  string
	Thread   string
	Priority string
	Message  string
}

// Render evaluates a compiled template against ctx, producing one formatted
// record (without a trailing newline).
func Render(instructions []Instruction, ctx RenderContext) string {
	var sb strings.Builder
	for _, instr := range instructions {
		switch instr.Kind {
		case InstrLiteral:
			sb.WriteString(instr.Literal)
		case InstrDirective:
			switch instr.Directive {
			case 'd':
				sb.WriteString(ctx.When.UTC().Format(time.RFC3339Nano))
			case 'c':
				sb.WriteString(ctx.Class)
			case 'h':
				sb.WriteString(ctx.ObjHash)
			case 't':
				sb.WriteString(ctx.Thread)
			case 'p':
				sb.WriteString(ctx.Priority)
			case 'm':
				sb.WriteString(ctx.Message)
			case 'u':
				sb.WriteString(util.HostIdentity())
			default:
				util.Warn("unhandled format directive %q", strconv.QuoteRune(rune(instr.Directive)))
			}
		}
	}
	return sb.String()
}
