//go:build property

package errors

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var (
	genType = gen.OneConstOf(ErrorTypeConfig, ErrorTypeLifecycle, ErrorTypeTransient, ErrorTypeResource, ErrorTypeInternal)
	genCode = gen.OneConstOf(ErrCodeInvalidOption, ErrCodeDestroyed, ErrCodeNoOutput, ErrCodeCompileFailed)
)

func TestExhibitErrorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(2468)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("Is matches exactly when type and code match", prop.ForAll(
		func(t1, t2 ErrorType, c1, c2, msg string) bool {
			a := &ExhibitError{Type: t1, Code: c1, Message: msg}
			b := &ExhibitError{Type: t2, Code: c2, Message: "other"}
			return a.Is(b) == (t1 == t2 && c1 == c2)
		},
		genType, genType, genCode, genCode, gen.AlphaString(),
	))

	properties.Property("wrapping preserves code and type", prop.ForAll(
		func(typ ErrorType, code string, depth int) bool {
			var err error = &ExhibitError{Type: typ, Code: code, Message: "m"}
			for i := 0; i < depth; i++ {
				err = fmt.Errorf("layer %d: %w", i, err)
			}
			return HasCode(err, code) && hasType(err, typ)
		},
		genType, genCode, gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}

func TestParserProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("never panics on arbitrary output", prop.ForAll(
		func(output string) bool {
			_ = ParseCompilerOutput(output)
			return true
		},
		gen.AnyString(),
	))

	properties.Property("tsc diagnostics keep their location", prop.ForAll(
		func(file string, line, col, code int) bool {
			out := fmt.Sprintf("%s.ts(%d,%d): error TS%d: broken\n", file, line, col, code)
			parsed := ParseCompilerOutput(out)
			if len(parsed) != 1 {
				return false
			}
			pe := parsed[0]
			return pe.File == file+".ts" && pe.Line == line && pe.Column == col &&
				pe.Code == fmt.Sprintf("TS%d", code) && pe.Message == "broken"
		},
		gen.Identifier(), gen.IntRange(1, 10000), gen.IntRange(1, 500), gen.IntRange(1000, 9999),
	))

	properties.TestingRun(t)
}
