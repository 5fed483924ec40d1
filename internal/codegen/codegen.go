// Package codegen emits typed Go doubles from contract descriptors.
//
// Generated files are self-contained: a contract constructor, a double
// struct embedding *double.Substitute, and one typed method per
// operation. Types the engine cannot express in Go (anything outside
// the predeclared scalar set) degrade to any in method signatures; the
// declared names stay intact in the contract descriptor, so keys and
// rendering are unaffected.
package codegen

import (
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/roach88/understudy/pkg/contract"
)

// Options controls generated output.
type Options struct {
	// Package is the target package name. Empty means "doubles".
	Package string
}

// Generate renders one formatted Go source file for the contract.
func Generate(c *contract.Contract, opts Options) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("codegen: contract must not be nil")
	}

	pkg := opts.Package
	if pkg == "" {
		pkg = "doubles"
	}

	doubleType := c.Name() + "Double"

	var ops strings.Builder
	for _, op := range c.Operations() {
		writeOperationLiteral(&ops, op)
	}

	methods := make([]string, 0, len(c.Operations()))
	for _, op := range c.Operations() {
		methods = append(methods, buildMethod(doubleType, op))
	}

	data := struct {
		Package      string
		Name         string
		QuotedName   string
		ContractFunc string
		DoubleType   string
		NewFunc      string
		Operations   string
		Methods      string
	}{
		Package:      pkg,
		Name:         c.Name(),
		QuotedName:   strconv.Quote(c.Name()),
		ContractFunc: c.Name() + "Contract",
		DoubleType:   doubleType,
		NewFunc:      "New" + doubleType,
		Operations:   ops.String(),
		Methods:      strings.Join(methods, "\n\n"),
	}

	var buf strings.Builder
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("codegen: executing template: %w", err)
	}

	src, err := format.Source([]byte(buf.String()))
	if err != nil {
		return nil, fmt.Errorf("codegen: formatting %s: %w", c.Name(), err)
	}
	return src, nil
}

// FileName returns the canonical file name for a contract's generated
// double, e.g. "PaymentGateway" -> "payment_gateway_double.go".
func FileName(contractName string) string {
	return camelToSnake(contractName) + "_double.go"
}

var fileTemplate = template.Must(template.New("double").Parse(`// Code generated by understudy. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/roach88/understudy/pkg/contract"
	"github.com/roach88/understudy/pkg/double"
)

// {{.ContractFunc}} builds the contract descriptor {{.Name}} doubles
// answer for.
func {{.ContractFunc}}() *contract.Contract {
	c, err := contract.New({{.QuotedName}},
{{.Operations}}	)
	if err != nil {
		panic(err)
	}
	return c
}

// {{.DoubleType}} is a typed test double for the {{.Name}} contract.
// Configure behaviors with double.On, then drive the typed methods.
type {{.DoubleType}} struct {
	*double.Substitute
}

// {{.NewFunc}} registers a fresh substitute for {{.Name}} in reg and
// wraps it in the typed surface.
func {{.NewFunc}}(reg *double.Registry) (*{{.DoubleType}}, error) {
	sub, err := reg.CreateSubstitute({{.ContractFunc}}())
	if err != nil {
		return nil, err
	}
	return &{{.DoubleType}}{Substitute: sub}, nil
}

{{.Methods}}
`))

// literalField is one field of a rendered composite literal. Single
// line fields carry value; block fields carry the lines of a nested
// multiline literal.
type literalField struct {
	key   string
	value string
	block []string
}

// writeOperationLiteral renders one contract.Operation literal at call
// argument depth, gofmt-aligned: contiguous single-line fields pad
// their keys to the longest in the run, block fields take one space
// and break the run.
func writeOperationLiteral(b *strings.Builder, op *contract.Operation) {
	var fields []literalField

	fields = append(fields, literalField{key: "Name", value: strconv.Quote(op.Name)})

	if len(op.TypeArgs) > 0 {
		quoted := make([]string, len(op.TypeArgs))
		for i, ta := range op.TypeArgs {
			quoted[i] = strconv.Quote(ta)
		}
		fields = append(fields, literalField{
			key:   "TypeArgs",
			value: "[]string{" + strings.Join(quoted, ", ") + "}",
		})
	}

	if len(op.Params) > 0 {
		block := []string{"[]contract.Param{"}
		for _, p := range op.Params {
			elem := fmt.Sprintf("\t{Name: %s, Type: %s", strconv.Quote(p.Name), strconv.Quote(p.Type))
			if p.ByRef {
				elem += ", ByRef: true"
			}
			elem += "},"
			block = append(block, elem)
		}
		block = append(block, "}")
		fields = append(fields, literalField{key: "Params", block: block})
	}

	if op.Returns.Shape != contract.ShapeNone {
		ret := "contract.Return{Shape: " + shapeExpr(op.Returns.Shape)
		if op.Returns.Type != "" {
			ret += ", Type: " + strconv.Quote(op.Returns.Type)
		}
		ret += "}"
		fields = append(fields, literalField{key: "Returns", value: ret})
	}

	if op.Property {
		fields = append(fields, literalField{key: "Property", value: "true"})
	}

	b.WriteString("\t\tcontract.Operation{\n")
	writeAlignedFields(b, "\t\t\t", fields)
	b.WriteString("\t\t},\n")
}

// writeAlignedFields emits key-value lines with gofmt's run alignment.
func writeAlignedFields(b *strings.Builder, indent string, fields []literalField) {
	i := 0
	for i < len(fields) {
		if fields[i].block != nil {
			f := fields[i]
			b.WriteString(indent + f.key + ": " + f.block[0] + "\n")
			for _, line := range f.block[1 : len(f.block)-1] {
				b.WriteString(indent + line + "\n")
			}
			b.WriteString(indent + f.block[len(f.block)-1] + ",\n")
			i++
			continue
		}

		j := i
		maxKey := 0
		for j < len(fields) && fields[j].block == nil {
			if n := len(fields[j].key) + 1; n > maxKey {
				maxKey = n
			}
			j++
		}
		for ; i < j; i++ {
			f := fields[i]
			pad := strings.Repeat(" ", maxKey+1-(len(f.key)+1))
			b.WriteString(indent + f.key + ":" + pad + f.value + ",\n")
		}
	}
}

func shapeExpr(s contract.ReturnShape) string {
	switch s {
	case contract.ShapeValue:
		return "contract.ShapeValue"
	case contract.ShapeDeferred:
		return "contract.ShapeDeferred"
	case contract.ShapeDeferredValue:
		return "contract.ShapeDeferredValue"
	default:
		return "contract.ShapeNone"
	}
}

// buildMethod renders one typed method. Immediate operations return
// the declared type and panic on dispatch error; deferred operations
// return double.Deferred; void operations return nothing. A
// suppressed call comes back as a nil result, so value methods return
// the zero value.
func buildMethod(doubleType string, op *contract.Operation) string {
	var sig, call []string
	for _, p := range op.Params {
		name := paramName(p.Name)
		sig = append(sig, name+" "+goType(p.Type))
		call = append(call, name)
	}
	argList := strings.Join(sig, ", ")
	callArgs := ""
	if len(call) > 0 {
		callArgs = ", " + strings.Join(call, ", ")
	}

	var b strings.Builder
	invoke := fmt.Sprintf("d.Invoke(%q%s)", op.Name, callArgs)

	switch {
	case op.Property:
		retType := goType(op.Returns.Type)
		fmt.Fprintf(&b, "// %s reads the %s property.\n", op.Name, op.Name)
		fmt.Fprintf(&b, "func (d *%s) %s(%s) %s {\n", doubleType, op.Name, argList, retType)
		fmt.Fprintf(&b, "\tresult, err := %s\n", invoke)
		b.WriteString("\tif err != nil {\n\t\tpanic(err)\n\t}\n")
		fmt.Fprintf(&b, "\treturn double.As[%s](result)\n}", retType)

	case op.Returns.Shape == contract.ShapeValue:
		retType := goType(op.Returns.Type)
		fmt.Fprintf(&b, "// %s invokes the %s operation and returns its stubbed result.\n", op.Name, op.Name)
		fmt.Fprintf(&b, "func (d *%s) %s(%s) %s {\n", doubleType, op.Name, argList, retType)
		fmt.Fprintf(&b, "\tresult, err := %s\n", invoke)
		b.WriteString("\tif err != nil {\n\t\tpanic(err)\n\t}\n")
		fmt.Fprintf(&b, "\treturn double.As[%s](result)\n}", retType)

	case op.Returns.Shape == contract.ShapeDeferred || op.Returns.Shape == contract.ShapeDeferredValue:
		fmt.Fprintf(&b, "// %s invokes the %s operation and returns its deferred completion.\n", op.Name, op.Name)
		fmt.Fprintf(&b, "func (d *%s) %s(%s) double.Deferred {\n", doubleType, op.Name, argList)
		fmt.Fprintf(&b, "\tresult, err := %s\n", invoke)
		b.WriteString("\tif err != nil {\n\t\tpanic(err)\n\t}\n")
		b.WriteString("\treturn double.As[double.Deferred](result)\n}")

	default:
		fmt.Fprintf(&b, "// %s invokes the %s operation.\n", op.Name, op.Name)
		fmt.Fprintf(&b, "func (d *%s) %s(%s) {\n", doubleType, op.Name, argList)
		fmt.Fprintf(&b, "\tif _, err := %s; err != nil {\n\t\tpanic(err)\n\t}\n}", invoke)
	}

	return b.String()
}

// predeclared is the set of type names kept verbatim in generated
// signatures. Everything else degrades to any.
var predeclared = map[string]bool{
	"bool": true, "string": true, "error": true, "any": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"uintptr": true, "byte": true, "rune": true,
	"float32": true, "float64": true,
	"complex64": true, "complex128": true,
}

func goType(name string) string {
	if predeclared[name] {
		return name
	}
	return "any"
}

// goKeywords blocks parameter names that would not compile.
var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

// paramName sanitizes a declared parameter name for use in a method
// signature. Keywords, predeclared type names, the receiver, and the
// body's locals gain a trailing underscore so the emitted method
// compiles regardless of what the contract calls its parameters.
func paramName(name string) string {
	if goKeywords[name] || predeclared[name] || name == "d" || name == "result" || name == "err" {
		return name + "_"
	}
	return name
}

// camelToSnake converts CamelCase to snake_case, keeping acronym runs
// together: "PaymentGateway" -> "payment_gateway", "HTTPServer" ->
// "http_server".
func camelToSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			if prevLower || (prevUpper && nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
