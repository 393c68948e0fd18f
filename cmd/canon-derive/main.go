// Command canon-derive is a //go:generate-driven code generator that
// implements the derive contract from spec.md §4.5: for a product
// (struct) type, it emits WriteTo/EncodedLen methods and a Decode function
// that concatenate fields in declaration order; for a sum type (an
// interface with a //canon:generate:sum annotation listing its variants in
// declaration order) it emits the one-byte variant-tag discipline.
//
// It intentionally does not use reflection at generation time: it parses
// the annotated Go source with go/ast, the same approach stringer and
// similar tools in the ecosystem use, and emits plain, readable Go calling
// into canon/derive's field-concatenation helpers.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const productMarker = "canon:generate"
const sumMarkerPrefix = "canon:generate:sum "

// decodeFuncFor maps a field's base type name, as printed by the AST, to
// the package-level decoder that parses it. Primitive types follow the
// Decode<TypeName> convention from canon/primitives.go; anything else must
// carry an explicit `canon:"decode=FuncName"` struct tag.
var decodeFuncFor = map[string]string{
	"canon.U8":   "canon.DecodeU8",
	"canon.U16":  "canon.DecodeU16",
	"canon.U32":  "canon.DecodeU32",
	"canon.U64":  "canon.DecodeU64",
	"canon.U128": "canon.DecodeU128",
	"canon.I8":   "canon.DecodeI8",
	"canon.I16":  "canon.DecodeI16",
	"canon.I32":  "canon.DecodeI32",
	"canon.I64":  "canon.DecodeI64",
	"canon.Bool": "canon.DecodeBool",
	"canon.Unit": "canon.DecodeUnit",
	"U8":         "DecodeU8",
	"U16":        "DecodeU16",
	"U32":        "DecodeU32",
	"U64":        "DecodeU64",
	"U128":       "DecodeU128",
	"I8":         "DecodeI8",
	"I16":        "DecodeI16",
	"I32":        "DecodeI32",
	"I64":        "DecodeI64",
	"Bool":       "DecodeBool",
	"Unit":       "DecodeUnit",
}

type field struct {
	Name       string
	Type       string
	DecodeFunc string
}

type product struct {
	Name   string
	Fields []field
}

type sumVariant struct {
	Index int
	Name  string
}

type sum struct {
	Name     string
	Variants []sumVariant
}

func main() {
	var typeFlag string
	flag.StringVar(&typeFlag, "type", "", "restrict generation to this type name (optional)")
	flag.Parse()

	goFile := os.Getenv("GOFILE")
	if goFile == "" {
		args := flag.Args()
		if len(args) != 1 {
			log.Fatal("canon-derive: usage: canon-derive <file.go> (or run via go:generate, which sets GOFILE)")
		}
		goFile = args[0]
	}

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, goFile, nil, parser.ParseComments)
	if err != nil {
		log.Fatalf("canon-derive: parse %s: %v", goFile, err)
	}

	var products []product
	var sums []sum

	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			if typeFlag != "" && ts.Name.Name != typeFlag {
				continue
			}
			doc := declDoc(gd, ts)
			switch t := ts.Type.(type) {
			case *ast.StructType:
				if !hasMarker(doc, productMarker) {
					continue
				}
				products = append(products, buildProduct(ts.Name.Name, t))
			case *ast.InterfaceType:
				variants := sumVariantsFromDoc(doc)
				if variants == nil {
					continue
				}
				sums = append(sums, sum{Name: ts.Name.Name, Variants: variants})
			}
		}
	}

	if len(products) == 0 && len(sums) == 0 {
		log.Printf("canon-derive: no //%s or //%sannotations found in %s", productMarker, sumMarkerPrefix, goFile)
		return
	}

	var buf bytes.Buffer
	header := struct {
		Source  string
		Package string
	}{Source: filepath.Base(goFile), Package: f.Name.Name}
	if err := headerTmpl.Execute(&buf, header); err != nil {
		log.Fatalf("canon-derive: header: %v", err)
	}
	for _, p := range products {
		if err := productTmpl.Execute(&buf, p); err != nil {
			log.Fatalf("canon-derive: product %s: %v", p.Name, err)
		}
	}
	for _, s := range sums {
		if err := sumTmpl.Execute(&buf, s); err != nil {
			log.Fatalf("canon-derive: sum %s: %v", s.Name, err)
		}
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		// Emit the unformatted source too, so a failure is debuggable.
		os.Stderr.Write(buf.Bytes())
		log.Fatalf("canon-derive: gofmt: %v", err)
	}

	outPath := strings.TrimSuffix(goFile, ".go") + "_canon.go"
	if err := os.WriteFile(outPath, formatted, 0o644); err != nil {
		log.Fatalf("canon-derive: write %s: %v", outPath, err)
	}
}

func declDoc(gd *ast.GenDecl, ts *ast.TypeSpec) *ast.CommentGroup {
	if ts.Doc != nil {
		return ts.Doc
	}
	if len(gd.Specs) == 1 {
		return gd.Doc
	}
	return nil
}

func hasMarker(doc *ast.CommentGroup, marker string) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if strings.Contains(c.Text, marker) {
			return true
		}
	}
	return false
}

func sumVariantsFromDoc(doc *ast.CommentGroup) []sumVariant {
	if doc == nil {
		return nil
	}
	for _, c := range doc.List {
		idx := strings.Index(c.Text, sumMarkerPrefix)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(c.Text[idx+len(sumMarkerPrefix):])
		names := strings.Split(rest, ",")
		variants := make([]sumVariant, 0, len(names))
		for i, n := range names {
			variants = append(variants, sumVariant{Index: i, Name: strings.TrimSpace(n)})
		}
		return variants
	}
	return nil
}

func buildProduct(name string, st *ast.StructType) product {
	p := product{Name: name}
	for _, f := range st.Fields.List {
		typeName := exprString(f.Type)
		decodeFn := decodeFuncFor[typeName]
		if f.Tag != nil {
			if override := tagValue(f.Tag.Value, "decode"); override != "" {
				decodeFn = override
			}
		}
		for _, n := range f.Names {
			p.Fields = append(p.Fields, field{Name: n.Name, Type: typeName, DecodeFunc: decodeFn})
		}
	}
	return p
}

func tagValue(raw, key string) string {
	raw = strings.Trim(raw, "`")
	prefix := `canon:"` + key + "="
	idx := strings.Index(raw, prefix)
	if idx < 0 {
		return ""
	}
	rest := raw[idx+len(prefix):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func exprString(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.IndexExpr:
		return exprString(t.X) + "[" + exprString(t.Index) + "]"
	default:
		return fmt.Sprintf("%T", e)
	}
}

var headerTmpl = template.Must(template.New("header").Parse(
	`// Code generated by canon-derive from {{.Source}}. DO NOT EDIT.

package {{.Package}}

import (
	"synnergy-canon/canon"
	"synnergy-canon/canon/derive"
)

`))

var productTmpl = template.Must(template.New("product").Parse(`
func (v *{{.Name}}) WriteTo(sink canon.Sink) error {
	return derive.WriteFields(sink{{range .Fields}}, &v.{{.Name}}{{end}})
}

func (v *{{.Name}}) EncodedLen() int {
	return derive.FieldsLen({{range $i, $f := .Fields}}{{if $i}}, {{end}}&v.{{$f.Name}}{{end}})
}

func Decode{{.Name}}(src canon.Source) ({{.Name}}, error) {
	var out {{.Name}}
	var err error
{{range .Fields}}	out.{{.Name}}, err = {{.DecodeFunc}}(src)
	if err != nil {
		return out, err
	}
{{end}}	return out, nil
}
`))

var sumTmpl = template.Must(template.New("sum").Parse(`
func Write{{.Name}}(sink canon.Sink, v {{.Name}}) error {
	switch t := v.(type) {
{{range .Variants}}	case {{.Name}}:
		return derive.WriteVariant(sink, {{.Index}}, &t)
{{end}}	default:
		return canon.ErrInvalidEncoding
	}
}

func Decode{{.Name}}(src canon.Source) ({{.Name}}, error) {
	tag, err := derive.ReadVariantTag(src, {{len .Variants}})
	if err != nil {
		return nil, err
	}
	switch tag {
{{range .Variants}}	case {{.Index}}:
		v, err := Decode{{.Name}}(src)
		if err != nil {
			return nil, err
		}
		return v, nil
{{end}}	default:
		return nil, canon.ErrInvalidEncoding
	}
}
`))
