package main

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"
)

const sampleSource = `package sample

//canon:generate
type Point struct {
	X canon.U32
	Y canon.U32
}

//canon:generate:sum Circle,Square
type Shape interface {
	canon.Canon
}
`

func parseSample(t *testing.T) *ast.File {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "sample.go", sampleSource, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return f
}

func TestBuildProductFromAnnotatedStruct(t *testing.T) {
	f := parseSample(t)
	var p product
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			if st, ok := ts.Type.(*ast.StructType); ok && hasMarker(declDoc(gd, ts), productMarker) {
				p = buildProduct(ts.Name.Name, st)
			}
		}
	}
	if p.Name != "Point" {
		t.Fatalf("expected Point, got %q", p.Name)
	}
	if len(p.Fields) != 2 || p.Fields[0].Name != "X" || p.Fields[1].Name != "Y" {
		t.Fatalf("unexpected fields: %+v", p.Fields)
	}
	if p.Fields[0].DecodeFunc != "canon.DecodeU32" {
		t.Fatalf("expected canon.DecodeU32, got %q", p.Fields[0].DecodeFunc)
	}
}

func TestSumVariantsFromDocParsesDeclarationOrder(t *testing.T) {
	f := parseSample(t)
	var variants []sumVariant
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			if _, ok := ts.Type.(*ast.InterfaceType); ok {
				variants = sumVariantsFromDoc(declDoc(gd, ts))
			}
		}
	}
	if len(variants) != 2 || variants[0].Name != "Circle" || variants[1].Name != "Square" {
		t.Fatalf("unexpected variants: %+v", variants)
	}
	if variants[0].Index != 0 || variants[1].Index != 1 {
		t.Fatalf("expected declaration-order indices, got %+v", variants)
	}
}

func TestProductTemplateRendersMethodsAndFields(t *testing.T) {
	p := product{Name: "Point", Fields: []field{
		{Name: "X", Type: "canon.U32", DecodeFunc: "canon.DecodeU32"},
		{Name: "Y", Type: "canon.U32", DecodeFunc: "canon.DecodeU32"},
	}}
	var buf strings.Builder
	if err := productTmpl.Execute(&buf, p); err != nil {
		t.Fatalf("execute: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"func (v *Point) WriteTo", "func (v *Point) EncodedLen", "func DecodePoint", "&v.X", "&v.Y"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestHeaderTemplateUsesParsedPackageName(t *testing.T) {
	var buf strings.Builder
	header := struct{ Source, Package string }{Source: "sample.go", Package: "sample"}
	if err := headerTmpl.Execute(&buf, header); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(buf.String(), "package sample") {
		t.Fatalf("expected package declaration to use the parsed package name, got:\n%s", buf.String())
	}
}
