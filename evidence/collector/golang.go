package collector

import (
	"context"
	"fmt"
	goast "go/ast"
	goparser "go/parser"
	"go/token"
	"os"
	"strings"

	"github.com/c360studio/semaudit/evidence"
)

func init() {
	DefaultRegistry.Register("go", []string{".go"},
		func() FileCollector { return NewGoCollector() })
}

// GoCollector extracts facts from Go source files. Every exported function
// and method yields a fact; exported types, consts and vars only when they
// carry a doc comment or an explicit audit:fact directive, which keeps
// declaration noise out of the audit.
type GoCollector struct{}

// NewGoCollector creates a new Go fact collector.
func NewGoCollector() *GoCollector {
	return &GoCollector{}
}

// CollectFile parses a single Go file and extracts facts.
// Test files are skipped.
func (g *GoCollector) CollectFile(ctx context.Context, path, relPath, featureKey string) ([]evidence.Fact, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if strings.HasSuffix(path, "_test.go") {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	fset := token.NewFileSet()
	file, err := goparser.ParseFile(fset, path, content, goparser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}

	var facts []evidence.Fact
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *goast.FuncDecl:
			if fact, ok := g.functionFact(fset, d, relPath, featureKey); ok {
				facts = append(facts, fact)
			}

		case *goast.GenDecl:
			facts = append(facts, g.genDeclFacts(fset, d, relPath, featureKey)...)
		}
	}

	return facts, nil
}

// functionFact builds a fact for an exported function or method.
func (g *GoCollector) functionFact(fset *token.FileSet, fn *goast.FuncDecl, relPath, featureKey string) (evidence.Fact, bool) {
	if !fn.Name.IsExported() {
		return evidence.Fact{}, false
	}

	doc := ""
	if fn.Doc != nil {
		doc = fn.Doc.Text()
	}

	ann, cleaned := parseMarkers(doc)
	if ann.ignore {
		return evidence.Fact{}, false
	}

	desc := ann.text
	if desc == "" {
		desc = deriveDescription(cleaned, fn.Name.Name)
	}

	return evidence.Fact{
		FeatureKey:       featureKey,
		Description:      desc,
		Location:         fmt.Sprintf("%s:%d", relPath, fset.Position(fn.Pos()).Line),
		SecurityRelevant: ann.security,
	}, true
}

// genDeclFacts builds facts for documented exported types, consts and vars.
func (g *GoCollector) genDeclFacts(fset *token.FileSet, d *goast.GenDecl, relPath, featureKey string) []evidence.Fact {
	var facts []evidence.Fact

	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *goast.TypeSpec:
			doc := specDoc(s.Doc, d.Doc)
			if fact, ok := declarationFact(s.Name, doc, fset.Position(s.Pos()).Line, relPath, featureKey); ok {
				facts = append(facts, fact)
			}

		case *goast.ValueSpec:
			doc := specDoc(s.Doc, d.Doc)
			for _, name := range s.Names {
				if fact, ok := declarationFact(name, doc, fset.Position(name.Pos()).Line, relPath, featureKey); ok {
					facts = append(facts, fact)
				}
			}
		}
	}

	return facts
}

// specDoc prefers the spec's own doc comment over the group's.
func specDoc(specDoc, groupDoc *goast.CommentGroup) string {
	if specDoc != nil {
		return specDoc.Text()
	}
	if groupDoc != nil {
		return groupDoc.Text()
	}
	return ""
}

// declarationFact builds a fact for an exported non-function declaration.
// Undocumented declarations produce nothing.
func declarationFact(name *goast.Ident, doc string, line int, relPath, featureKey string) (evidence.Fact, bool) {
	if !name.IsExported() {
		return evidence.Fact{}, false
	}

	ann, cleaned := parseMarkers(doc)
	if ann.ignore {
		return evidence.Fact{}, false
	}

	desc := ann.text
	if desc == "" {
		desc = strings.TrimSpace(firstSentence(cleaned))
		if desc == "" {
			return evidence.Fact{}, false
		}
		if rest, found := strings.CutPrefix(desc, name.Name+" "); found {
			desc = rest
		}
	}

	return evidence.Fact{
		FeatureKey:       featureKey,
		Description:      desc,
		Location:         fmt.Sprintf("%s:%d", relPath, line),
		SecurityRelevant: ann.security,
	}, true
}
