package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/c360studio/semaudit/evidence"
)

func init() {
	DefaultRegistry.Register("typescript",
		[]string{".ts", ".tsx", ".mts", ".cts"},
		func() FileCollector { return NewTSCollector() })
	DefaultRegistry.Register("javascript",
		[]string{".js", ".jsx", ".mjs", ".cjs"},
		func() FileCollector { return NewTSCollector() })
}

// TSCollector extracts facts from TypeScript and JavaScript sources using
// tree-sitter. Exported functions, classes and their public methods always
// yield facts; exported consts only when commented. Interfaces, type
// aliases and enums describe shape rather than behavior and are skipped.
type TSCollector struct{}

// NewTSCollector creates a new TypeScript/JavaScript fact collector.
func NewTSCollector() *TSCollector {
	return &TSCollector{}
}

// CollectFile parses a single TypeScript/JavaScript file and extracts
// facts from its top-level exports. Declaration files are skipped.
func (t *TSCollector) CollectFile(ctx context.Context, path, relPath, featureKey string) ([]evidence.Fact, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if strings.HasSuffix(path, ".d.ts") {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(treeSitterLanguage(path))

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	var facts []evidence.Fact

	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "export_statement" {
			continue
		}

		comment := leadingComment(child, content)
		facts = append(facts, t.exportFacts(child, comment, content, relPath, featureKey)...)
	}

	return facts, nil
}

// treeSitterLanguage returns the tree-sitter language for the file type.
func treeSitterLanguage(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		return tsx.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// leadingComment returns the cleaned comment immediately preceding a node.
func leadingComment(node *sitter.Node, source []byte) string {
	prev := node.PrevNamedSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	return cleanComment(prev.Content(source))
}

// exportFacts extracts facts from one export statement.
func (t *TSCollector) exportFacts(export *sitter.Node, comment string, source []byte, relPath, featureKey string) []evidence.Fact {
	var facts []evidence.Fact

	for i := 0; i < int(export.NamedChildCount()); i++ {
		decl := export.NamedChild(i)

		switch decl.Type() {
		case "function_declaration":
			if fact, ok := namedFact(decl, comment, source, relPath, featureKey, true); ok {
				facts = append(facts, fact)
			}

		case "class_declaration":
			if fact, ok := namedFact(decl, comment, source, relPath, featureKey, true); ok {
				facts = append(facts, fact)
			}
			facts = append(facts, t.classMethodFacts(decl, source, relPath, featureKey)...)

		case "lexical_declaration", "variable_declaration":
			facts = append(facts, t.declaratorFacts(decl, comment, source, relPath, featureKey)...)
		}
	}

	return facts
}

// classMethodFacts extracts facts for the public methods of a class.
func (t *TSCollector) classMethodFacts(class *sitter.Node, source []byte, relPath, featureKey string) []evidence.Fact {
	var facts []evidence.Fact

	body := class.ChildByFieldName("body")
	if body == nil {
		return facts
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		method := body.NamedChild(i)
		if method.Type() != "method_definition" {
			continue
		}

		nameNode := method.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(source)
		if name == "constructor" || strings.HasPrefix(name, "#") || isPrivate(method, source) {
			continue
		}

		comment := leadingComment(method, source)
		if fact, ok := buildFact(name, comment, method, relPath, featureKey, true); ok {
			facts = append(facts, fact)
		}
	}

	return facts
}

// declaratorFacts extracts facts from const/let/var declarators. Arrow
// function values count as functions; plain values need a comment.
func (t *TSCollector) declaratorFacts(decl *sitter.Node, comment string, source []byte, relPath, featureKey string) []evidence.Fact {
	var facts []evidence.Fact

	for i := 0; i < int(decl.NamedChildCount()); i++ {
		declarator := decl.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}

		nameNode := declarator.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}

		isFunc := false
		if value := declarator.ChildByFieldName("value"); value != nil {
			if value.Type() == "arrow_function" || value.Type() == "function" {
				isFunc = true
			}
		}

		if fact, ok := buildFact(nameNode.Content(source), comment, declarator, relPath, featureKey, isFunc); ok {
			facts = append(facts, fact)
		}
	}

	return facts
}

// namedFact builds a fact for a declaration carrying a name field.
func namedFact(decl *sitter.Node, comment string, source []byte, relPath, featureKey string, always bool) (evidence.Fact, bool) {
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil {
		return evidence.Fact{}, false
	}
	return buildFact(nameNode.Content(source), comment, decl, relPath, featureKey, always)
}

// buildFact assembles a fact from a declaration name, its comment and its
// position. When always is false, an uncommented declaration produces
// nothing.
func buildFact(name, comment string, node *sitter.Node, relPath, featureKey string, always bool) (evidence.Fact, bool) {
	ann, cleaned := parseMarkers(comment)
	if ann.ignore {
		return evidence.Fact{}, false
	}

	desc := ann.text
	if desc == "" {
		if !always && firstSentence(cleaned) == "" {
			return evidence.Fact{}, false
		}
		desc = deriveDescription(cleaned, name)
	}

	return evidence.Fact{
		FeatureKey:       featureKey,
		Description:      desc,
		Location:         fmt.Sprintf("%s:%d", relPath, int(node.StartPoint().Row)+1),
		SecurityRelevant: ann.security,
	}, true
}

// isPrivate reports whether a method carries a private or protected
// accessibility modifier.
func isPrivate(method *sitter.Node, source []byte) bool {
	for i := 0; i < int(method.ChildCount()); i++ {
		child := method.Child(i)
		if child.Type() == "accessibility_modifier" {
			mod := child.Content(source)
			return mod == "private" || mod == "protected"
		}
	}
	return false
}
