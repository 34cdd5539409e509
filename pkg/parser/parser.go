// Package parser is a tree-sitter front end that reads Java sources into
// universe documents.
//
// It recovers declarations and the name-level cross-references of method
// bodies. Receivers whose static type cannot be told from declarations in
// scope are recorded with the wildcard owner, which the reachability
// resolver widens to every method of that name.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/panbanda/libmodel/pkg/universe"
)

// Extension is the file extension handled by this package.
const Extension = ".java"

// Parser wraps a tree-sitter parser configured for Java. A Parser is not
// safe for concurrent use.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree   *sitter.Tree
	Source []byte
	Path   string
}

// New creates a new parser instance.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Parser{parser: p}
}

// ParseFile parses a source file and returns the AST.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(context.Background(), source, path)
}

// Parse parses Java source code.
func (p *Parser) Parse(ctx context.Context, source []byte, path string) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	return &ParseResult{Tree: tree, Source: source, Path: path}, nil
}

// IsJava reports whether path names a Java source file.
func IsJava(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// Decode parses Java source into an application document. It has the shape
// of universe.DecodeFunc.
func Decode(path string, data []byte) (*universe.Document, error) {
	p := New()
	defer p.Close()

	res, err := p.Parse(context.Background(), data, path)
	if err != nil {
		return nil, err
	}
	defer res.Tree.Close()
	return Extract(res)
}

// NodeVisitor is a function that visits AST nodes.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// Walk traverses the AST calling visitor for each node. Returning false from
// visitor skips the node's children.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}
	if !visitor(node, source) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(i), source, visitor)
	}
}

// FindNodesByType returns every node of the given type below root.
func FindNodesByType(root *sitter.Node, source []byte, nodeType string) []*sitter.Node {
	var nodes []*sitter.Node
	Walk(root, source, func(n *sitter.Node, _ []byte) bool {
		if n.Type() == nodeType {
			nodes = append(nodes, n)
		}
		return true
	})
	return nodes
}

// GetNodeText returns the source text of a node.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return node.Content(source)
}

// namedChildren returns the named children of n.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// childOfType returns the first named child of n with type t.
func childOfType(n *sitter.Node, t string) *sitter.Node {
	for _, c := range namedChildren(n) {
		if c.Type() == t {
			return c
		}
	}
	return nil
}
