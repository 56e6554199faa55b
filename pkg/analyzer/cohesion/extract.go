package cohesion

import (
	"errors"
	"fmt"

	"github.com/panbanda/cohesion/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// DefaultBoundName is the conventional name of an instance method's receiver.
const DefaultBoundName = "self"

// Decorator names that change how a method binds.
const (
	StaticMethodDecorator = "staticmethod"
	ClassMethodDecorator  = "classmethod"
)

// ErrInvalidNameNode is returned when a node that is expected to denote a
// name is of a kind the resolver does not know how to unwrap.
var ErrInvalidNameNode = errors.New("node does not resolve to a name")

// Python tree-sitter node kinds used by the extractor.
const (
	nodeClass          = "class_definition"
	nodeFunction       = "function_definition"
	nodeDecorated      = "decorated_definition"
	nodeDecorator      = "decorator"
	nodeExpressionStmt = "expression_statement"
	nodeAssignment     = "assignment"
	nodeAttribute      = "attribute"
	nodeCall           = "call"
	nodeIdentifier     = "identifier"
)

// FindClasses returns every class definition in the tree, nested ones
// included, in depth-first document order.
func FindClasses(root *sitter.Node) []*sitter.Node {
	return parser.FindNodesByType(root, nil, nodeClass)
}

// FindMethods returns the function definitions that are direct statements of
// the class body, including decorated ones. Nested functions, lambdas, methods
// of nested classes and async functions are not methods here.
func FindMethods(class *sitter.Node) []*sitter.Node {
	var methods []*sitter.Node
	for _, stmt := range parser.NamedChildren(class.ChildByFieldName("body")) {
		def := stmt
		if stmt.Type() == nodeDecorated {
			def = stmt.ChildByFieldName("definition")
		}
		if def != nil && def.Type() == nodeFunction && !isAsync(def) {
			methods = append(methods, def)
		}
	}
	return methods
}

func isAsync(fn *sitter.Node) bool {
	return fn.ChildCount() > 0 && fn.Child(0).Type() == "async"
}

// DeclaredClassVariables returns the targets of every plain assignment that
// is a direct statement of the class body. Chained assignments contribute each
// of their targets. Method bodies are not searched.
func DeclaredClassVariables(class *sitter.Node) []*sitter.Node {
	var targets []*sitter.Node
	for _, stmt := range parser.NamedChildren(class.ChildByFieldName("body")) {
		if stmt.Type() != nodeExpressionStmt {
			continue
		}
		for _, expr := range parser.NamedChildren(stmt) {
			if expr.Type() != nodeAssignment || expr.ChildByFieldName("type") != nil {
				continue
			}
			for assign := expr; assign != nil && assign.Type() == nodeAssignment; assign = assign.ChildByFieldName("right") {
				if left := assign.ChildByFieldName("left"); left != nil {
					targets = append(targets, left)
				}
			}
		}
	}
	return targets
}

// AllAttributeAccesses returns every attribute access under node whose
// receiver is the bare name boundName, in document order.
func AllAttributeAccesses(node *sitter.Node, boundName string, source []byte) []*sitter.Node {
	var accesses []*sitter.Node
	parser.WalkTyped(node, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if nodeType == nodeAttribute && receiverIs(n, boundName, src) {
			accesses = append(accesses, n)
		}
		return true
	})
	return accesses
}

// ReferencedAttributeAccesses returns the attribute accesses on boundName
// under node, minus those whose name is also the name of something called
// anywhere in the same subtree. The exclusion is by name: once x is called
// as self.x() in the subtree, every self.x access there is dropped.
func ReferencedAttributeAccesses(node *sitter.Node, boundName string, source []byte) ([]*sitter.Node, error) {
	called, err := calledNames(node, source)
	if err != nil {
		return nil, err
	}

	var accesses []*sitter.Node
	for _, attr := range AllAttributeAccesses(node, boundName, source) {
		name, err := ResolveName(attr, source)
		if err != nil {
			return nil, err
		}
		if _, isCall := called[name]; !isCall {
			accesses = append(accesses, attr)
		}
	}
	return accesses, nil
}

func calledNames(node *sitter.Node, source []byte) (map[string]struct{}, error) {
	names := make(map[string]struct{})
	var resolveErr error
	parser.WalkTyped(node, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if resolveErr != nil {
			return false
		}
		if nodeType == nodeCall {
			name, err := ResolveName(n, src)
			if err != nil {
				resolveErr = err
				return false
			}
			names[name] = struct{}{}
		}
		return true
	})
	return names, resolveErr
}

func receiverIs(attr *sitter.Node, name string, source []byte) bool {
	obj := attr.ChildByFieldName("object")
	return obj != nil && obj.Type() == nodeIdentifier && parser.GetNodeText(obj, source) == name
}

// IsBound reports whether the method's first positional parameter is named
// marker. A method without positional parameters is never bound.
func IsBound(method *sitter.Node, marker string, source []byte) bool {
	first := firstPositionalParameter(method)
	if first == nil {
		return false
	}
	name, err := ResolveName(first, source)
	if err != nil {
		return false
	}
	return name == marker
}

// firstPositionalParameter returns the first parameter that can be passed
// positionally, or nil. Positional parameters end at *args, a bare * or
// **kwargs.
func firstPositionalParameter(method *sitter.Node) *sitter.Node {
	for _, param := range parser.NamedChildren(method.ChildByFieldName("parameters")) {
		switch param.Type() {
		case "identifier", "default_parameter", "typed_default_parameter":
			return param
		case "typed_parameter":
			if inner := parser.NamedChildren(param); len(inner) > 0 && inner[0].Type() == nodeIdentifier {
				return param
			}
			return nil
		case "positional_separator":
			continue
		default:
			// list_splat_pattern, dictionary_splat_pattern, keyword_separator,
			// and tuple parameters carry no positional name.
			return nil
		}
	}
	return nil
}

// HasDecorator reports whether any decorator on the method resolves to name.
// Decorator arguments are ignored: @name, @mod.name and @name(...) all match.
func HasDecorator(method *sitter.Node, name string, source []byte) (bool, error) {
	for _, dec := range decorators(method) {
		resolved, err := ResolveName(dec, source)
		if err != nil {
			return false, err
		}
		if resolved == name {
			return true, nil
		}
	}
	return false, nil
}

// IsStaticMethod reports whether the method is decorated with staticmethod.
func IsStaticMethod(method *sitter.Node, source []byte) (bool, error) {
	return HasDecorator(method, StaticMethodDecorator, source)
}

// IsClassMethod reports whether the method is decorated with classmethod.
func IsClassMethod(method *sitter.Node, source []byte) (bool, error) {
	return HasDecorator(method, ClassMethodDecorator, source)
}

func decorators(def *sitter.Node) []*sitter.Node {
	parent := def.Parent()
	if parent == nil || parent.Type() != nodeDecorated {
		return nil
	}
	var decs []*sitter.Node
	for _, child := range parser.NamedChildren(parent) {
		if child.Type() == nodeDecorator {
			decs = append(decs, child)
		}
	}
	return decs
}

// ResolveName unwraps a node that denotes the name of something down to its
// terminal identifier: self.x -> x, f(...) -> f, m.deco(...) -> deco,
// table[0] -> table. Unknown node kinds are an error, never a guess.
func ResolveName(node *sitter.Node, source []byte) (string, error) {
	for {
		if node == nil {
			return "", fmt.Errorf("%w: missing node", ErrInvalidNameNode)
		}

		switch node.Type() {
		case nodeIdentifier, "keyword_identifier":
			return parser.GetNodeText(node, source), nil
		case nodeAttribute:
			node = node.ChildByFieldName("attribute")
		case nodeCall:
			node = node.ChildByFieldName("function")
		case "subscript":
			node = node.ChildByFieldName("value")
		case nodeDecorator, "parenthesized_expression", "typed_parameter":
			node = firstNamedChild(node)
		case "default_parameter", "typed_default_parameter", nodeFunction, nodeClass:
			node = node.ChildByFieldName("name")
		default:
			pt := node.StartPoint()
			return "", fmt.Errorf("%w: %s at %d:%d", ErrInvalidNameNode, node.Type(), pt.Row+1, pt.Column)
		}
	}
}

func firstNamedChild(node *sitter.Node) *sitter.Node {
	if children := parser.NamedChildren(node); len(children) > 0 {
		return children[0]
	}
	return nil
}
