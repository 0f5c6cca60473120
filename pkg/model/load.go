package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MetamodelDoc is the on-disk shape of a metamodel file.
type MetamodelDoc struct {
	Metamodel string              `yaml:"metamodel"`
	Classes   map[string]ClassDoc `yaml:"classes"`
}

// ClassDoc is the on-disk shape of one class declaration.
type ClassDoc struct {
	Extends    []string                `yaml:"extends"`
	Attributes map[string]string       `yaml:"attributes"`
	References map[string]ReferenceDoc `yaml:"references"`
}

// ReferenceDoc is the on-disk shape of one reference declaration.
type ReferenceDoc struct {
	Target string `yaml:"target"`
	Many   bool   `yaml:"many"`
}

// InstanceDoc is the on-disk shape of an instance file.
type InstanceDoc struct {
	Instances []*InstanceNode `yaml:"instances"`
}

// InstanceNode is one object in an instance file. Top-level nodes are
// roots (context candidates); nodes under "contains" are indexed but not
// eligible as constraint contexts.
type InstanceNode struct {
	Label      string                `yaml:"id"`
	Class      string                `yaml:"class"`
	Attributes map[string]any        `yaml:"attributes"`
	References map[string]RefTargets `yaml:"references"`
	Contains   []*InstanceNode       `yaml:"contains"`
}

// RefTargets accepts either a single id or a list of ids in YAML.
type RefTargets []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *RefTargets) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*r = RefTargets{s}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*r = RefTargets(list)
	return nil
}

// LoadMetamodelFile reads and registers a metamodel file. Metamodels with
// cross-metamodel reference targets must be loaded after the metamodels
// they point into.
func LoadMetamodelFile(r *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read metamodel %s: %w", path, err)
	}

	var doc MetamodelDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse metamodel %s: %w", path, err)
	}
	if doc.Metamodel == "" {
		return fmt.Errorf("metamodel %s: missing metamodel name", path)
	}

	return RegisterMetamodelDoc(r, &doc)
}

// RegisterMetamodelDoc builds ClassRefs from a parsed metamodel document
// and registers them. Classes are created first and wired afterwards so
// that declaration order within the document does not matter.
func RegisterMetamodelDoc(r *Registry, doc *MetamodelDoc) error {
	classes := make(map[string]*ClassRef, len(doc.Classes))
	for name := range doc.Classes {
		classes[name] = &ClassRef{
			Metamodel:  doc.Metamodel,
			Name:       name,
			Attributes: make(map[string]PrimType),
			References: make(map[string]Reference),
		}
	}
	if err := r.RegisterMetamodel(doc.Metamodel, classes); err != nil {
		return err
	}

	resolve := func(name string) (*ClassRef, error) {
		if mm, cls, ok := splitQualName(name); ok {
			return r.ResolveClass(mm, cls)
		}
		if ref, ok := classes[name]; ok {
			return ref, nil
		}
		return nil, fmt.Errorf("%w: %s::%s", ErrClassNotFound, doc.Metamodel, name)
	}

	for name, cd := range doc.Classes {
		ref := classes[name]

		for _, super := range cd.Extends {
			superRef, err := resolve(super)
			if err != nil {
				return fmt.Errorf("metamodel %s, class %s: supertype: %w", doc.Metamodel, name, err)
			}
			ref.Supertypes = append(ref.Supertypes, superRef)
		}

		for attr, typeName := range cd.Attributes {
			t, err := parsePrimType(typeName)
			if err != nil {
				return fmt.Errorf("metamodel %s, class %s, attribute %s: %w", doc.Metamodel, name, attr, err)
			}
			ref.Attributes[attr] = t
		}

		for refName, rd := range cd.References {
			target, err := resolve(rd.Target)
			if err != nil {
				return fmt.Errorf("metamodel %s, class %s, reference %s: %w", doc.Metamodel, name, refName, err)
			}
			ref.References[refName] = Reference{Target: target, Many: rd.Many}
		}
	}

	return nil
}

// LoadInstanceFile reads an instance file and indexes its objects.
func LoadInstanceFile(r *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read instances %s: %w", path, err)
	}

	var doc InstanceDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse instances %s: %w", path, err)
	}

	return AddInstanceDoc(r, &doc, filepath.Base(path))
}

// AddInstanceDoc registers every object of a parsed instance document.
// Objects are created in one pass, references are resolved in a second
// pass against sibling object labels, then the containment trees are
// indexed root by root in document order.
func AddInstanceDoc(r *Registry, doc *InstanceDoc, filename string) error {
	byLabel := make(map[string]*ObjectInstance)
	byNode := make(map[*InstanceNode]*ObjectInstance)
	var roots []*containmentNode

	// Pass one: create objects and the containment trees.
	var build func(node *InstanceNode, visited map[*InstanceNode]bool) (*containmentNode, error)
	build = func(node *InstanceNode, visited map[*InstanceNode]bool) (*containmentNode, error) {
		if visited[node] {
			return nil, fmt.Errorf("%w: object %q in %s", ErrCyclicContainment, node.Label, filename)
		}
		visited[node] = true

		mm, cls, ok := splitQualName(node.Class)
		if !ok {
			return nil, fmt.Errorf("instances %s: object %q: class %q is not a qualified name", filename, node.Label, node.Class)
		}
		classRef, err := r.ResolveClass(mm, cls)
		if err != nil {
			return nil, fmt.Errorf("instances %s: object %q: %w", filename, node.Label, err)
		}

		obj := &ObjectInstance{
			Class: classRef,
			Attrs: make(map[string]any, len(node.Attributes)),
			Refs:  make(map[string][]*ObjectInstance, len(node.References)),
		}
		for attr, raw := range node.Attributes {
			t, ok := classRef.LookupAttribute(attr)
			if !ok {
				return nil, fmt.Errorf("instances %s: object %q: unknown attribute %q on %s", filename, node.Label, attr, classRef.QualifiedName())
			}
			v, err := coerceAttr(raw, t)
			if err != nil {
				return nil, fmt.Errorf("instances %s: object %q, attribute %q: %w", filename, node.Label, attr, err)
			}
			obj.Attrs[attr] = v
		}

		if node.Label != "" {
			if _, dup := byLabel[node.Label]; dup {
				return nil, fmt.Errorf("instances %s: duplicate object id %q", filename, node.Label)
			}
			byLabel[node.Label] = obj
		}
		byNode[node] = obj

		cn := &containmentNode{obj: obj}
		for _, child := range node.Contains {
			childCN, err := build(child, visited)
			if err != nil {
				return nil, err
			}
			cn.children = append(cn.children, childCN)
		}
		return cn, nil
	}

	visited := make(map[*InstanceNode]bool)
	for _, root := range doc.Instances {
		cn, err := build(root, visited)
		if err != nil {
			return err
		}
		roots = append(roots, cn)
	}

	// Pass two: resolve references against labels from the same file.
	var wire func(node *InstanceNode) error
	wire = func(node *InstanceNode) error {
		obj := byNode[node]
		for refName, targets := range node.References {
			refDef, ok := obj.Class.LookupReference(refName)
			if !ok {
				return fmt.Errorf("instances %s: object %q: unknown reference %q on %s", filename, node.Label, refName, obj.Class.QualifiedName())
			}
			if !refDef.Many && len(targets) > 1 {
				return fmt.Errorf("instances %s: object %q: reference %q is single-valued but has %d targets", filename, node.Label, refName, len(targets))
			}
			for _, label := range targets {
				target, ok := byLabel[label]
				if !ok {
					return fmt.Errorf("instances %s: object %q: reference %q targets unknown id %q", filename, node.Label, refName, label)
				}
				if !target.Class.ConformsTo(refDef.Target) {
					return fmt.Errorf("instances %s: object %q: reference %q target %q is %s, want %s",
						filename, node.Label, refName, label, target.Class.QualifiedName(), refDef.Target.QualifiedName())
				}
				obj.Refs[refName] = append(obj.Refs[refName], target)
			}
		}
		for _, child := range node.Contains {
			if err := wire(child); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range doc.Instances {
		if err := wire(root); err != nil {
			return err
		}
	}

	// Index containment trees and register roots, in document order.
	for _, cn := range roots {
		if err := r.indexTree(cn, filename); err != nil {
			return err
		}
		r.addRoot(cn.obj, filename)
	}
	return nil
}

// splitQualName splits "mm::Class" into its parts.
func splitQualName(name string) (metamodel, class string, ok bool) {
	idx := strings.Index(name, "::")
	if idx <= 0 || idx+2 >= len(name) {
		return "", "", false
	}
	return name[:idx], name[idx+2:], true
}

// parsePrimType parses an attribute type name from a metamodel file.
func parsePrimType(name string) (PrimType, error) {
	switch name {
	case "bool", "boolean":
		return PrimBool, nil
	case "int", "integer":
		return PrimInt, nil
	case "real", "float", "double":
		return PrimReal, nil
	case "string":
		return PrimString, nil
	default:
		return 0, fmt.Errorf("unknown attribute type %q", name)
	}
}

// coerceAttr converts a YAML scalar to the declared attribute type.
// Integers widen to real where the metamodel asks for real.
func coerceAttr(raw any, t PrimType) (any, error) {
	switch t {
	case PrimBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case PrimInt:
		switch v := raw.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		}
	case PrimReal:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case PrimString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("value %v does not match declared type %s", raw, t)
}
