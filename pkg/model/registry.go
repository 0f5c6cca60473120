package model

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors for registry resolution and indexing.
var (
	ErrMetamodelNotFound  = errors.New("metamodel not found")
	ErrClassNotFound      = errors.New("class not found")
	ErrCyclicContainment  = errors.New("cyclic containment")
	ErrDuplicateMetamodel = errors.New("metamodel already registered")
)

// Registry is the session-scoped model store. It holds the class graph of
// every registered metamodel and the object graph of every loaded instance
// file. All loading must finish before evaluation starts; after that the
// registry is read-only and safe for concurrent readers.
type Registry struct {
	metamodels map[string]map[string]*ClassRef
	arena      []*ObjectInstance // every indexed object, load order; ID = index
	contexts   []*ObjectInstance // root objects, load order
	files      []string          // parallel to contexts: source filenames
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		metamodels: make(map[string]map[string]*ClassRef),
	}
}

// RegisterMetamodel registers a metamodel's classes under the given name.
func (r *Registry) RegisterMetamodel(name string, classes map[string]*ClassRef) error {
	if _, ok := r.metamodels[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMetamodel, name)
	}
	r.metamodels[name] = classes
	return nil
}

// ResolveClass resolves a qualified name to a ClassRef. Resolution is
// independent of any constraint's own context metamodel, which is what
// makes cross-metamodel constraints work.
func (r *Registry) ResolveClass(metamodel, class string) (*ClassRef, error) {
	pkg, ok := r.metamodels[metamodel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMetamodelNotFound, metamodel)
	}
	ref, ok := pkg[class]
	if !ok {
		return nil, fmt.Errorf("%w: %s::%s", ErrClassNotFound, metamodel, class)
	}
	return ref, nil
}

// Metamodels returns the registered metamodel names, sorted.
func (r *Registry) Metamodels() []string {
	names := make([]string, 0, len(r.metamodels))
	for name := range r.metamodels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// containmentNode pairs an object with its not-yet-indexed children.
type containmentNode struct {
	obj      *ObjectInstance
	children []*containmentNode
}

// indexTree walks a containment tree iteratively, assigning arena IDs in
// document order. A node reached twice means the containment graph has a
// cycle (possible through YAML aliasing); that fails rather than looping.
func (r *Registry) indexTree(root *containmentNode, filename string) error {
	visited := make(map[*containmentNode]bool)
	stack := []*containmentNode{root}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[node] {
			return fmt.Errorf("%w: object %s in %s", ErrCyclicContainment, node.obj.Label(), filename)
		}
		visited[node] = true

		node.obj.ID = len(r.arena)
		node.obj.SourceFile = filename
		r.arena = append(r.arena, node.obj)

		// Push children in reverse so they are indexed in document order.
		for i := len(node.children) - 1; i >= 0; i-- {
			stack = append(stack, node.children[i])
		}
	}
	return nil
}

// addRoot registers an indexed root object as a context candidate.
func (r *Registry) addRoot(obj *ObjectInstance, filename string) {
	obj.Root = true
	r.contexts = append(r.contexts, obj)
	r.files = append(r.files, filename)
}

// AllInstances returns every loaded instance whose runtime class is the
// given class or a transitive subtype, deduplicated by identity, in load
// order.
func (r *Registry) AllInstances(c *ClassRef) []*ObjectInstance {
	var result []*ObjectInstance
	for _, obj := range r.arena {
		if obj.Class.ConformsTo(c) {
			result = append(result, obj)
		}
	}
	return result
}

// ContextObjects returns all root objects in load order.
func (r *Registry) ContextObjects() []*ObjectInstance {
	return r.contexts
}

// SourceFile returns the source filename of the given instance.
func (r *Registry) SourceFile(obj *ObjectInstance) string {
	return obj.SourceFile
}

// InstanceCount returns the number of indexed objects across all files.
func (r *Registry) InstanceCount() int {
	return len(r.arena)
}
