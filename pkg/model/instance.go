package model

// ObjectInstance is one loaded model object. Identity is the arena index
// assigned at registration, never structural equality: two objects with
// identical attribute values remain distinct instances. Instances are
// created during load, owned by the Registry, and never mutated afterward.
type ObjectInstance struct {
	ID         int    // arena index, the identity key
	Class      *ClassRef
	Attrs      map[string]any // bool, int64, float64, string
	Refs       map[string][]*ObjectInstance // single refs are 0/1-length
	SourceFile string
	Root       bool
}

// Attribute returns the value of the named attribute, resolving only
// values present on the object itself (absent attributes are nil, which
// evaluates to the empty collection).
func (o *ObjectInstance) Attribute(name string) (any, bool) {
	v, ok := o.Attrs[name]
	return v, ok
}

// Referenced returns the objects linked through the named reference,
// in document order. A missing reference yields an empty slice.
func (o *ObjectInstance) Referenced(name string) []*ObjectInstance {
	return o.Refs[name]
}

// Label returns a short human-readable identifier for diagnostics.
func (o *ObjectInstance) Label() string {
	if name, ok := o.Attrs["name"].(string); ok && name != "" {
		return name
	}
	return o.Class.QualifiedName()
}
