package object

// Descriptor describes one property. It is an accessor property when Get or
// Set is non-nil, otherwise a data property holding Value.
type Descriptor struct {
	Value Value
	Get   Callable
	Set   Callable

	Writable     bool
	Enumerable   bool
	Configurable bool
}

// IsAccessor reports whether d describes an accessor property.
func (d Descriptor) IsAccessor() bool {
	return d.Get != nil || d.Set != nil
}

// DataProperty returns a writable, enumerable, configurable data descriptor.
// This is the shape of a property created by plain assignment.
func DataProperty(v Value) Descriptor {
	return Descriptor{
		Value:        v,
		Writable:     true,
		Enumerable:   true,
		Configurable: true,
	}
}

// ConstantProperty returns an enumerable data descriptor that is neither
// writable nor configurable.
func ConstantProperty(v Value) Descriptor {
	return Descriptor{
		Value:      v,
		Enumerable: true,
	}
}

// AccessorProperty returns an enumerable, configurable accessor descriptor.
func AccessorProperty(get, set Callable) Descriptor {
	return Descriptor{
		Get:          get,
		Set:          set,
		Enumerable:   true,
		Configurable: true,
	}
}

// compatible reports whether desc may replace current when current is not
// configurable.
func compatible(current, desc Descriptor) bool {
	if desc.Configurable || desc.Enumerable != current.Enumerable {
		return false
	}
	if current.IsAccessor() != desc.IsAccessor() {
		return false
	}
	if current.IsAccessor() {
		return SameValue(current.Get, desc.Get) && SameValue(current.Set, desc.Set)
	}
	if !current.Writable {
		return !desc.Writable && SameValue(current.Value, desc.Value)
	}
	return true
}
