package core

import (
	"fmt"
	"reflect"
)

// AttributeDescriptor identifies one queryable piece of unit state.
type AttributeDescriptor struct {
	Name string
	Type reflect.Type
}

// Attribute returns the descriptor for an attribute of type T.
func Attribute[T any](name string) AttributeDescriptor {
	return AttributeDescriptor{Name: name, Type: reflect.TypeOf((*T)(nil)).Elem()}
}

// String returns "name:type".
func (d AttributeDescriptor) String() string {
	if d.Type == nil {
		return d.Name
	}
	return fmt.Sprintf("%s:%s", d.Name, d.Type)
}

// Accepts reports whether v is a valid value for the descriptor.
func (d AttributeDescriptor) Accepts(v any) bool {
	if v == nil || d.Type == nil {
		return false
	}
	return reflect.TypeOf(v).AssignableTo(d.Type)
}
