package units

import (
	"fmt"

	"github.com/najoast/unitrt/core"
)

// Unit kinds understood by New.
const (
	KindStringProducer = "string-producer"
	KindStringConsumer = "string-consumer"
)

// Factory builds an uninitialized unit.
type Factory func(id string, dir Directory) (*core.Unit, error)

// Factories returns the built-in unit kinds.
func Factories() map[string]Factory {
	return map[string]Factory{
		KindStringProducer: func(id string, dir Directory) (*core.Unit, error) {
			return core.NewUnit[string](id, NewStringProducer(dir)), nil
		},
		KindStringConsumer: func(id string, dir Directory) (*core.Unit, error) {
			return core.NewUnit[string](id, NewStringConsumer()), nil
		},
	}
}

// New builds a unit of a built-in kind.
func New(kind, id string, dir Directory) (*core.Unit, error) {
	f, ok := Factories()[kind]
	if !ok {
		return nil, fmt.Errorf("unknown unit kind %q", kind)
	}
	return f(id, dir)
}
