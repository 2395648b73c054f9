package core

import "fmt"

// DeliveryPolicy selects the lane a unit's messages are dispatched on.
type DeliveryPolicy uint8

const (
	DeliverySystem DeliveryPolicy = iota
	DeliveryWork
	DeliveryBlocking
)

// String returns the lane name for the policy.
func (p DeliveryPolicy) String() string {
	switch p {
	case DeliverySystem:
		return "system"
	case DeliveryWork:
		return "work"
	case DeliveryBlocking:
		return "blocking"
	default:
		return "unknown"
	}
}

// ThreadingPolicy controls how submissions to a unit are guarded.
type ThreadingPolicy uint8

const (
	ThreadingNormal ThreadingPolicy = iota
	// ThreadingCritical serializes Send calls on a per-unit lock. The lock covers
	// the submission only; two accepted messages may still execute concurrently on
	// a lane with more than one worker.
	ThreadingCritical
)

// String returns the string representation of ThreadingPolicy.
func (p ThreadingPolicy) String() string {
	switch p {
	case ThreadingNormal:
		return "normal"
	case ThreadingCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Policy is the immutable delivery/threading pair of a unit.
type Policy struct {
	Delivery  DeliveryPolicy
	Threading ThreadingPolicy
}

// String returns e.g. "work/critical".
func (p Policy) String() string {
	return fmt.Sprintf("%s/%s", p.Delivery, p.Threading)
}

// Trait is a declarative marker a unit type carries.
type Trait uint8

const (
	// TraitWork routes messages to the work lane.
	TraitWork Trait = iota + 1
	// TraitBlocking routes messages to the blocking lane.
	TraitBlocking
	// TraitCriticalSection makes the unit ThreadingCritical.
	TraitCriticalSection
)

// PolicyFromTraits derives a Policy. Work is checked before blocking, so a unit
// declaring both is delivered on the work lane.
func PolicyFromTraits(traits ...Trait) Policy {
	var hasWork, hasBlocking, critical bool
	for _, t := range traits {
		switch t {
		case TraitWork:
			hasWork = true
		case TraitBlocking:
			hasBlocking = true
		case TraitCriticalSection:
			critical = true
		}
	}

	p := Policy{Delivery: DeliverySystem, Threading: ThreadingNormal}
	switch {
	case hasWork:
		p.Delivery = DeliveryWork
	case hasBlocking:
		p.Delivery = DeliveryBlocking
	}
	if critical {
		p.Threading = ThreadingCritical
	}
	return p
}

// PolicyProvider is implemented by handlers that declare their traits on the type.
type PolicyProvider interface {
	Traits() []Trait
}

// MarshalText encodes the policy by lane name.
func (p DeliveryPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// MarshalText encodes the policy by name.
func (p ThreadingPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
