// Package core implements the unitrt runtime: a Context hosting independently
// addressable units, each with a typed mailbox, and delivering messages to them
// asynchronously across three lanes.
//
// Units are created with NewUnit and registered before the Context leaves the
// UNINITIALIZED state. From then on they are reached only through a Reference:
//
//	rt := core.NewContext(core.DefaultOptions())
//	_ = rt.AddUnits(core.NewUnit[string]("consumer", consumer, core.WithTraits(core.TraitWork)))
//	_ = rt.Start(ctx)
//	ref, _ := rt.Reference("consumer")
//	ref.Send("ping")
//
// Lanes:
//   - system: lightweight work, attribute queries, shutdown fan-out.
//   - work: CPU-bound deliveries.
//   - blocking: I/O-bound deliveries.
//
// Delivery is best effort. There is no ordering across lanes, no retry and no
// supervision; a failing delivery is logged and dropped.
package core
