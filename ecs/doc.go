// Package ecs bridges linden interaction events into a [Donburi] world.
//
// Nodes with a non-zero EntityID forward their pointer, click and drag
// events to the scene's EntityStore. [NewDonburiStore] publishes them as
// typed events on [InteractionEventType]:
//
//	store := ecs.NewDonburiStore(world)
//	scene.SetEntityStore(store)
//	ecs.SubscribeEntity(world, 7, func(w donburi.World, e linden.InteractionEvent) { ... })
//	// once per tick
//	ecs.InteractionEventType.ProcessEvents(world)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
