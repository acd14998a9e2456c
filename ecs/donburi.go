// Package ecs provides ECS adapters for linden.
package ecs

import (
	"github.com/phanxgames/linden"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// InteractionEventType is the Donburi event type for linden interaction
// events. Subscribe to it in ECS systems to receive pointer and drag events.
var InteractionEventType = events.NewEventType[linden.InteractionEvent]()

type donburiStore struct {
	world donburi.World
}

// NewDonburiStore creates an EntityStore backed by a Donburi world.
// Events are queued on InteractionEventType and delivered by ProcessEvents.
func NewDonburiStore(world donburi.World) linden.EntityStore {
	return &donburiStore{world: world}
}

func (s *donburiStore) EmitEvent(event linden.InteractionEvent) {
	InteractionEventType.Publish(s.world, event)
}

// SubscribeEntity subscribes fn to the events of one entity ID, as set on
// Node.EntityID.
func SubscribeEntity(world donburi.World, entityID uint32, fn func(donburi.World, linden.InteractionEvent)) {
	InteractionEventType.Subscribe(world, func(w donburi.World, e linden.InteractionEvent) {
		if e.EntityID == entityID {
			fn(w, e)
		}
	})
}
