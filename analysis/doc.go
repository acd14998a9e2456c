// Package analysis computes draw and interaction orders for a scene tree.
//
// A tree is exposed through NodeView. For every change of the tree the
// Analysor dispatches background jobs that choose an order in which to visit
// the marked nodes: nodes that draw for the render variant, nodes that
// handle input for the interaction variant. Orders are priced by the
// transform pushes and pops and render state switches needed to walk from
// one node to the next, and by back-to-front z ordering for render.
//
// The result is a Linearization: a chain of Paths starting at the root.
// Replay walks it with a Visitor that keeps a transform stack in sync.
//
// Nodes that share a cluster tag are scheduled as one unit and expanded
// before a result is published, so consumers only ever see atomic nodes.
package analysis
