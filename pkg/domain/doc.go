/*
Package domain contains the core data model of the Weave engine.

It defines the entities of an automation graph and the records produced when a
graph is executed. This package is kept pure and free of I/O, following
Hexagonal Architecture principles: builders, executors and stores all depend on
it, never the other way around.

# Key Entities

  - Node: a typed unit of work with input and output ports and a config map.
  - Port: a named, typed connection point owned by exactly one node.
  - Edge: a directed connection from an output port to an input port.
  - Graph: the node collection (insertion ordered), edges and shared variables.
  - ExecutionState: the snapshot of one run, including per-node results.
*/
package domain
