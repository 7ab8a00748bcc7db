/*
Package ports defines the driven ports (interfaces) around the weave executor.

The executor itself only needs a graph and a handler registry. Everything a host
adds around it, such as persistence, run history and cross-replica coordination,
is expressed here so adapters can be swapped without touching the core.

# Key Interfaces

  - GraphStore: persists graphs and a bounded run history per graph.
  - DistributedLocker: serializes runs of the same graph across replicas.
  - GraphRunner: runs a stored graph by ID (implemented by weave.Engine).

RunGraphStoreContract is a reusable suite every GraphStore adapter must pass.
*/
package ports
