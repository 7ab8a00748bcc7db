/*
Package weave is an execution engine for directed graphs of typed nodes.

A graph encodes a multi-step automation: triggers start it, condition nodes pick a
branch, loop nodes repeat their body once per array element, transform nodes rewrite
data and output nodes end a path. Graphs are assembled once with the dsl Builder and
executed many times against different payloads. Each execution produces an
independent ExecutionState with one result per reached node.

# Concept

The Engine owns a handler registry. Control flow (condition, loop, delay) is handled
by the executor itself; every other node type is dispatched to the handler registered
under its type, or under config.handlerType, falling back to passing its input through.
Persistence, history and distributed locking are optional ports (see pkg/ports) with
memory, file and Redis adapters.

# Usage

	package main

	import (
		"context"
		"fmt"

		"github.com/aretw0/weave"
		"github.com/aretw0/weave/pkg/domain"
		"github.com/aretw0/weave/pkg/dsl"
	)

	func main() {
		b := dsl.New("greeting")
		start := b.AddNode(domain.NodeTypeTrigger, "start")
		greet := b.AddNode(domain.NodeTypeTransform, "greet",
			dsl.WithConfig(map[string]any{"expression": "Hello {{name}}!"}))
		_, _ = b.Connect(start, 0, greet, 0)

		eng := weave.New()
		state := eng.Execute(context.Background(), b.Build(), map[string]any{"name": "World"})
		res, _ := state.Result(greet)
		fmt.Println(state.Status, res.Output["transformed"])
	}

# Semantics

  - Triggers run one after another, in the order they were added to the graph.
  - A node runs at most once per run; later arrivals reuse its first output.
  - Loop bodies are the exception: they are reset before each iteration.
  - The first handler failure stops the whole run with status failed.
  - A cancelled context or an exceeded WithRunTimeout ends the run as cancelled.
  - parallel and merge nodes are pass-throughs; siblings never run concurrently.
*/
package weave
