/*
Package dsl provides an imperative builder for constructing well-formed Weave graphs.

It enforces structural validity at construction time: edges can only be created
between existing nodes and existing ports, and every referenced port is marked
as connected. This is particularly useful for dynamic graph generation, unit
testing, and leveraging IDE autocompletion/type-checking.

Example usage:

	b := dsl.New("greeter")

	start := b.AddNode(domain.NodeTypeTrigger, "Start")
	greet := b.AddNode(domain.NodeTypeTransform, "Greet",
		dsl.WithConfig(map[string]any{"expression": "Hello {{name}}!"}))
	done := b.AddNode(domain.NodeTypeOutput, "Done")

	if _, err := b.Connect(start, 0, greet, 0); err != nil {
		log.Fatal(err)
	}
	if _, err := b.Connect(greet, 0, done, 0); err != nil {
		log.Fatal(err)
	}

	graph := b.Build()
*/
package dsl
