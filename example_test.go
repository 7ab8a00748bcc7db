package weave_test

import (
	"context"
	"fmt"

	"github.com/aretw0/weave"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/dsl"
)

func ExampleEngine_Execute() {
	b := dsl.New("greeting")
	start := b.AddNode(domain.NodeTypeTrigger, "start")
	greet := b.AddNode(domain.NodeTypeTransform, "greet",
		dsl.WithConfig(map[string]any{"expression": "Hello {{name}}!"}))
	_, _ = b.Connect(start, 0, greet, 0)

	eng := weave.New()
	state := eng.Execute(context.Background(), b.Build(), map[string]any{"name": "World"})
	res, _ := state.Result(greet)
	fmt.Println(state.Status, res.Output["transformed"])
	// Output: completed Hello World!
}

func ExampleEngine_Execute_condition() {
	b := dsl.New("router")
	start := b.AddNode(domain.NodeTypeTrigger, "start")
	check := b.AddNode(domain.NodeTypeCondition, "is active",
		dsl.WithConfig(map[string]any{"field": "status", "operator": "equals", "value": "active"}),
		dsl.WithBranches())
	yes := b.AddNode(domain.NodeTypeOutput, "welcome")
	no := b.AddNode(domain.NodeTypeOutput, "reject")
	_, _ = b.Connect(start, 0, check, 0)
	_, _ = b.Connect(check, 0, yes, 0)
	_, _ = b.Connect(check, 1, no, 0)

	state := weave.New().Execute(context.Background(), b.Build(), map[string]any{"status": "active"})
	_, reachedYes := state.Result(yes)
	_, reachedNo := state.Result(no)
	fmt.Println(reachedYes, reachedNo)
	// Output: true false
}
