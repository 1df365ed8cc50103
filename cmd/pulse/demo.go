package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pulse/pkg/keyed"
	"github.com/vango-dev/pulse/pkg/pulse"
	"github.com/vango-dev/pulse/pkg/render"
	"github.com/vango-dev/pulse/pkg/vdom"
)

func (c *cli) demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk through the reactive core",
		Long: `Run a scripted tour of signals, combinators, aggregators and keyed
lists, printing each notification as it happens.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.OutOrStdout(), pulse.LogReporter{Logger: c.logger})
		},
	}
}

func runDemo(w io.Writer, rep pulse.Reporter) error {
	section := func(name string) { fmt.Fprintf(w, "\n== %s\n", name) }

	section("signals")
	count := pulse.NewSignal(1, pulse.WithName("count"), pulse.WithReporter(rep))
	defer count.Dispose()
	doubled := pulse.Map(count, func(n int) int { return n * 2 }, pulse.WithName("doubled"))
	defer doubled.Dispose()
	doubled.Subscribe(func(n int) { fmt.Fprintf(w, "doubled = %d\n", n) })
	count.Set(2)
	count.Set(2)
	count.Set(5)

	section("combine")
	first := pulse.NewEmptySignal[string](pulse.WithName("first"))
	last := pulse.NewEmptySignal[string](pulse.WithName("last"))
	both := pulse.CombineLatest[string](first, last)
	defer both.Dispose()
	both.Subscribe(func(v []string) { fmt.Fprintf(w, "name = %s\n", strings.Join(v, " ")) })
	first.Set("Ada")
	last.Set("Lovelace")
	first.Set("Augusta")

	section("aggregator")
	services := pulse.NewEmitter[string]("services", pulse.WithReporter(rep))
	ready := pulse.NewAggregator("ready", pulse.WithReporter(rep))
	defer ready.Dispose()
	for _, ch := range []string{"db", "ws", "ui"} {
		pulse.Combine(ready, services, ch)
	}
	ready.On(pulse.ChannelAggregated, func(s pulse.Snapshot) {
		fmt.Fprintf(w, "ready: %s\n", formatSnapshot(ready.Keys(), s))
	})
	services.Emit("db", "connected")
	fmt.Fprintf(w, "after db: ready=%t\n", ready.Ready())
	services.Emit("ws", "listening")
	services.Emit("ui", "mounted")
	services.Emit("db", "reconnected")

	section("keyed list")
	container := vdom.NewContainer(vdom.Ul(vdom.ID("list")), pulse.WithReporter(rep))
	defer container.Dispose()
	list := keyed.New(container, func(s string) string { return s }, func(s string) (*vdom.VNode, error) {
		return vdom.Li(vdom.Text(s)), nil
	}, pulse.WithName("letters"), pulse.WithReporter(rep))
	defer list.Dispose()
	list.Subscribe(func(ch keyed.Change[string]) {
		fmt.Fprintf(w, "%s %s\n", ch.Op, ch.ID)
	})
	steps := []struct {
		desc string
		run  func() error
	}{
		{"append a", func() error { return list.Append("a") }},
		{"append b", func() error { return list.Append("b") }},
		{"insert c before b", func() error { return list.InsertBefore("c", "b") }},
		{"append a again", func() error { return list.Append("a") }},
		{"remove a", func() error { return list.RemoveChild("a") }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			fmt.Fprintf(w, "%s: %v\n", step.desc, err)
		}
	}
	html, err := render.HTML(container.Root())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "html = %s\n", html)
	return nil
}

func formatSnapshot(keys []string, s pulse.Snapshot) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, s[k]))
	}
	return strings.Join(parts, " ")
}
