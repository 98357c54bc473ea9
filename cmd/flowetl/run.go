package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fab2s/yaetl"
	"github.com/fab2s/yaetl/extract"
	"github.com/fab2s/yaetl/load"
	"github.com/fab2s/yaetl/qualify"
	"github.com/fab2s/yaetl/transform"
)

type demo struct {
	name        string
	description string
	build       func() *yaetl.Flow
}

var demos = []demo{
	{"identity", "single extractor, one transform, one loader", buildIdentityFlow},
	{"join", "inner join against a subordinate extractor", buildJoinFlow},
	{"left-join", "left join with a default record on miss", buildLeftJoinFlow},
	{"branch", "qualifier-gated branch with forced flush", buildBranchFlow},
}

var runCmd = &cobra.Command{
	Use:   "run [demo]",
	Short: "Run a demo flow and print its stats",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		for _, d := range demos {
			if d.name != args[0] {
				continue
			}
			f := d.build()
			defer f.Close() //nolint:errcheck

			_, status, err := f.Exec(context.Background(), nil)
			fmt.Println(f.Stats().Report)
			fmt.Printf("status: %s\n", status)
			if err != nil {
				return err
			}
			return nil
		}
		return fmt.Errorf("no such demo: %s (see 'flowetl list')", args[0])
	},
}

func sampleOrders() []yaetl.Record {
	return []yaetl.Record{
		{"order_id": 1, "customer_id": 10, "total": 42.0},
		{"order_id": 2, "customer_id": 20, "total": 17.5},
		{"order_id": 3, "customer_id": 99, "total": 5.0},
	}
}

func sampleCustomers() []yaetl.Record {
	return []yaetl.Record{
		{"customer_id": 10, "name": "Ada"},
		{"customer_id": 20, "name": "Grace"},
	}
}

func buildIdentityFlow() *yaetl.Flow {
	f := yaetl.NewFlow("identity")
	sink := load.NewSlice("sink")
	f.From(extract.NewSlice("orders", sampleOrders(), 2)).
		Transform(transform.NewDefault("defaults", yaetl.Record{"currency": "USD"})).
		To(sink)
	return f
}

func buildJoinFlow() *yaetl.Flow {
	f := yaetl.NewFlow("join")
	orders := extract.NewSlice("orders", sampleOrders(), 10)
	customers := extract.NewJoinableSlice("customers", sampleCustomers(), 10, func(r yaetl.Record) any {
		return r["customer_id"]
	})
	sink := load.NewSlice("sink")
	f.From(orders).
		Join(customers, orders, yaetl.OnClose{FromKey: "customer_id", JoinKey: "customer_id"}).
		To(sink)
	return f
}

func buildLeftJoinFlow() *yaetl.Flow {
	f := yaetl.NewFlow("left-join")
	orders := extract.NewSlice("orders", sampleOrders(), 10)
	customers := extract.NewJoinableSlice("customers", sampleCustomers(), 10, func(r yaetl.Record) any {
		return r["customer_id"]
	})
	sink := load.NewSlice("sink")
	f.From(orders).
		Join(customers, orders, yaetl.OnClose{
			FromKey: "customer_id",
			JoinKey: "customer_id",
			Default: yaetl.Record{"name": "unknown"},
		}).
		To(sink)
	return f
}

func buildBranchFlow() *yaetl.Flow {
	f := yaetl.NewFlow("branch-parent")
	audit := yaetl.NewFlow("audit")
	auditSink := load.NewSlice("audit-sink")
	audit.To(auditSink)

	highValue := qualify.NewPredicate("high-value", func(r yaetl.Record) bool {
		total, _ := r["total"].(float64)
		return total > 10
	})

	sink := load.NewSlice("sink")
	f.From(extract.NewSlice("orders", sampleOrders(), 10)).
		Qualify(highValue).
		Branch(audit, true).
		To(sink)
	return f
}
