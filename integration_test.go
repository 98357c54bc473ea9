package yaetl_test

import (
	"context"
	"testing"

	"github.com/fab2s/yaetl"
	"github.com/fab2s/yaetl/extract"
	"github.com/fab2s/yaetl/load"
	"github.com/fab2s/yaetl/qualify"
	"github.com/fab2s/yaetl/transform"
)

func orders() []yaetl.Record {
	return []yaetl.Record{
		{"order_id": 1, "customer_id": 10, "total": 42.0},
		{"order_id": 2, "customer_id": 20, "total": 17.5},
		{"order_id": 3, "customer_id": 99, "total": 5.0},
	}
}

func customers() []yaetl.Record {
	return []yaetl.Record{
		{"customer_id": 10, "name": "Ada"},
		{"customer_id": 20, "name": "Grace"},
	}
}

func TestIntegration_IdentityFlowAppliesDefaults(t *testing.T) {
	sink := load.NewSlice("sink")
	f := yaetl.NewFlow("identity")
	f.From(extract.NewSlice("orders", orders(), 2)).
		Transform(transform.NewDefault("defaults", yaetl.Record{"currency": "USD"})).
		To(sink)

	_, status, err := f.Exec(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != yaetl.StatusClean {
		t.Fatalf("expected clean, got %s", status)
	}
	got := sink.Records()
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for _, r := range got {
		if r["currency"] != "USD" {
			t.Fatalf("expected default currency to be applied, got %v", r)
		}
	}
}

func TestIntegration_InnerJoinAgainstSubordinateExtractor(t *testing.T) {
	sink := load.NewSlice("sink")
	ordersEx := extract.NewSlice("orders", orders(), 10)
	customersEx := extract.NewJoinableSlice("customers", customers(), 10, func(r yaetl.Record) any {
		return r["customer_id"]
	})

	f := yaetl.NewFlow("join")
	f.From(ordersEx).
		Join(customersEx, ordersEx, yaetl.OnClose{FromKey: "customer_id", JoinKey: "customer_id"}).
		To(sink)

	_, status, err := f.Exec(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != yaetl.StatusClean {
		t.Fatalf("expected clean, got %s", status)
	}
	got := sink.Records()
	if len(got) != 2 {
		t.Fatalf("expected only the two orders with a matching customer, got %d", len(got))
	}
}

func TestIntegration_LeftJoinKeepsUnmatchedRecordsWithDefault(t *testing.T) {
	sink := load.NewSlice("sink")
	ordersEx := extract.NewSlice("orders", orders(), 10)
	customersEx := extract.NewJoinableSlice("customers", customers(), 10, func(r yaetl.Record) any {
		return r["customer_id"]
	})

	f := yaetl.NewFlow("left-join")
	f.From(ordersEx).
		Join(customersEx, ordersEx, yaetl.OnClose{
			FromKey: "customer_id",
			JoinKey: "customer_id",
			Default: yaetl.Record{"name": "unknown"},
		}).
		To(sink)

	_, status, err := f.Exec(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != yaetl.StatusClean {
		t.Fatalf("expected clean, got %s", status)
	}
	got := sink.Records()
	if len(got) != 3 {
		t.Fatalf("expected all 3 orders to survive the left join, got %d", len(got))
	}
}

func TestIntegration_QualifierGatedBranchWithForcedFlush(t *testing.T) {
	audit := yaetl.NewFlow("audit")
	auditSink := load.NewSlice("audit-sink")
	audit.To(auditSink)

	highValue := qualify.NewPredicate("high-value", func(r yaetl.Record) bool {
		total, _ := r["total"].(float64)
		return total > 10
	})

	sink := load.NewSlice("sink")
	f := yaetl.NewFlow("branch-parent")
	f.From(extract.NewSlice("orders", orders(), 10)).
		Qualify(highValue).
		Branch(audit, true).
		To(sink)

	_, status, err := f.Exec(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != yaetl.StatusClean {
		t.Fatalf("expected clean, got %s", status)
	}
	if got := len(sink.Records()); got != 2 {
		t.Fatalf("expected the 2 high-value orders to reach the sink, got %d", got)
	}
	if got := len(auditSink.Records()); got != 2 {
		t.Fatalf("expected the branch to audit the same 2 high-value orders, got %d", got)
	}
}

func TestIntegration_ValidateQualifierDropsInvalidRecordsNonStrict(t *testing.T) {
	type orderShape struct {
		CustomerID int `validate:"required"`
	}

	sink := load.NewSlice("sink")
	validator := qualify.NewValidate("validate", func(r yaetl.Record) (any, error) {
		id, _ := r["customer_id"].(int)
		return orderShape{CustomerID: id}, nil
	}, false)

	f := yaetl.NewFlow("validated")
	f.From(extract.NewSlice("orders", []yaetl.Record{
		{"order_id": 1, "customer_id": 10},
		{"order_id": 2, "customer_id": 0},
	}, 10)).
		Qualify(validator).
		To(sink)

	_, status, err := f.Exec(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != yaetl.StatusClean {
		t.Fatalf("expected clean, got %s", status)
	}
	if got := len(sink.Records()); got != 1 {
		t.Fatalf("expected only the record with a non-zero customer_id to pass validation, got %d", got)
	}
}

func TestIntegration_ValidateQualifierRaisesErrorStrict(t *testing.T) {
	type orderShape struct {
		CustomerID int `validate:"required"`
	}

	sink := load.NewSlice("sink")
	validator := qualify.NewValidate("validate", func(r yaetl.Record) (any, error) {
		id, _ := r["customer_id"].(int)
		return orderShape{CustomerID: id}, nil
	}, true)

	f := yaetl.NewFlow("validated-strict")
	f.From(extract.NewSlice("orders", []yaetl.Record{
		{"order_id": 2, "customer_id": 0},
	}, 10)).
		Qualify(validator).
		To(sink)

	_, status, err := f.Exec(context.Background(), nil)
	if err == nil {
		t.Fatal("expected strict validation failure to raise an error")
	}
	if status != yaetl.StatusException {
		t.Fatalf("expected exception, got %s", status)
	}
}
