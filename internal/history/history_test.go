package history

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ppiankov/orderprint/internal/order"
)

type call struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []call
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(db.calls) != 1 || !strings.Contains(db.calls[0].sql, "CREATE TABLE IF NOT EXISTS printed_orders") {
		t.Errorf("calls = %+v", db.calls)
	}
}

func TestRecord(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}
	queued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	o := order.Default(order.GrubHubDelivery)
	o.Customer = "Ada Lovelace"
	o.TotalItems = "2"
	o.Items = []order.LineItem{{Label: "2x Glazed Donut", Modifiers: []string{"Extra Glaze"}}}

	p := order.Printed{
		Token:     "tok-1",
		Source:    "grubhub",
		MessageID: "18c2f",
		Extractor: "grubhub-markup",
		Order:     o,
		Data:      []byte{0x1B, 0x40},
		QueuedAt:  queued,
	}
	if err := s.Record(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	if len(db.calls) != 1 {
		t.Fatalf("calls = %d", len(db.calls))
	}
	c := db.calls[0]
	if !strings.Contains(c.sql, "ON CONFLICT (token) DO NOTHING") {
		t.Errorf("sql = %q", c.sql)
	}
	if len(c.args) != 14 {
		t.Fatalf("args = %d", len(c.args))
	}
	if c.args[0] != "tok-1" || c.args[4] != "Ada Lovelace" || c.args[5] != order.GrubHubDelivery {
		t.Errorf("args = %v", c.args)
	}

	var items []order.LineItem
	if err := json.Unmarshal(c.args[10].([]byte), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Modifiers[0] != "Extra Glaze" {
		t.Errorf("items = %+v", items)
	}
	if c.args[11] != false {
		t.Errorf("degraded = %v", c.args[11])
	}
	if c.args[12] != 2 {
		t.Errorf("job bytes = %v", c.args[12])
	}
	if c.args[13] != queued {
		t.Errorf("queued_at = %v", c.args[13])
	}
}

func TestRecordDegradedAndDefaultTime(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}
	if err := s.Record(context.Background(), order.Printed{Token: "t", Order: order.Default(order.SquarePickup)}); err != nil {
		t.Fatal(err)
	}
	args := db.calls[0].args
	if args[11] != true {
		t.Errorf("degraded = %v", args[11])
	}
	if ts, ok := args[13].(time.Time); !ok || ts.IsZero() {
		t.Errorf("queued_at = %v", args[13])
	}
}

func TestRecordWrapsError(t *testing.T) {
	s := &Store{db: &fakeDB{err: errors.New("connection refused")}}
	err := s.Record(context.Background(), order.Printed{Token: "tok-9", Order: order.Default(order.SquarePickup)})
	if err == nil || !strings.Contains(err.Error(), "history: insert tok-9") {
		t.Errorf("err = %v", err)
	}
}

func TestNewPoolRejectsBadDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), "postgres://%zz"); err == nil {
		t.Error("expected error for malformed dsn")
	}
}
