package mongodb

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"billease/internal/core"
)

func TestExpenseDocumentRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	e := core.Expense{
		ID:          "e1",
		Amount:      core.Money{Cents: 1250},
		Category:    core.Food,
		Description: "Lunch",
		Date:        core.NewDate(2025, 3, 4),
	}

	raw, err := bson.Marshal(newExpenseDoc("alice", e, created))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := bson.Raw(raw).Lookup("_id", "owner").StringValue(); got != "alice" {
		t.Errorf("_id.owner = %q", got)
	}
	if got := bson.Raw(raw).Lookup("_id", "id").StringValue(); got != "e1" {
		t.Errorf("_id.id = %q", got)
	}
	if got := bson.Raw(raw).Lookup("amountCents").Int64(); got != 1250 {
		t.Errorf("amountCents = %d", got)
	}

	var doc expenseDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := doc.expense()
	if got.ID != "e1" || got.Owner != "alice" || got.Amount.Cents != 1250 || got.Category != core.Food {
		t.Fatalf("unexpected expense: %+v", got)
	}
	if got.Date.String() != "2025-03-04" || !got.CreatedAt.Equal(created) {
		t.Fatalf("dates not preserved: %+v", got)
	}
}

func TestBillDocumentDefaults(t *testing.T) {
	doc := billDoc{
		Key:         recordKey{Owner: "bob", ID: "b1"},
		Owner:       "bob",
		Name:        "Internet",
		AmountCents: 3999,
		DueDate:     "2025-05-31",
	}
	b := doc.bill()
	if b.Status != core.StatusUpcoming || b.Recurrence != core.NoRecurrence {
		t.Fatalf("expected creation defaults, got status=%q recurrence=%q", b.Status, b.Recurrence)
	}
	if b.DueDate.Day() != 31 {
		t.Fatalf("due date not parsed: %v", b.DueDate)
	}
}

func TestSameInstantDocumentsKeepInsertionOrder(t *testing.T) {
	created := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	first := newExpenseDoc("alice", core.Expense{ID: "a", Date: core.NewDate(2025, 3, 4)}, created)
	second := newExpenseDoc("alice", core.Expense{ID: "b", Date: core.NewDate(2025, 3, 4)}, created)
	if bytes.Compare(second.Seq[:], first.Seq[:]) <= 0 {
		t.Fatalf("seq not increasing: %s then %s", first.Seq.Hex(), second.Seq.Hex())
	}
	bill := newBillDoc("alice", core.Bill{ID: "rent"}, created)
	if bill.Seq.IsZero() {
		t.Fatal("bill document has no seq")
	}

	raw, err := bson.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := bson.Raw(raw).Lookup("seq").ObjectID(); got != second.Seq {
		t.Fatalf("seq = %s, want %s", got.Hex(), second.Seq.Hex())
	}

	var keys []string
	for _, e := range newestFirst {
		keys = append(keys, e.Key)
	}
	if len(keys) != 2 || keys[0] != "createdAt" || keys[1] != "seq" {
		t.Fatalf("sort keys = %v", keys)
	}
}

func TestConnectRequiresURI(t *testing.T) {
	if _, err := Connect(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error without URI")
	}
}

// TestLiveDeployment runs against a real server when MONGODB_TEST_URI is set.
func TestLiveDeployment(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx := context.Background()
	db := "billease_test_" + time.Now().Format("20060102150405")

	c, err := Connect(ctx, Config{URI: uri, Database: db, ConnectTimeout: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		_ = c.client.Database(db).Drop(ctx)
		_ = c.Close(ctx)
	})

	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	b := core.Bill{ID: "rent", Name: "Rent", Amount: core.Money{Cents: 100000}, DueDate: core.NewDate(2025, 2, 1), Recurrence: core.Monthly, Status: core.StatusUpcoming}
	if _, err := c.InsertBill(ctx, "alice", b); err != nil {
		t.Fatalf("InsertBill: %v", err)
	}
	if _, err := c.InsertBill(ctx, "alice", b); !errors.Is(err, core.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if _, err := c.InsertBill(ctx, "bob", b); err != nil {
		t.Fatalf("same id for another owner should be accepted: %v", err)
	}
	if err := c.SetBillStatus(ctx, "alice", "rent", core.StatusPaid); err != nil {
		t.Fatalf("SetBillStatus: %v", err)
	}
	if err := c.SetBillStatus(ctx, "alice", "missing", core.StatusPaid); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	c.now = func() time.Time { return tick }
	for _, id := range []string{"e1", "e2"} {
		e := core.Expense{ID: id, Amount: core.Money{Cents: 100}, Category: core.Shopping, Description: id, Date: core.NewDate(2025, 1, 2)}
		if _, err := c.InsertExpense(ctx, "alice", e); err != nil {
			t.Fatalf("InsertExpense: %v", err)
		}
	}
	expenses, err := c.ListExpenses(ctx, "alice")
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(expenses) != 2 || expenses[0].ID != "e2" {
		t.Fatalf("expected newest first, got %+v", expenses)
	}
	bills, err := c.ListBills(ctx, "alice")
	if err != nil {
		t.Fatalf("ListBills: %v", err)
	}
	if len(bills) != 1 || bills[0].Status != core.StatusPaid {
		t.Fatalf("unexpected bills: %+v", bills)
	}
}
