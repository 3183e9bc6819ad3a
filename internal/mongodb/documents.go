package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"billease/internal/core"
)

type recordKey struct {
	Owner string `bson:"owner"`
	ID    string `bson:"id"`
}

// seq breaks ties between documents written in the same millisecond:
// ObjectIDs from one process increase monotonically.
type expenseDoc struct {
	Key         recordKey     `bson:"_id"`
	Owner       string        `bson:"owner"`
	AmountCents int64         `bson:"amountCents"`
	Category    string        `bson:"category"`
	Description string        `bson:"description"`
	Date        string        `bson:"date"`
	CreatedAt   time.Time     `bson:"createdAt"`
	Seq         bson.ObjectID `bson:"seq"`
}

type billDoc struct {
	Key         recordKey     `bson:"_id"`
	Owner       string        `bson:"owner"`
	Name        string        `bson:"name"`
	AmountCents int64         `bson:"amountCents"`
	DueDate     string        `bson:"dueDate"`
	Recurring   string        `bson:"recurring"`
	Status      string        `bson:"status"`
	CreatedAt   time.Time     `bson:"createdAt"`
	Seq         bson.ObjectID `bson:"seq"`
}

func newExpenseDoc(owner string, e core.Expense, createdAt time.Time) expenseDoc {
	return expenseDoc{
		Key:         recordKey{Owner: owner, ID: e.ID},
		Owner:       owner,
		AmountCents: e.Amount.Cents,
		Category:    string(e.Category),
		Description: e.Description,
		Date:        e.Date.String(),
		CreatedAt:   createdAt,
		Seq:         bson.NewObjectID(),
	}
}

// expense drops a date that no longer parses rather than failing the whole
// listing; the record still shows up with a zero date.
func (d expenseDoc) expense() core.Expense {
	date, _ := core.ParseDate(d.Date)
	return core.Expense{
		ID:          d.Key.ID,
		Amount:      core.Money{Cents: d.AmountCents},
		Category:    core.Category(d.Category),
		Description: d.Description,
		Date:        date,
		Owner:       d.Owner,
		CreatedAt:   d.CreatedAt,
	}
}

func newBillDoc(owner string, b core.Bill, createdAt time.Time) billDoc {
	return billDoc{
		Key:         recordKey{Owner: owner, ID: b.ID},
		Owner:       owner,
		Name:        b.Name,
		AmountCents: b.Amount.Cents,
		DueDate:     b.DueDate.String(),
		Recurring:   string(b.Recurrence),
		Status:      string(b.Status),
		CreatedAt:   createdAt,
		Seq:         bson.NewObjectID(),
	}
}

func (d billDoc) bill() core.Bill {
	due, _ := core.ParseDate(d.DueDate)
	return core.Bill{
		ID:         d.Key.ID,
		Name:       d.Name,
		Amount:     core.Money{Cents: d.AmountCents},
		DueDate:    due,
		Recurrence: core.Recurrence(d.Recurring),
		Status:     core.BillStatus(d.Status),
		Owner:      d.Owner,
		CreatedAt:  d.CreatedAt,
	}.WithDefaults()
}
