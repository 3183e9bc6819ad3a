// Package mongodb implements remote.Documents on MongoDB.
//
// Expenses and bills are kept in two collections. A document's _id is the
// pair (owner, id) so ids only need to be unique per owner, and a secondary
// index on (owner, createdAt desc, seq desc) serves snapshot reads.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"billease/internal/core"
	"billease/internal/log"
	"billease/internal/store/remote"
)

const (
	ExpensesCollection = "expenses"
	BillsCollection    = "bills"

	defaultDatabase = "billease"
)

type Config struct {
	URI      string
	Database string
	// ConnectTimeout bounds server selection for the initial ping.
	ConnectTimeout time.Duration
}

type Client struct {
	client   *mongo.Client
	expenses *mongo.Collection
	bills    *mongo.Collection
	logger   *slog.Logger
	now      func() time.Time
}

// Ensure interface conformance
var _ remote.Documents = (*Client)(nil)

// Dialer adapts Connect to remote.DialFunc.
func Dialer(cfg Config, logger *slog.Logger) remote.DialFunc {
	return func(ctx context.Context) (remote.Documents, error) {
		return Connect(ctx, cfg, logger)
	}
}

// Connect opens the client, verifies the deployment answers a ping and
// makes sure the listing index exists.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("missing MongoDB URI")
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if logger == nil {
		logger = slog.Default()
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.URI).SetServerAPIOptions(serverAPI)
	if cfg.ConnectTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	c := &Client{
		client:   client,
		expenses: db.Collection(ExpensesCollection),
		bills:    db.Collection(BillsCollection),
		logger:   logger,
		now:      time.Now,
	}
	for _, coll := range []*mongo.Collection{c.expenses, c.bills} {
		if err := ensureIndex(ctx, coll); err != nil {
			logger.WarnContext(ctx, "Failed to create listing index",
				"collection", coll.Name(), log.FieldError, err)
		}
	}

	logger.InfoContext(ctx, "Connected to MongoDB", "database", cfg.Database)
	return c, nil
}

// newestFirst orders by creation time, then by insertion sequence for
// documents that share a timestamp.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "seq", Value: -1}}

func ensureIndex(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: append(bson.D{{Key: "owner", Value: 1}}, newestFirst...),
	})
	return err
}

func (c *Client) InsertExpense(ctx context.Context, owner string, e core.Expense) (string, error) {
	doc := newExpenseDoc(owner, e, c.now().UTC())
	if _, err := c.expenses.InsertOne(ctx, doc); err != nil {
		return "", mapError(err)
	}
	return e.ID, nil
}

func (c *Client) InsertBill(ctx context.Context, owner string, b core.Bill) (string, error) {
	doc := newBillDoc(owner, b, c.now().UTC())
	if _, err := c.bills.InsertOne(ctx, doc); err != nil {
		return "", mapError(err)
	}
	return b.ID, nil
}

func (c *Client) ListExpenses(ctx context.Context, owner string) ([]core.Expense, error) {
	var docs []expenseDoc
	if err := c.findByOwner(ctx, c.expenses, owner, &docs); err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.expense())
	}
	return out, nil
}

func (c *Client) ListBills(ctx context.Context, owner string) ([]core.Bill, error) {
	var docs []billDoc
	if err := c.findByOwner(ctx, c.bills, owner, &docs); err != nil {
		return nil, err
	}
	out := make([]core.Bill, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.bill())
	}
	return out, nil
}

func (c *Client) findByOwner(ctx context.Context, coll *mongo.Collection, owner string, results any) error {
	opts := options.Find().SetSort(newestFirst)
	cursor, err := coll.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return mapError(err)
	}
	if err := cursor.All(ctx, results); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) SetBillStatus(ctx context.Context, owner, id string, status core.BillStatus) error {
	res, err := c.bills.UpdateOne(ctx,
		bson.M{"_id": recordKey{Owner: owner, ID: id}},
		bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: bill %s", core.ErrRecordNotFound, id)
	}
	return nil
}

func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		c.logger.ErrorContext(ctx, "Failed to disconnect from MongoDB", log.FieldError, err)
		return err
	}
	c.logger.InfoContext(ctx, "Disconnected from MongoDB")
	return nil
}

func mapError(err error) error {
	switch {
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", core.ErrDuplicateID, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err),
		errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("mongodb: %w", err)
}
