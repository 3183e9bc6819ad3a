// Package firestore implements remote.Documents on the Firestore REST API.
//
// Records live under owners/{owner}/expenses/{id} and owners/{owner}/bills/{id}.
// The caller's record id becomes the document id, createdAt is stamped by the
// server (REQUEST_TIME transform) and snapshot reads list an owner's
// collection ordered by createdAt descending.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"

	gfs "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"billease/internal/core"
	"billease/internal/store/remote"
)

const (
	expensesCollection = "expenses"
	billsCollection    = "bills"
	ownersCollection   = "owners"

	defaultDatabase = "(default)"
	pageSize        = 300
)

// Config holds what is needed to reach a Firestore database.
type Config struct {
	ProjectID string
	Database  string
	APIKey    string
	// CredentialsFile is a service account JSON file; when set it is
	// preferred over the API key.
	CredentialsFile string
	// EmulatorHost (host:port) points the client at the Firestore emulator
	// without authentication.
	EmulatorHost string
	// Endpoint overrides the API base URL.
	Endpoint   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	docs     *gfs.ProjectsDatabasesDocumentsService
	database string
	root     string
}

// Ensure interface conformance
var _ remote.Documents = (*Client)(nil)

// Dialer adapts New to remote.DialFunc.
func Dialer(cfg Config) remote.DialFunc {
	return func(ctx context.Context) (remote.Documents, error) {
		return New(ctx, cfg)
	}
}

// New creates a Firestore client. It does not contact the server; bad
// credentials surface on the first request.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("missing Firestore project id")
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gfs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore service: %w", err)
	}

	database := fmt.Sprintf("projects/%s/databases/%s", cfg.ProjectID, cfg.Database)
	return &Client{
		docs:     svc.Projects.Databases.Documents,
		database: database,
		root:     database + "/documents",
	}, nil
}

func clientOptions(ctx context.Context, cfg Config) ([]goption.ClientOption, error) {
	var opts []goption.ClientOption
	if cfg.HTTPClient != nil {
		opts = append(opts, goption.WithHTTPClient(cfg.HTTPClient))
	}

	switch {
	case cfg.Endpoint != "":
		cfg.Logger.InfoContext(ctx, "Using custom Firestore endpoint", "endpoint", cfg.Endpoint)
		opts = append(opts, goption.WithEndpoint(withTrailingSlash(cfg.Endpoint)), goption.WithoutAuthentication())
	case cfg.EmulatorHost != "":
		cfg.Logger.InfoContext(ctx, "Using Firestore emulator", "host", cfg.EmulatorHost)
		opts = append(opts, goption.WithEndpoint("http://"+cfg.EmulatorHost+"/"), goption.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		cfg.Logger.InfoContext(ctx, "Using service account credentials", "credentials_size", len(credentialsJSON))
		opts = append(opts,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gfs.DatastoreScope))
	case cfg.APIKey != "":
		opts = append(opts, goption.WithAPIKey(cfg.APIKey))
	default:
		return nil, errors.New("missing Firestore credentials (set an API key or a service account file)")
	}
	return opts, nil
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func (c *Client) collection(owner, kind string) string {
	return c.root + "/" + ownersCollection + "/" + owner + "/" + kind
}

func (c *Client) InsertExpense(ctx context.Context, owner string, e core.Expense) (string, error) {
	if err := checkPathSegments(owner, e.ID); err != nil {
		return "", err
	}
	return c.create(ctx, c.collection(owner, expensesCollection)+"/"+e.ID, expenseFields(owner, e))
}

func (c *Client) InsertBill(ctx context.Context, owner string, b core.Bill) (string, error) {
	if err := checkPathSegments(owner, b.ID); err != nil {
		return "", err
	}
	return c.create(ctx, c.collection(owner, billsCollection)+"/"+b.ID, billFields(owner, b))
}

// create writes a new document and lets the server stamp createdAt. The
// exists=false precondition turns an id collision into core.ErrDuplicateID.
func (c *Client) create(ctx context.Context, name string, fields map[string]fieldValue) (string, error) {
	doc, err := toDocument(name, fields)
	if err != nil {
		return "", err
	}
	req := &gfs.CommitRequest{
		Writes: []*gfs.Write{{
			Update: doc,
			UpdateTransforms: []*gfs.FieldTransform{{
				FieldPath:        fieldCreatedAt,
				SetToServerValue: "REQUEST_TIME",
			}},
			CurrentDocument: &gfs.Precondition{
				Exists:          false,
				ForceSendFields: []string{"Exists"},
			},
		}},
	}
	if _, err := c.docs.Commit(c.database, req).Context(ctx).Do(); err != nil {
		return "", mapError(err)
	}
	return name[strings.LastIndex(name, "/")+1:], nil
}

func (c *Client) ListExpenses(ctx context.Context, owner string) ([]core.Expense, error) {
	if err := checkPathSegments(owner); err != nil {
		return nil, err
	}
	out := []core.Expense{}
	err := c.list(ctx, owner, expensesCollection, func(doc *gfs.Document) error {
		e, err := decodeExpense(doc)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

func (c *Client) ListBills(ctx context.Context, owner string) ([]core.Bill, error) {
	if err := checkPathSegments(owner); err != nil {
		return nil, err
	}
	out := []core.Bill{}
	err := c.list(ctx, owner, billsCollection, func(doc *gfs.Document) error {
		b, err := decodeBill(doc)
		if err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})
	return out, err
}

func (c *Client) list(ctx context.Context, owner, kind string, each func(*gfs.Document) error) error {
	parent := c.root + "/" + ownersCollection + "/" + owner
	call := c.docs.List(parent, kind).
		OrderBy(fieldCreatedAt + " desc").
		PageSize(pageSize)
	err := call.Pages(ctx, func(resp *gfs.ListDocumentsResponse) error {
		for _, doc := range resp.Documents {
			if err := each(doc); err != nil {
				return fmt.Errorf("decode %s: %w", doc.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

// SetBillStatus patches only the status field of an existing document.
func (c *Client) SetBillStatus(ctx context.Context, owner, id string, status core.BillStatus) error {
	if err := checkPathSegments(owner, id); err != nil {
		return err
	}
	name := c.collection(owner, billsCollection) + "/" + id
	doc, err := toDocument("", map[string]fieldValue{fieldStatus: stringValue(string(status))})
	if err != nil {
		return err
	}
	_, err = c.docs.Patch(name, doc).
		UpdateMaskFieldPaths(fieldStatus).
		CurrentDocumentExists(true).
		Context(ctx).
		Do()
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Close is a no-op; the REST client holds no long-lived connection.
func (c *Client) Close(context.Context) error {
	return nil
}

func checkPathSegments(segments ...string) error {
	for _, s := range segments {
		if s == "" || strings.Contains(s, "/") {
			return fmt.Errorf("%w: %q is not a valid document path segment", core.ErrInvalidInput, s)
		}
	}
	return nil
}

func mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", core.ErrRecordNotFound, gerr.Message)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", core.ErrDuplicateID, gerr.Message)
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %s", core.ErrBackendUnavailable, gerr.Message)
		case http.StatusBadRequest:
			if isCredentialRejection(gerr) {
				return fmt.Errorf("%w: %s", core.ErrBackendUnavailable, gerr.Message)
			}
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("firestore: %w", err)
}

// credentialReasons are the error reasons Google APIs send with a 400 when
// the API key itself is rejected.
var credentialReasons = map[string]bool{
	"API_KEY_INVALID":               true,
	"API_KEY_SERVICE_BLOCKED":       true,
	"API_KEY_HTTP_REFERRER_BLOCKED": true,
	"API_KEY_IP_ADDRESS_BLOCKED":    true,
	"keyInvalid":                    true,
}

func isCredentialRejection(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		if credentialReasons[item.Reason] {
			return true
		}
	}
	for _, detail := range gerr.Details {
		if m, ok := detail.(map[string]any); ok {
			if reason, _ := m["reason"].(string); credentialReasons[reason] {
				return true
			}
		}
	}
	return false
}
