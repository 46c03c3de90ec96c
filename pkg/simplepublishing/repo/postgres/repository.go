package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-publishing/pkg/simplepublishing"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplepublishing.Repository using PostgreSQL
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository over an existing connection or transaction
func New(db DBTX) simplepublishing.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) simplepublishing.Repository {
	return &Repository{db: pool, pool: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			// Concurrent writers collided on a versioned row; surfacing a
			// conflict lets the caller re-fetch and retry.
			return &simplepublishing.ConflictError{Resource: "content_item"}
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// InTx runs fn inside a database transaction. When the repository itself is
// already transaction-scoped, fn joins the enclosing transaction.
func (r *Repository) InTx(ctx context.Context, fn func(tx simplepublishing.Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Content item operations

const contentItemColumns = `
	id, content_id, locale, base_path, schema_name, document_type,
	title, description, details, routes, redirects, state, update_type,
	publishing_app, rendering_app, access_limited, public_updated_at,
	user_facing_version, lock_version, created_at, updated_at`

func (r *Repository) CreateContentItem(ctx context.Context, item *simplepublishing.ContentItem) error {
	details, routes, redirects, accessLimited, err := marshalJSONColumns(item)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO content_items (
			id, content_id, locale, base_path, schema_name, document_type,
			title, description, details, routes, redirects, state, update_type,
			publishing_app, rendering_app, access_limited, public_updated_at,
			user_facing_version, lock_version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21)`

	_, err = r.db.Exec(ctx, query,
		item.ID, item.ContentID, item.Locale, item.BasePath, item.SchemaName,
		item.DocumentType, item.Title, item.Description, details, routes, redirects,
		item.State, item.UpdateType, item.PublishingApp, item.RenderingApp,
		accessLimited, item.PublicUpdatedAt, item.UserFacingVersion,
		item.LockVersion, item.CreatedAt, item.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create content item", err)
	}

	return nil
}

func (r *Repository) GetContentItem(ctx context.Context, id uuid.UUID) (*simplepublishing.ContentItem, error) {
	query := `SELECT` + contentItemColumns + ` FROM content_items WHERE id = $1`
	item, err := scanContentItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplepublishing.ErrContentItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *Repository) GetLatestContentItem(ctx context.Context, contentID uuid.UUID, locale string) (*simplepublishing.ContentItem, error) {
	query := `SELECT` + contentItemColumns + `
		FROM content_items
		WHERE content_id = $1 AND locale = $2
		ORDER BY user_facing_version DESC
		LIMIT 1`
	item, err := scanContentItem(r.db.QueryRow(ctx, query, contentID, locale))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplepublishing.ErrContentItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *Repository) GetLatestContentItems(ctx context.Context, contentIDs []uuid.UUID, locale string, states []simplepublishing.State) ([]*simplepublishing.ContentItem, error) {
	stateNames := make([]string, len(states))
	for i, s := range states {
		stateNames[i] = string(s)
	}

	query := `SELECT DISTINCT ON (content_id)` + contentItemColumns + `
		FROM content_items
		WHERE content_id = ANY($1) AND locale = $2 AND state = ANY($3)
		ORDER BY content_id, user_facing_version DESC`

	rows, err := r.db.Query(ctx, query, contentIDs, locale, stateNames)
	if err != nil {
		return nil, r.handlePostgresError("get latest content items", err)
	}
	defer rows.Close()

	return collectContentItems(rows)
}

func (r *Repository) ContentItemsForContentID(ctx context.Context, contentID uuid.UUID) ([]*simplepublishing.ContentItem, error) {
	query := `SELECT` + contentItemColumns + `
		FROM content_items
		WHERE content_id = $1
		ORDER BY locale, user_facing_version`

	rows, err := r.db.Query(ctx, query, contentID)
	if err != nil {
		return nil, r.handlePostgresError("content items for content id", err)
	}
	defer rows.Close()

	return collectContentItems(rows)
}

func (r *Repository) UpdateContentItem(ctx context.Context, item *simplepublishing.ContentItem, expectedLockVersion int) error {
	details, routes, redirects, accessLimited, err := marshalJSONColumns(item)
	if err != nil {
		return err
	}

	// The lock_version check and increment happen in one statement; a stale
	// caller matches zero rows.
	query := `
		UPDATE content_items SET
			base_path = $2, schema_name = $3, document_type = $4, title = $5,
			description = $6, details = $7, routes = $8, redirects = $9,
			state = $10, update_type = $11, publishing_app = $12,
			rendering_app = $13, access_limited = $14, public_updated_at = $15,
			lock_version = lock_version + 1, updated_at = $16
		WHERE id = $1 AND lock_version = $17`

	tag, err := r.db.Exec(ctx, query,
		item.ID, item.BasePath, item.SchemaName, item.DocumentType, item.Title,
		item.Description, details, routes, redirects, item.State, item.UpdateType,
		item.PublishingApp, item.RenderingApp, accessLimited, item.PublicUpdatedAt,
		time.Now().UTC(), expectedLockVersion)
	if err != nil {
		return r.handlePostgresError("update content item", err)
	}

	if tag.RowsAffected() == 0 {
		current, err := r.GetContentItem(ctx, item.ID)
		if err != nil {
			return err
		}
		return &simplepublishing.ConflictError{
			Resource: "content_item",
			Expected: expectedLockVersion,
			Actual:   current.LockVersion,
		}
	}

	return nil
}

func (r *Repository) DeleteContentItem(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete content item", err)
	}
	if tag.RowsAffected() == 0 {
		return simplepublishing.ErrContentItemNotFound
	}
	return nil
}

func (r *Repository) DeleteAllContentItems(ctx context.Context, contentID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM content_items WHERE content_id = $1`, contentID)
	if err != nil {
		return r.handlePostgresError("delete all content items", err)
	}
	return nil
}

// Link set operations

func (r *Repository) EnsureLinkSet(ctx context.Context, contentID uuid.UUID) (*simplepublishing.LinkSet, error) {
	// ON CONFLICT DO NOTHING makes the lazy create safe under concurrent
	// first-writes for a new content_id.
	insert := `
		INSERT INTO link_sets (id, content_id, lock_version, created_at, updated_at)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT (content_id) DO NOTHING`

	now := time.Now().UTC()
	if _, err := r.db.Exec(ctx, insert, uuid.New(), contentID, now); err != nil {
		return nil, r.handlePostgresError("ensure link set", err)
	}

	return r.GetLinkSet(ctx, contentID)
}

func (r *Repository) GetLinkSet(ctx context.Context, contentID uuid.UUID) (*simplepublishing.LinkSet, error) {
	query := `
		SELECT id, content_id, lock_version, created_at, updated_at
		FROM link_sets WHERE content_id = $1`

	var ls simplepublishing.LinkSet
	err := r.db.QueryRow(ctx, query, contentID).Scan(
		&ls.ID, &ls.ContentID, &ls.LockVersion, &ls.CreatedAt, &ls.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplepublishing.ErrLinkSetNotFound
		}
		return nil, err
	}
	return &ls, nil
}

func (r *Repository) DeleteLinkSet(ctx context.Context, contentID uuid.UUID) error {
	// links cascade via the link_set_id foreign key
	_, err := r.db.Exec(ctx, `DELETE FROM link_sets WHERE content_id = $1`, contentID)
	if err != nil {
		return r.handlePostgresError("delete link set", err)
	}
	return nil
}

func (r *Repository) ReplaceLinks(ctx context.Context, linkSetID uuid.UUID, links []simplepublishing.Link, expectedLockVersion int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE link_sets SET lock_version = lock_version + 1, updated_at = $2
		WHERE id = $1 AND lock_version = $3`,
		linkSetID, time.Now().UTC(), expectedLockVersion)
	if err != nil {
		return r.handlePostgresError("replace links", err)
	}
	if tag.RowsAffected() == 0 {
		var current int
		err := r.db.QueryRow(ctx, `SELECT lock_version FROM link_sets WHERE id = $1`, linkSetID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return simplepublishing.ErrLinkSetNotFound
			}
			return err
		}
		return &simplepublishing.ConflictError{
			Resource: "link_set",
			Expected: expectedLockVersion,
			Actual:   current,
		}
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM links WHERE link_set_id = $1`, linkSetID); err != nil {
		return r.handlePostgresError("replace links", err)
	}

	for _, link := range links {
		id := link.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		_, err := r.db.Exec(ctx, `
			INSERT INTO links (id, link_set_id, link_type, target_content_id, position)
			VALUES ($1, $2, $3, $4, $5)`,
			id, linkSetID, link.LinkType, link.TargetContentID, link.Position)
		if err != nil {
			return r.handlePostgresError("replace links", err)
		}
	}

	return nil
}

func (r *Repository) LinksToTarget(ctx context.Context, target uuid.UUID, linkTypes []string) ([]simplepublishing.DependentLink, error) {
	query := `
		SELECT links.link_type, link_sets.content_id, links.position
		FROM links
		JOIN link_sets ON link_sets.id = links.link_set_id
		WHERE links.target_content_id = $1 AND links.link_type = ANY($2)
		ORDER BY links.link_type ASC, links.position ASC`

	rows, err := r.db.Query(ctx, query, target, linkTypes)
	if err != nil {
		return nil, r.handlePostgresError("links to target", err)
	}
	defer rows.Close()

	var result []simplepublishing.DependentLink
	for rows.Next() {
		var dl simplepublishing.DependentLink
		if err := rows.Scan(&dl.LinkType, &dl.ContentID, &dl.Position); err != nil {
			return nil, err
		}
		result = append(result, dl)
	}
	return result, rows.Err()
}

func (r *Repository) NextEventID(ctx context.Context) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO events DEFAULT VALUES RETURNING id`).Scan(&id)
	if err != nil {
		return 0, r.handlePostgresError("next event id", err)
	}
	return id, nil
}

// Scan helpers

func marshalJSONColumns(item *simplepublishing.ContentItem) (details, routes, redirects, accessLimited []byte, err error) {
	if item.Details != nil {
		if details, err = json.Marshal(item.Details); err != nil {
			return
		}
	}
	if item.Routes != nil {
		if routes, err = json.Marshal(item.Routes); err != nil {
			return
		}
	}
	if item.Redirects != nil {
		if redirects, err = json.Marshal(item.Redirects); err != nil {
			return
		}
	}
	if item.AccessLimited != nil {
		accessLimited, err = json.Marshal(item.AccessLimited)
	}
	return
}

func scanContentItem(row pgx.Row) (*simplepublishing.ContentItem, error) {
	var (
		item          simplepublishing.ContentItem
		details       []byte
		routes        []byte
		redirects     []byte
		accessLimited []byte
	)

	err := row.Scan(
		&item.ID, &item.ContentID, &item.Locale, &item.BasePath, &item.SchemaName,
		&item.DocumentType, &item.Title, &item.Description, &details, &routes,
		&redirects, &item.State, &item.UpdateType, &item.PublishingApp,
		&item.RenderingApp, &accessLimited, &item.PublicUpdatedAt,
		&item.UserFacingVersion, &item.LockVersion, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if details != nil {
		if err := json.Unmarshal(details, &item.Details); err != nil {
			return nil, err
		}
	}
	if routes != nil {
		if err := json.Unmarshal(routes, &item.Routes); err != nil {
			return nil, err
		}
	}
	if redirects != nil {
		if err := json.Unmarshal(redirects, &item.Redirects); err != nil {
			return nil, err
		}
	}
	if accessLimited != nil {
		if err := json.Unmarshal(accessLimited, &item.AccessLimited); err != nil {
			return nil, err
		}
	}

	return &item, nil
}

func collectContentItems(rows pgx.Rows) ([]*simplepublishing.ContentItem, error) {
	var result []*simplepublishing.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
