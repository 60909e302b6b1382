package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/digicom/complaints/internal/database"
	"github.com/digicom/complaints/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// ComplaintFilter narrows List and Count queries.
type ComplaintFilter struct {
	Status models.Status // empty = all statuses
	UserID string        // empty = all users
}

// ComplaintSort names a list ordering. The zero value sorts by updated_at
// ascending, matching the default list view.
type ComplaintSort struct {
	Field string // createdAt | updatedAt | title
	Desc  bool
}

// sortColumns whitelists sortable fields; user input never reaches SQL directly.
var sortColumns = map[string]string{
	"":          "updated_at",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
}

// OrderBy returns the ORDER BY clause column/direction for the sort, or an
// error for unknown fields.
func (s ComplaintSort) OrderBy() (string, error) {
	col, ok := sortColumns[s.Field]
	if !ok {
		return "", fmt.Errorf("%w: unsortable field %q", models.ErrBadRequest, s.Field)
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return col + " " + dir, nil
}

type ComplaintRepository struct {
	pool *pgxpool.Pool
}

func NewComplaintRepository(db *database.DB) *ComplaintRepository {
	return &ComplaintRepository{pool: db.Pool}
}

func scanComplaintRow(scanner rowScanner) (*models.Complaint, error) {
	var c models.Complaint
	var images []string

	err := scanner.Scan(
		&c.ID, &c.UserID, &c.Title, &c.Description, &c.Status,
		pq.Array(&images),
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if images == nil {
		images = []string{}
	}
	c.Images = images

	return &c, nil
}

func scanComplaintRows(rows pgx.Rows) ([]*models.Complaint, error) {
	defer rows.Close()

	complaints := make([]*models.Complaint, 0)

	for rows.Next() {
		c, err := scanComplaintRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return complaints, nil
}

const complaintColumns = "id, user_id, title, description, status, images, created_at, updated_at"

func (r *ComplaintRepository) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + `
		FROM complaints WHERE id = $1
	`

	return scanComplaintRow(r.pool.QueryRow(ctx, query, id))
}

func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	c.ID = uuid.New().String()

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if c.Status == "" {
		c.Status = models.StatusOpen
	}
	if c.Images == nil {
		c.Images = []string{}
	}

	query := `
		INSERT INTO complaints (id, user_id, title, description, status, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + complaintColumns + `
	`

	created, err := scanComplaintRow(r.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.Title, c.Description, c.Status,
		pq.Array(c.Images), c.CreatedAt, c.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create complaint: %w", err)
	}

	return created, nil
}

// Update persists the mutable fields of a complaint. user_id and created_at
// are never written after creation.
func (r *ComplaintRepository) Update(ctx context.Context, id string, c *models.Complaint) (*models.Complaint, error) {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE complaints SET title = $1, description = $2, status = $3, images = $4, updated_at = $5
		WHERE id = $6
		RETURNING ` + complaintColumns + `
	`

	updated, err := scanComplaintRow(r.pool.QueryRow(ctx, query,
		c.Title, c.Description, c.Status, pq.Array(c.Images), c.UpdatedAt, id,
	))
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *ComplaintRepository) List(ctx context.Context, filter ComplaintFilter, sort ComplaintSort, limit, offset int) ([]*models.Complaint, error) {
	orderBy, err := sort.OrderBy()
	if err != nil {
		return nil, err
	}

	where, args := filter.whereClause()
	query := fmt.Sprintf(`
		SELECT `+complaintColumns+`
		FROM complaints %s ORDER BY %s LIMIT $%d OFFSET $%d
	`, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaints: %w", err)
	}

	return scanComplaintRows(rows)
}

func (r *ComplaintRepository) Count(ctx context.Context, filter ComplaintFilter) (int, error) {
	where, args := filter.whereClause()
	query := fmt.Sprintf(`SELECT COUNT(*) FROM complaints %s`, where)

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}

	return count, nil
}

func (f ComplaintFilter) whereClause() (string, []any) {
	conditions := ""
	args := make([]any, 0, 2)

	add := func(cond string, val any) {
		args = append(args, val)
		clause := fmt.Sprintf(cond, len(args))
		if conditions == "" {
			conditions = "WHERE " + clause
		} else {
			conditions += " AND " + clause
		}
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}

	return conditions, args
}

// Aggregation queries backing the dashboard. Each is independent and
// read-only.

// CountByStatus returns a count per status from one grouped query. Statuses
// with no complaints are absent from the map.
func (r *ComplaintRepository) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	query := `SELECT status, COUNT(*) FROM complaints GROUP BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status models.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}

// CountCreatedSince counts complaints created at or after the cutoff.
func (r *ComplaintRepository) CountCreatedSince(ctx context.Context, cutoff time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM complaints WHERE created_at >= $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}

	return count, nil
}

// Recent returns the newest complaints, creation time descending.
func (r *ComplaintRepository) Recent(ctx context.Context, limit int) ([]models.ComplaintSummary, error) {
	query := `
		SELECT id, title, status, created_at
		FROM complaints ORDER BY created_at DESC LIMIT $1
	`

	return r.querySummaries(ctx, query, limit)
}

// LongestOpen returns the oldest still-OPEN complaints, creation time ascending.
func (r *ComplaintRepository) LongestOpen(ctx context.Context, limit int) ([]models.ComplaintSummary, error) {
	query := `
		SELECT id, title, status, created_at
		FROM complaints WHERE status = $1 ORDER BY created_at ASC LIMIT $2
	`

	return r.querySummaries(ctx, query, models.StatusOpen, limit)
}

func (r *ComplaintRepository) querySummaries(ctx context.Context, query string, args ...any) ([]models.ComplaintSummary, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaint summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ComplaintSummary, 0)
	for rows.Next() {
		var s models.ComplaintSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan complaint summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return summaries, nil
}

// CountPerDay buckets complaints created at or after the cutoff by calendar
// day (UTC), ascending. Days with no complaints do not appear.
func (r *ComplaintRepository) CountPerDay(ctx context.Context, cutoff time.Time) ([]models.DayCount, error) {
	query := `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM complaints WHERE created_at >= $1
		GROUP BY day ORDER BY day ASC
	`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to count per day: %w", err)
	}
	defer rows.Close()

	buckets := make([]models.DayCount, 0)
	for rows.Next() {
		var dc models.DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		buckets = append(buckets, dc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return buckets, nil
}

// TopFilers returns the users with the most complaints, count descending,
// ties broken by user id for a stable order.
func (r *ComplaintRepository) TopFilers(ctx context.Context, limit int) ([]models.FilerCount, error) {
	query := `
		SELECT user_id, COUNT(*) AS cnt
		FROM complaints GROUP BY user_id ORDER BY cnt DESC, user_id ASC LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top filers: %w", err)
	}
	defer rows.Close()

	filers := make([]models.FilerCount, 0)
	for rows.Next() {
		var fc models.FilerCount
		if err := rows.Scan(&fc.UserID, &fc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan filer count: %w", err)
		}
		filers = append(filers, fc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return filers, nil
}

// CreationTimes returns every complaint's creation timestamp. Aging buckets
// are computed per record in the service, so this is a full-collection scan.
func (r *ComplaintRepository) CreationTimes(ctx context.Context) ([]time.Time, error) {
	query := `SELECT created_at FROM complaints`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query creation times: %w", err)
	}
	defer rows.Close()

	times := make([]time.Time, 0)
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan creation time: %w", err)
		}
		times = append(times, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return times, nil
}

// ImageReferences returns every stored image name referenced by any
// complaint. Used by the upload sweeper to find orphaned files.
func (r *ComplaintRepository) ImageReferences(ctx context.Context) (map[string]bool, error) {
	query := `SELECT unnest(images) FROM complaints`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query image references: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan image reference: %w", err)
		}
		refs[name] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return refs, nil
}
