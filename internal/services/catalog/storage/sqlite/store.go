// Package sqlite provides a SQLite-backed catalog storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/ounjeeh/staples/internal/platform/storage/sqlitemigrate"
	"github.com/ounjeeh/staples/internal/services/catalog/storage"
	"github.com/ounjeeh/staples/internal/services/catalog/storage/sqlite/migrations"
)

const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// Store persists catalog records in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
	newID func() string
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite catalog store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	sqlDB, err := sql.Open("sqlite", filepath.Clean(path)+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now, newID: uuid.NewString}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

const productColumns = `id, product_id, product_name, description, category, price_kobo,
	stock_status, image_url, image_path, is_primary, verified_at, created_at, updated_at`

// CreateProductRecord inserts one product record. Empty ids are generated.
func (s *Store) CreateProductRecord(ctx context.Context, record storage.ProductRecord) (storage.ProductRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ProductRecord{}, err
	}
	record = normalizeProduct(record)
	if record.ID == "" {
		record.ID = s.newID()
	}
	if record.ProductID == "" {
		return storage.ProductRecord{}, fmt.Errorf("product id is required")
	}
	if record.ProductName == "" {
		return storage.ProductRecord{}, fmt.Errorf("product name is required")
	}
	if record.ImageURL == "" {
		return storage.ProductRecord{}, fmt.Errorf("image url is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO product_images (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.ProductID,
		record.ProductName,
		record.Description,
		record.Category,
		nullInt(record.PriceKobo),
		record.StockStatus,
		record.ImageURL,
		record.ImagePath,
		record.IsPrimary,
		nullMillis(record.VerifiedAt),
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ProductRecord{}, storage.ErrAlreadyExists
		}
		return storage.ProductRecord{}, fmt.Errorf("create product record: %w", err)
	}
	return s.GetProductRecord(ctx, record.ID)
}

// GetProductRecord returns one product record by id.
func (s *Store) GetProductRecord(ctx context.Context, id string) (storage.ProductRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ProductRecord{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.ProductRecord{}, fmt.Errorf("record id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+productColumns+` FROM product_images WHERE id = ?`, id)
	record, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ProductRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ProductRecord{}, fmt.Errorf("get product record: %w", err)
	}
	return record, nil
}

// UpdateProductRecord replaces the mutable fields of an existing record.
// Replacing the image clears its verification.
func (s *Store) UpdateProductRecord(ctx context.Context, record storage.ProductRecord) (storage.ProductRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ProductRecord{}, err
	}
	record = normalizeProduct(record)
	if record.ID == "" {
		return storage.ProductRecord{}, fmt.Errorf("record id is required")
	}
	if record.ProductName == "" {
		return storage.ProductRecord{}, fmt.Errorf("product name is required")
	}
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now().UTC()
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE product_images
		    SET product_name = ?,
		        description = ?,
		        category = ?,
		        price_kobo = ?,
		        stock_status = ?,
		        verified_at = CASE WHEN image_url = ? THEN verified_at ELSE NULL END,
		        image_url = ?,
		        image_path = ?,
		        is_primary = ?,
		        updated_at = ?
		  WHERE id = ?`,
		record.ProductName,
		record.Description,
		record.Category,
		nullInt(record.PriceKobo),
		record.StockStatus,
		record.ImageURL,
		record.ImageURL,
		record.ImagePath,
		record.IsPrimary,
		toMillis(updatedAt),
		record.ID,
	)
	if err != nil {
		return storage.ProductRecord{}, fmt.Errorf("update product record: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return storage.ProductRecord{}, err
	}
	return s.GetProductRecord(ctx, record.ID)
}

// DeleteProductRecord removes one product record.
func (s *Store) DeleteProductRecord(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM product_images WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete product record: %w", err)
	}
	return expectOneRow(res)
}

// ListProductRecords returns product records newest first.
func (s *Store) ListProductRecords(ctx context.Context, filter storage.ProductFilter) ([]storage.ProductRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + productColumns + ` FROM product_images`
	var (
		where []string
		args  []any
	)
	if v := strings.TrimSpace(filter.ProductID); v != "" {
		where = append(where, "product_id = ?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(filter.Category); v != "" {
		where = append(where, "category = ?")
		args = append(args, v)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list product records: %w", err)
	}
	defer rows.Close()

	var out []storage.ProductRecord
	for rows.Next() {
		record, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("list product records: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list product records: %w", err)
	}
	return out, nil
}

// MarkProductImageVerified records that the record's image URL was loadable.
func (s *Store) MarkProductImageVerified(ctx context.Context, id string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if at.IsZero() {
		at = s.now()
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE product_images SET verified_at = ? WHERE id = ?`,
		toMillis(at), strings.TrimSpace(id),
	)
	if err != nil {
		return fmt.Errorf("mark product image verified: %w", err)
	}
	return expectOneRow(res)
}

// CreateTeamMember inserts one team member. Empty ids are generated.
func (s *Store) CreateTeamMember(ctx context.Context, member storage.TeamMember) (storage.TeamMember, error) {
	if err := s.ready(ctx); err != nil {
		return storage.TeamMember{}, err
	}
	member.ID = strings.TrimSpace(member.ID)
	member.Name = strings.TrimSpace(member.Name)
	member.Role = strings.TrimSpace(member.Role)
	if member.ID == "" {
		member.ID = s.newID()
	}
	if member.Name == "" {
		return storage.TeamMember{}, fmt.Errorf("member name is required")
	}
	if member.Role == "" {
		return storage.TeamMember{}, fmt.Errorf("member role is required")
	}
	if member.CreatedAt.IsZero() {
		member.CreatedAt = s.now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO team_members (id, name, role, image_url, image_path, display_order, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.Name,
		member.Role,
		strings.TrimSpace(member.ImageURL),
		strings.TrimSpace(member.ImagePath),
		member.DisplayOrder,
		member.IsActive,
		toMillis(member.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.TeamMember{}, storage.ErrAlreadyExists
		}
		return storage.TeamMember{}, fmt.Errorf("create team member: %w", err)
	}
	return s.GetTeamMember(ctx, member.ID)
}

// GetTeamMember returns one team member by id.
func (s *Store) GetTeamMember(ctx context.Context, id string) (storage.TeamMember, error) {
	if err := s.ready(ctx); err != nil {
		return storage.TeamMember{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, role, image_url, image_path, display_order, is_active, created_at
		   FROM team_members WHERE id = ?`,
		strings.TrimSpace(id),
	)
	member, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.TeamMember{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.TeamMember{}, fmt.Errorf("get team member: %w", err)
	}
	return member, nil
}

// DeleteTeamMember removes one team member.
func (s *Store) DeleteTeamMember(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM team_members WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete team member: %w", err)
	}
	return expectOneRow(res)
}

// ListActiveTeamMembers returns active members ordered by display order.
func (s *Store) ListActiveTeamMembers(ctx context.Context) ([]storage.TeamMember, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, role, image_url, image_path, display_order, is_active, created_at
		   FROM team_members
		  WHERE is_active = 1
		  ORDER BY display_order ASC, created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	var out []storage.TeamMember
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("list team members: %w", err)
		}
		out = append(out, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (storage.ProductRecord, error) {
	var (
		record     storage.ProductRecord
		price      sql.NullInt64
		verifiedAt sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(
		&record.ID,
		&record.ProductID,
		&record.ProductName,
		&record.Description,
		&record.Category,
		&price,
		&record.StockStatus,
		&record.ImageURL,
		&record.ImagePath,
		&record.IsPrimary,
		&verifiedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.ProductRecord{}, err
	}
	if price.Valid {
		v := price.Int64
		record.PriceKobo = &v
	}
	if verifiedAt.Valid {
		v := fromMillis(verifiedAt.Int64)
		record.VerifiedAt = &v
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanMember(row scanner) (storage.TeamMember, error) {
	var (
		member    storage.TeamMember
		createdAt int64
	)
	if err := row.Scan(
		&member.ID,
		&member.Name,
		&member.Role,
		&member.ImageURL,
		&member.ImagePath,
		&member.DisplayOrder,
		&member.IsActive,
		&createdAt,
	); err != nil {
		return storage.TeamMember{}, err
	}
	member.CreatedAt = fromMillis(createdAt)
	return member, nil
}

func normalizeProduct(record storage.ProductRecord) storage.ProductRecord {
	record.ID = strings.TrimSpace(record.ID)
	record.ProductID = strings.TrimSpace(record.ProductID)
	record.ProductName = strings.TrimSpace(record.ProductName)
	record.Description = strings.TrimSpace(record.Description)
	record.Category = strings.TrimSpace(record.Category)
	record.StockStatus = strings.TrimSpace(record.StockStatus)
	record.ImageURL = strings.TrimSpace(record.ImageURL)
	record.ImagePath = strings.TrimSpace(record.ImagePath)
	if record.Category == "" {
		record.Category = "grains"
	}
	if record.StockStatus == "" {
		record.StockStatus = "in-stock"
	}
	return record
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullMillis(v *time.Time) sql.NullInt64 {
	if v == nil || v.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*v), Valid: true}
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.Store = (*Store)(nil)
