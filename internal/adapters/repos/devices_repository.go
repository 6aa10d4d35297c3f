package repos

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/devicely/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const devicesTable = "devices"

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	deviceColumns = []string{"id", "name", "brand", "state", "created_at", "updated_at", "is_deleted"}

	// notDeleted is added to every statement; soft-deleted rows are invisible
	// to reads and immune to writes.
	notDeleted = sq.Eq{"is_deleted": false}
)

type (
	// PoolOps defines the interface for database operations.
	// This allows injecting mock implementations for testing.
	PoolOps interface {
		QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
		Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
		Ping(ctx context.Context) error
	}

	// DevicesRepository stores devices in PostgreSQL.
	DevicesRepository struct {
		pool       PoolOps
		scanner    Scanner
		translator *CriteriaTranslator
	}

	deviceRow struct {
		ID        int64     `db:"id"`
		Name      string    `db:"name"`
		Brand     string    `db:"brand"`
		State     int       `db:"state"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
		IsDeleted bool      `db:"is_deleted"`
	}
)

func NewDevicesRepository(pool PoolOps, scanner Scanner, translator *CriteriaTranslator) *DevicesRepository {
	return &DevicesRepository{
		pool:       pool,
		scanner:    scanner,
		translator: translator,
	}
}

func (r *DevicesRepository) Create(ctx context.Context, device *model.Device) error {
	query, args, err := psql.Insert(devicesTable).
		Columns("name", "brand", "state", "created_at", "updated_at", "is_deleted").
		Values(
			device.Name,
			device.Brand,
			int(device.State),
			device.CreatedAt,
			device.UpdatedAt,
			device.IsDeleted,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	var id int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("%w: %w", model.ErrDatabaseQuery, err)
	}

	device.ID = model.DeviceID(id)

	return nil
}

func (r *DevicesRepository) FetchByID(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	query, args, err := psql.Select(deviceColumns...).
		From(devicesTable).
		Where(sq.And{sq.Eq{"id": int64(id)}, notDeleted}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDatabaseQuery, err)
	}
	defer rows.Close()

	var row deviceRow
	if err := r.scanner.ScanOne(&row, rows); err != nil {
		if r.scanner.IsNotFound(err) {
			return nil, model.ErrDeviceNotFound
		}

		return nil, fmt.Errorf("%w: %w", model.ErrDatabaseQuery, err)
	}

	return convertRowToDevice(row), nil
}

// List counts every match first, then reads the requested page. The count is
// independent of the page so an out-of-range page still reports the total.
func (r *DevicesRepository) List(ctx context.Context, filter model.DeviceFilter) (*model.DeviceList, error) {
	criteria := model.FromDeviceFilter(filter)

	total, err := r.count(ctx, criteria)
	if err != nil {
		return nil, err
	}

	devices := make([]*model.Device, 0)

	if total > uint(criteria.Offset()) {
		builder := r.translator.ApplyToSelect(psql.Select(deviceColumns...).From(devicesTable), criteria)

		devices, err = r.queryDevices(ctx, builder)
		if err != nil {
			return nil, err
		}
	}

	return &model.DeviceList{
		Devices:    devices,
		Pagination: model.NewPagination(criteria.Page(), criteria.Size(), total),
		Filters:    filter,
	}, nil
}

func (r *DevicesRepository) Update(ctx context.Context, device *model.Device) error {
	return r.updateByCriteria(
		ctx,
		psql.Update(devicesTable).
			Set("name", device.Name).
			Set("brand", device.Brand).
			Set("state", int(device.State)).
			Set("updated_at", device.UpdatedAt).
			Where(sq.And{sq.Eq{"id": int64(device.ID)}, notDeleted}),
	)
}

func (r *DevicesRepository) SoftDelete(ctx context.Context, id model.DeviceID, at time.Time) error {
	return r.updateByCriteria(
		ctx,
		psql.Update(devicesTable).
			Set("is_deleted", true).
			Set("updated_at", at).
			Where(sq.And{sq.Eq{"id": int64(id)}, notDeleted}),
	)
}

func (r *DevicesRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *DevicesRepository) count(ctx context.Context, criteria model.Criteria) (uint, error) {
	query, args, err := r.translator.ApplyConditionsOnly(psql.Select("COUNT(*)").From(devicesTable), criteria).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: %w", model.ErrDatabaseQuery, err)
	}

	return uint(total), nil
}

func (r *DevicesRepository) updateByCriteria(ctx context.Context, updateBuilder sq.UpdateBuilder) error {
	query, args, err := updateBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrDatabaseQuery, err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrDeviceNotFound
	}

	return nil
}

func (r *DevicesRepository) queryDevices(ctx context.Context, builder sq.SelectBuilder) ([]*model.Device, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDatabaseQuery, err)
	}
	defer rows.Close()

	var deviceRows []deviceRow
	if err := r.scanner.ScanAll(&deviceRows, rows); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDatabaseQuery, err)
	}

	devices := make([]*model.Device, 0, len(deviceRows))
	for index := range deviceRows {
		devices = append(devices, convertRowToDevice(deviceRows[index]))
	}

	return devices, nil
}

func convertRowToDevice(row deviceRow) *model.Device {
	return &model.Device{
		ID:        model.DeviceID(row.ID),
		Name:      row.Name,
		Brand:     row.Brand,
		State:     model.State(row.State),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		IsDeleted: row.IsDeleted,
	}
}
