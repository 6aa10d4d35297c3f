package repos_test

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/architeacher/devicely/internal/adapters/repos"
	"github.com/architeacher/devicely/internal/domain/model"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

const (
	selectByIDSQL = `SELECT id, name, brand, state, created_at, updated_at, is_deleted FROM devices WHERE (id = $1 AND is_deleted = $2) LIMIT 1`
	insertSQL     = `INSERT INTO devices (name,brand,state,created_at,updated_at,is_deleted) VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`
	updateSQL     = `UPDATE devices SET name = $1, brand = $2, state = $3, updated_at = $4 WHERE (id = $5 AND is_deleted = $6)`
	softDeleteSQL = `UPDATE devices SET is_deleted = $1, updated_at = $2 WHERE (id = $3 AND is_deleted = $4)`
)

var deviceColumns = []string{"id", "name", "brand", "state", "created_at", "updated_at", "is_deleted"}

func runRepoTest(
	t *testing.T,
	setupMock func(pgxmock.PgxPoolIface),
	testFn func(*testing.T, *repos.DevicesRepository),
) {
	runRepoTestWithLogger(t, setupMock, func(t *testing.T, repo *repos.DevicesRepository, _ *bytes.Buffer) {
		testFn(t, repo)
	})
}

func runRepoTestWithLogger(
	t *testing.T,
	setupMock func(pgxmock.PgxPoolIface),
	testFn func(*testing.T, *repos.DevicesRepository, *bytes.Buffer),
) {
	t.Helper()
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	setupMock(mock)

	logBuffer := &bytes.Buffer{}
	log := logger.NewBufferedTestLogger(logBuffer)
	repo := repos.NewDevicesRepository(mock, repos.NewPgxScanner(), repos.NewCriteriaTranslator(log))
	testFn(t, repo, logBuffer)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDevicesRepository_Create(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)

	cases := []struct {
		name        string
		setupMock   func(mock pgxmock.PgxPoolIface)
		expectedID  model.DeviceID
		expectedErr error
	}{
		{
			name: "assigns the store generated id",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(insertSQL)).
					WithArgs("Galaxy S9", "Samsung", 1, now, now, false).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
			},
			expectedID: 11,
		},
		{
			name: "database error is wrapped",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(insertSQL)).
					WithArgs("Galaxy S9", "Samsung", 1, now, now, false).
					WillReturnError(errors.New("connection reset"))
			},
			expectedErr: model.ErrDatabaseQuery,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runRepoTest(t, tc.setupMock, func(t *testing.T, repo *repos.DevicesRepository) {
				device, err := model.NewDevice("Galaxy S9", "Samsung", model.StateAvailable, now)
				require.NoError(t, err)

				err = repo.Create(t.Context(), device)

				if tc.expectedErr != nil {
					require.ErrorIs(t, err, tc.expectedErr)
					require.True(t, device.ID.IsZero())

					return
				}

				require.NoError(t, err)
				require.Equal(t, tc.expectedID, device.ID)
			})
		})
	}
}

func TestDevicesRepository_FetchByID(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)

	cases := []struct {
		name           string
		setupMock      func(mock pgxmock.PgxPoolIface)
		expectedErr    error
		expectedDevice *model.Device
	}{
		{
			name: "returns the device",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(deviceColumns).
					AddRow(int64(5), "iPhone", "Apple", 2, now, now, false)
				mock.ExpectQuery(regexp.QuoteMeta(selectByIDSQL)).
					WithArgs(int64(5), false).
					WillReturnRows(rows)
			},
			expectedDevice: &model.Device{
				ID:        5,
				Name:      "iPhone",
				Brand:     "Apple",
				State:     model.StateInUse,
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
		{
			name: "missing or deleted row is not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(selectByIDSQL)).
					WithArgs(int64(5), false).
					WillReturnRows(pgxmock.NewRows(deviceColumns))
			},
			expectedErr: model.ErrDeviceNotFound,
		},
		{
			name: "database error is wrapped",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(selectByIDSQL)).
					WithArgs(int64(5), false).
					WillReturnError(errors.New("connection error"))
			},
			expectedErr: model.ErrDatabaseQuery,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runRepoTest(t, tc.setupMock, func(t *testing.T, repo *repos.DevicesRepository) {
				device, err := repo.FetchByID(t.Context(), 5)

				if tc.expectedErr != nil {
					require.ErrorIs(t, err, tc.expectedErr)
					require.Nil(t, device)

					return
				}

				require.NoError(t, err)
				require.Equal(t, tc.expectedDevice, device)
			})
		})
	}
}

func TestDevicesRepository_List(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)

	cases := []struct {
		name               string
		filter             model.DeviceFilter
		setupMock          func(mock pgxmock.PgxPoolIface)
		expectedIDs        []model.DeviceID
		expectedPagination model.Pagination
		expectedErr        error
	}{
		{
			name:   "unfiltered first page",
			filter: model.DeviceFilter{Page: 1, Size: 2},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM devices WHERE is_deleted = $1`)).
					WithArgs(false).
					WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
				mock.ExpectQuery(regexp.QuoteMeta(
					`SELECT id, name, brand, state, created_at, updated_at, is_deleted FROM devices WHERE is_deleted = $1 ORDER BY id ASC LIMIT 2 OFFSET 0`,
				)).
					WithArgs(false).
					WillReturnRows(pgxmock.NewRows(deviceColumns).
						AddRow(int64(1), "A1", "Brand A", 1, now, now, false).
						AddRow(int64(2), "B1", "Brand B", 2, now, now, false))
			},
			expectedIDs:        []model.DeviceID{1, 2},
			expectedPagination: model.Pagination{Page: 1, Size: 2, TotalItems: 3, TotalPages: 2, HasNext: true},
		},
		{
			name: "brand and state filters",
			filter: model.DeviceFilter{
				Brand: model.Some("Brand A"),
				State: model.Some(model.StateInUse),
				Page:  2,
				Size:  1,
			},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(
					`SELECT COUNT(*) FROM devices WHERE (is_deleted = $1 AND brand = $2 AND state = $3)`,
				)).
					WithArgs(false, "Brand A", 2).
					WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
				mock.ExpectQuery(regexp.QuoteMeta(
					`FROM devices WHERE (is_deleted = $1 AND brand = $2 AND state = $3) ORDER BY id ASC LIMIT 1 OFFSET 1`,
				)).
					WithArgs(false, "Brand A", 2).
					WillReturnRows(pgxmock.NewRows(deviceColumns).
						AddRow(int64(7), "A3", "Brand A", 2, now, now, false))
			},
			expectedIDs:        []model.DeviceID{7},
			expectedPagination: model.Pagination{Page: 2, Size: 1, TotalItems: 2, TotalPages: 2, HasPrevious: true},
		},
		{
			name:   "page past the end skips the page query",
			filter: model.DeviceFilter{Page: 4, Size: 10},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM devices WHERE is_deleted = $1`)).
					WithArgs(false).
					WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))
			},
			expectedIDs:        []model.DeviceID{},
			expectedPagination: model.Pagination{Page: 4, Size: 10, TotalItems: 12, TotalPages: 2, HasPrevious: true},
		},
		{
			name:   "count failure is wrapped",
			filter: model.DeviceFilter{Page: 1, Size: 10},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM devices`)).
					WithArgs(false).
					WillReturnError(errors.New("timeout"))
			},
			expectedErr: model.ErrDatabaseQuery,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runRepoTest(t, tc.setupMock, func(t *testing.T, repo *repos.DevicesRepository) {
				list, err := repo.List(t.Context(), tc.filter)

				if tc.expectedErr != nil {
					require.ErrorIs(t, err, tc.expectedErr)
					require.Nil(t, list)

					return
				}

				require.NoError(t, err)

				ids := make([]model.DeviceID, 0, len(list.Devices))
				for _, d := range list.Devices {
					ids = append(ids, d.ID)
				}

				require.Equal(t, tc.expectedIDs, ids)
				require.Equal(t, tc.expectedPagination, list.Pagination)
				require.Equal(t, tc.filter, list.Filters)
			})
		})
	}
}

func TestDevicesRepository_Update(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)
	device := &model.Device{ID: 9, Name: "Pixel", Brand: "Google", State: model.StateInactive, UpdatedAt: now}

	cases := []struct {
		name        string
		setupMock   func(mock pgxmock.PgxPoolIface)
		expectedErr error
	}{
		{
			name: "updates a live row",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta(updateSQL)).
					WithArgs("Pixel", "Google", 3, now, int64(9), false).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name: "no affected rows is not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta(updateSQL)).
					WithArgs("Pixel", "Google", 3, now, int64(9), false).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			expectedErr: model.ErrDeviceNotFound,
		},
		{
			name: "database error is wrapped",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta(updateSQL)).
					WithArgs("Pixel", "Google", 3, now, int64(9), false).
					WillReturnError(errors.New("deadlock detected"))
			},
			expectedErr: model.ErrDatabaseQuery,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runRepoTest(t, tc.setupMock, func(t *testing.T, repo *repos.DevicesRepository) {
				err := repo.Update(t.Context(), device)

				if tc.expectedErr != nil {
					require.ErrorIs(t, err, tc.expectedErr)

					return
				}

				require.NoError(t, err)
			})
		})
	}
}

func TestDevicesRepository_SoftDelete(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		affected    int64
		expectedErr error
	}{
		{name: "flags a live row", affected: 1},
		{name: "deleted or absent row is not found", affected: 0, expectedErr: model.ErrDeviceNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runRepoTest(t, func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(regexp.QuoteMeta(softDeleteSQL)).
					WithArgs(true, at, int64(4), false).
					WillReturnResult(pgxmock.NewResult("UPDATE", tc.affected))
			}, func(t *testing.T, repo *repos.DevicesRepository) {
				err := repo.SoftDelete(t.Context(), 4, at)

				if tc.expectedErr != nil {
					require.ErrorIs(t, err, tc.expectedErr)

					return
				}

				require.NoError(t, err)
			})
		})
	}
}

func TestDevicesRepository_Ping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		pingErr error
	}{
		{name: "healthy connection"},
		{name: "broken connection", pingErr: errors.New("no route to host")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runRepoTest(t, func(mock pgxmock.PgxPoolIface) {
				mock.ExpectPing().WillReturnError(tc.pingErr)
			}, func(t *testing.T, repo *repos.DevicesRepository) {
				err := repo.Ping(t.Context())

				if tc.pingErr != nil {
					require.Error(t, err)

					return
				}

				require.NoError(t, err)
			})
		})
	}
}

func TestDevicesRepository_KeepsDriverErrorsReachable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		driverErr error
	}{
		{name: "cancelled request", driverErr: context.Canceled},
		{name: "deadline exceeded", driverErr: context.DeadlineExceeded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runRepoTest(t, func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta(selectByIDSQL)).
					WithArgs(int64(5), false).
					WillReturnError(tc.driverErr)
			}, func(t *testing.T, repo *repos.DevicesRepository) {
				_, err := repo.FetchByID(t.Context(), 5)

				require.ErrorIs(t, err, model.ErrDatabaseQuery)
				require.ErrorIs(t, err, tc.driverErr)
			})
		})
	}
}
