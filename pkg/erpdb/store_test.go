package erpdb

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(sqlx.NewDb(db, "sqlserver")), mock
}

func strptr(s string) *string { return &s }

func TestJobHeader(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT\s+jh\.JobNum`).
		WithArgs("J1234").
		WillReturnRows(sqlmock.NewRows([]string{
			"JobNum", "PartNum", "PartDescription", "ProdQty", "StartDate", "ReqDueDate", "DueDate",
		}).AddRow("J1234", "TB-100", "Tube bender frame", 25.0, "2026-08-01", "2026-09-15", "2026-09-20"))

	header, err := store.JobHeader(context.Background(), "J1234")
	require.NoError(t, err)
	require.NotNil(t, header)
	assert.Equal(t, "J1234", header.JobNum)
	assert.Equal(t, "TB-100", header.PartNum)
	assert.Equal(t, 25.0, header.ProdQty)
	assert.Equal(t, strptr("2026-09-15"), header.ReqDueDate)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobHeaderNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT\s+jh\.JobNum`).
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"JobNum"}))

	header, err := store.JobHeader(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, header)
}

func TestBulkOperationsGroupsByJob(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM Erp\.JobOper jo`).
		WithArgs("J1", "J2").
		WillReturnRows(sqlmock.NewRows([]string{
			"JobNum", "OprSeq", "OpCode", "OpDesc", "QtyCompleted",
			"OpComplete", "ProdStandard", "AssemblySeq", "LastEntryDate",
		}).
			AddRow("J1", 10, "SAW", "Saw to length", 5.0, 0, 12.0, 0, "2026-08-20").
			AddRow("J1", 20, "WELD", "Weld frame", 0.0, 0, 8.0, 0, nil).
			AddRow("J2", 10, "MILL", "Mill base", 2.0, 1, 4.0, 0, "2026-08-10"))

	grouped, err := store.BulkOperations(context.Background(), []string{"J1", "J2"})
	require.NoError(t, err)
	assert.Len(t, grouped["J1"], 2)
	assert.Len(t, grouped["J2"], 1)
	assert.Equal(t, "WELD", grouped["J1"][1].OpCode)
	assert.Nil(t, grouped["J1"][1].LastEntryDate)
}

func TestBulkOperationsEmptyInput(t *testing.T) {
	store, _ := newMockStore(t)

	grouped, err := store.BulkOperations(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, grouped)
}

func TestJobMaterialsComputesStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM Erp\.JobMtl jm`).
		WithArgs("J1", 0, 30).
		WillReturnRows(sqlmock.NewRows([]string{
			"MtlSeq", "PartNum", "PartDescription", "RequiredQty", "ReqUOM", "OnHandUOM",
		}).
			AddRow(10, "STEEL-1", "Steel plate", 10.0, "EA", "EA").
			AddRow(20, "BOLT-9", "Hex bolt", 40.0, "EA", "EA"))

	mock.ExpectQuery(`FROM Erp\.PartQty`).
		WithArgs("STEEL-1", "BOLT-9").
		WillReturnRows(sqlmock.NewRows([]string{"PartNum", "OnHandQty", "DemandQty"}).
			AddRow("STEEL-1", 4.0, 30.0).
			AddRow("BOLT-9", 500.0, 200.0))

	materials, err := store.JobMaterials(context.Background(), "J1", 0, 30)
	require.NoError(t, err)
	require.Len(t, materials, 2)

	assert.Equal(t, StatusPartial, materials[0].Status)
	assert.Equal(t, 6.0, materials[0].QtyShort)
	assert.Equal(t, StatusStar, materials[1].Status)
	assert.Equal(t, 0.0, materials[1].QtyShort)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobsForWorkcellEmptyOps(t *testing.T) {
	store, _ := newMockStore(t)

	jobs, err := store.JobsForWorkcell(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
