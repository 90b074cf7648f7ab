package erpdb

import (
	"context"
	"database/sql"

	cerr "github.com/cockroachdb/errors"
)

const bulkOperationsQuery = `
SELECT jo.JobNum, jo.OprSeq, jo.OpCode, jo.OpDesc, jo.QtyCompleted,
       CAST(jo.OpComplete AS INT) AS OpComplete, jo.ProdStandard, jo.AssemblySeq,
       CONVERT(VARCHAR(10),
           (SELECT MAX(ld.ClockInDate)
            FROM Erp.LaborDtl ld
            WHERE ld.JobNum = jo.JobNum
              AND ld.AssemblySeq = jo.AssemblySeq
              AND ld.OprSeq = jo.OprSeq
              AND ld.LaborQty > 0), 23) AS LastEntryDate
FROM Erp.JobOper jo
WHERE jo.JobNum IN (?)
  AND jo.LaborEntryMethod != 'B'
ORDER BY jo.JobNum, jo.AssemblySeq DESC, jo.OprSeq ASC`

// BulkOperations fetches every non-backflush operation for a set of
// jobs in one query, grouped by job number.
func (s *Store) BulkOperations(ctx context.Context, jobNums []string) (map[string][]Operation, error) {
	if len(jobNums) == 0 {
		return map[string][]Operation{}, nil
	}

	query, args, err := s.inQuery(bulkOperationsQuery, jobNums)
	if err != nil {
		return nil, err
	}

	rows := []Operation{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, cerr.Wrap(err, "query bulk operations")
	}

	grouped := map[string][]Operation{}
	for _, row := range rows {
		grouped[row.JobNum] = append(grouped[row.JobNum], row)
	}
	return grouped, nil
}

const jobOperationsQuery = `
SELECT
    jo.AssemblySeq,
    jo.OprSeq,
    jo.OpCode,
    jo.OpDesc,
    jo.QtyCompleted,
    CAST(jo.OpComplete AS INT) AS OpComplete,
    jo.ProdStandard
FROM Erp.JobOper jo
WHERE jo.JobNum = @p1
  AND jo.LaborEntryMethod != 'B'
ORDER BY jo.AssemblySeq DESC, jo.OprSeq ASC`

// JobOperations returns the non-backflush routing for one job.
func (s *Store) JobOperations(ctx context.Context, jobNum string) ([]Operation, error) {
	rows := []Operation{}
	if err := s.db.SelectContext(ctx, &rows, jobOperationsQuery, jobNum); err != nil {
		return nil, cerr.Wrap(err, "query job operations")
	}
	return rows, nil
}

const jobHeaderQuery = `
SELECT
    jh.JobNum,
    jh.PartNum,
    p.PartDescription,
    jh.ProdQty,
    CONVERT(VARCHAR(10), jh.StartDate, 23) AS StartDate,
    CONVERT(VARCHAR(10), jh.ReqDueDate, 23) AS ReqDueDate,
    CONVERT(VARCHAR(10), jh.DueDate, 23) AS DueDate
FROM Erp.JobHead jh
LEFT JOIN Erp.Part p ON jh.Company = p.Company AND jh.PartNum = p.PartNum
WHERE jh.JobNum = @p1`

// JobHeader returns the summary row for one job, nil when unknown.
func (s *Store) JobHeader(ctx context.Context, jobNum string) (*JobHeader, error) {
	var header JobHeader
	err := s.db.GetContext(ctx, &header, jobHeaderQuery, jobNum)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerr.Wrap(err, "query job header")
	}
	return &header, nil
}

const lastCheckinQuery = `
SELECT TOP 1
    ld.EmployeeNum,
    e.Name AS EmployeeName,
    ld.LaborQty,
    CONVERT(VARCHAR(10), ld.ClockInDate, 23) AS ClockInDate,
    ld.ClockInTime,
    ld.JobNum
FROM Erp.LaborDtl ld
INNER JOIN Erp.JobAsmbl ja ON ld.Company = ja.Company
    AND ld.JobNum = ja.JobNum
    AND ld.AssemblySeq = ja.AssemblySeq
LEFT JOIN Erp.EmpBasic e ON ld.Company = e.Company AND ld.EmployeeNum = e.EmpID
WHERE ja.PartNum = @p1
  AND ld.LaborQty > 0
ORDER BY ld.ClockInDate DESC, ld.ClockInTime DESC`

const lastCheckinAtOpQuery = `
SELECT TOP 1
    ld.EmployeeNum,
    e.Name AS EmployeeName,
    ld.LaborQty,
    CONVERT(VARCHAR(10), ld.ClockInDate, 23) AS ClockInDate,
    ld.ClockInTime,
    ld.JobNum,
    jo.OpCode
FROM Erp.LaborDtl ld
INNER JOIN Erp.JobAsmbl ja ON ld.Company = ja.Company
    AND ld.JobNum = ja.JobNum
    AND ld.AssemblySeq = ja.AssemblySeq
INNER JOIN Erp.JobOper jo ON ld.Company = jo.Company AND ld.JobNum = jo.JobNum
    AND ld.AssemblySeq = jo.AssemblySeq AND ld.OprSeq = jo.OprSeq
LEFT JOIN Erp.EmpBasic e ON ld.Company = e.Company AND ld.EmployeeNum = e.EmpID
WHERE ja.PartNum = @p1
  AND jo.OpCode = @p2
  AND ld.LaborQty > 0
ORDER BY ld.ClockInDate DESC, ld.ClockInTime DESC`

// LastCheckin finds the most recent labor entry against a part number,
// optionally narrowed to one operation code. The assembly join makes it
// work for both header parts and sub-assemblies. Nil when no labor
// exists.
func (s *Store) LastCheckin(ctx context.Context, partNum, opCode string) (*CheckIn, error) {
	var (
		checkin CheckIn
		err     error
	)
	if opCode != "" {
		err = s.db.GetContext(ctx, &checkin, lastCheckinAtOpQuery, partNum, opCode)
	} else {
		err = s.db.GetContext(ctx, &checkin, lastCheckinQuery, partNum)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerr.Wrap(err, "query last checkin")
	}
	return &checkin, nil
}
