package erpdb

import (
	"context"

	cerr "github.com/cockroachdb/errors"
)

const colorsForWorkcellQuery = `
SELECT DISTINCT joud.FinishColor_c AS FinishColor
FROM Erp.JobOper jo
INNER JOIN Erp.JobHead jh ON jo.Company = jh.Company AND jo.JobNum = jh.JobNum
LEFT JOIN Erp.JobOper_UD joud ON jo.SysRowID = joud.ForeignSysRowID
WHERE jh.JobComplete = 0
  AND jh.JobReleased = 1
  AND jo.OpCode IN (?)
  AND jo.OpComplete = 0
  AND jo.LaborEntryMethod != 'B'
  AND joud.FinishColor_c IS NOT NULL
  AND joud.FinishColor_c != ''
ORDER BY joud.FinishColor_c`

// ColorsForWorkcell lists the distinct finish colors on the work cell's
// visible jobs. Feeds the color filter dropdown.
func (s *Store) ColorsForWorkcell(ctx context.Context, ops []string) ([]ColorRef, error) {
	if len(ops) == 0 {
		return []ColorRef{}, nil
	}
	query, args, err := s.inQuery(colorsForWorkcellQuery, ops)
	if err != nil {
		return nil, err
	}
	colors := []ColorRef{}
	if err := s.db.SelectContext(ctx, &colors, query, args...); err != nil {
		return nil, cerr.Wrap(err, "query workcell colors")
	}
	return colors, nil
}

const jobsUsingColorQuery = `
SELECT DISTINCT
    jo.JobNum + '-' + CAST(jo.AssemblySeq AS VARCHAR) + '-' + CAST(jo.OprSeq AS VARCHAR) AS JobKey
FROM Erp.JobOper jo
INNER JOIN Erp.JobHead jh ON jo.Company = jh.Company AND jo.JobNum = jh.JobNum
LEFT JOIN Erp.JobOper_UD joud ON jo.SysRowID = joud.ForeignSysRowID
WHERE jh.JobComplete = 0
  AND jh.JobReleased = 1
  AND jo.OpCode IN (?)
  AND jo.OpComplete = 0
  AND jo.LaborEntryMethod != 'B'
  AND joud.FinishColor_c = ?`

// JobsUsingColor returns the queue row keys with the given finish color.
func (s *Store) JobsUsingColor(ctx context.Context, ops []string, color string) ([]string, error) {
	if len(ops) == 0 {
		return []string{}, nil
	}
	query, args, err := s.inQuery(jobsUsingColorQuery, ops, color)
	if err != nil {
		return nil, err
	}
	keys := []string{}
	if err := s.db.SelectContext(ctx, &keys, query, args...); err != nil {
		return nil, cerr.Wrap(err, "query jobs using color")
	}
	return keys, nil
}
