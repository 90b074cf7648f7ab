package erpdb

import (
	"context"
	"fmt"

	cerr "github.com/cockroachdb/errors"
)

// opRow is the minimal routing row used to assign material ownership.
type opRow struct {
	JobNum           string `db:"JobNum"`
	AssemblySeq      int    `db:"AssemblySeq"`
	OprSeq           int    `db:"OprSeq"`
	OpCode           string `db:"OpCode"`
	LaborEntryMethod string `db:"LaborEntryMethod"`
}

type opKey struct {
	JobNum      string
	AssemblySeq int
	OprSeq      int
}

func (k opKey) String() string {
	return fmt.Sprintf("%s-%d-%d", k.JobNum, k.AssemblySeq, k.OprSeq)
}

// assignOwnership walks each assembly's routing in sequence and maps
// every visible (non-backflush) operation to the operations whose
// materials it owns: the runs of backflush operations since the last
// visible one, plus itself. PAINT backflush materials are dropped.
// Rows must arrive ordered by job, assembly, operation sequence.
func assignOwnership(ops []opRow) map[opKey][]opKey {
	type asmKey struct {
		JobNum      string
		AssemblySeq int
	}

	byAssembly := map[asmKey][]opRow{}
	order := []asmKey{}
	for _, op := range ops {
		key := asmKey{op.JobNum, op.AssemblySeq}
		if _, ok := byAssembly[key]; !ok {
			order = append(order, key)
		}
		byAssembly[key] = append(byAssembly[key], op)
	}

	ownership := map[opKey][]opKey{}
	for _, key := range order {
		pending := []opKey{}
		for _, op := range byAssembly[key] {
			ref := opKey{op.JobNum, op.AssemblySeq, op.OprSeq}
			if op.LaborEntryMethod == "B" {
				if op.OpCode != "PAINT" {
					pending = append(pending, ref)
				}
				continue
			}
			ownership[ref] = append(pending, ref)
			pending = []opKey{}
		}
	}
	return ownership
}

const allOpsQuery = `
SELECT JobNum, AssemblySeq, OprSeq, OpCode, LaborEntryMethod
FROM Erp.JobOper
WHERE JobNum IN (?)
ORDER BY JobNum, AssemblySeq, OprSeq`

const bulkMaterialsQuery = `
SELECT jm.JobNum, jm.AssemblySeq, jm.RelatedOperation AS OprSeq,
       jm.MtlSeq, jm.PartNum, p.PartDescription, jm.RequiredQty,
       ISNULL(jm.IUM, p.IUM) AS ReqUOM, p.IUM AS OnHandUOM,
       jo.OpCode AS SourceOpCode
FROM Erp.JobMtl jm
LEFT JOIN Erp.Part p ON jm.Company = p.Company AND jm.PartNum = p.PartNum
INNER JOIN Erp.JobOper jo ON jm.Company = jo.Company
    AND jm.JobNum = jo.JobNum
    AND jm.AssemblySeq = jo.AssemblySeq
    AND jm.RelatedOperation = jo.OprSeq
WHERE jm.JobNum IN (?)
  AND jm.RequiredQty > 0
  AND jo.OpCode != 'PAINT'
ORDER BY jm.JobNum, jm.AssemblySeq, jm.RelatedOperation, jm.MtlSeq`

const inventoryQuery = `
SELECT PartNum, SUM(OnHandQty) AS OnHandQty, SUM(DemandQty) AS DemandQty
FROM Erp.PartQty
WHERE PartNum IN (?)
GROUP BY PartNum`

type inventoryRow struct {
	PartNum   string  `db:"PartNum"`
	OnHandQty float64 `db:"OnHandQty"`
	DemandQty float64 `db:"DemandQty"`
}

// BulkMaterials fetches materials with inventory for a set of jobs,
// keyed by "JobNum-AssemblySeq-OprSeq" of the owning visible operation.
// Materials on backflush operations roll forward to the next visible
// operation on the same assembly.
func (s *Store) BulkMaterials(ctx context.Context, jobNums []string) (map[string][]Material, error) {
	if len(jobNums) == 0 {
		return map[string][]Material{}, nil
	}

	query, args, err := s.inQuery(allOpsQuery, jobNums)
	if err != nil {
		return nil, err
	}
	ops := []opRow{}
	if err := s.db.SelectContext(ctx, &ops, query, args...); err != nil {
		return nil, cerr.Wrap(err, "query routing for material ownership")
	}
	ownership := assignOwnership(ops)

	query, args, err = s.inQuery(bulkMaterialsQuery, jobNums)
	if err != nil {
		return nil, err
	}
	materials := []Material{}
	if err := s.db.SelectContext(ctx, &materials, query, args...); err != nil {
		return nil, cerr.Wrap(err, "query bulk materials")
	}
	if len(materials) == 0 {
		return map[string][]Material{}, nil
	}

	inventory, err := s.inventoryByPart(ctx, partNums(materials))
	if err != nil {
		return nil, err
	}

	bySource := map[opKey][]Material{}
	for _, m := range materials {
		inv := inventory[m.PartNum]
		m.OnHandQty = inv.OnHandQty
		m.DemandQty = inv.DemandQty
		key := opKey{m.JobNum, m.AssemblySeq, m.OprSeq}
		bySource[key] = append(bySource[key], m)
	}

	result := map[string][]Material{}
	for visible, sources := range ownership {
		merged := []Material{}
		for _, source := range sources {
			merged = append(merged, bySource[source]...)
		}
		result[visible.String()] = merged
	}
	return result, nil
}

func partNums(materials []Material) []string {
	seen := map[string]bool{}
	parts := []string{}
	for _, m := range materials {
		if !seen[m.PartNum] {
			seen[m.PartNum] = true
			parts = append(parts, m.PartNum)
		}
	}
	return parts
}

func (s *Store) inventoryByPart(ctx context.Context, parts []string) (map[string]inventoryRow, error) {
	if len(parts) == 0 {
		return map[string]inventoryRow{}, nil
	}
	query, args, err := s.inQuery(inventoryQuery, parts)
	if err != nil {
		return nil, err
	}
	rows := []inventoryRow{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, cerr.Wrap(err, "query part inventory")
	}
	byPart := map[string]inventoryRow{}
	for _, row := range rows {
		byPart[row.PartNum] = row
	}
	return byPart, nil
}

const jobMaterialsQuery = `
SELECT
    jm.MtlSeq,
    jm.PartNum,
    p.PartDescription,
    jm.RequiredQty,
    ISNULL(jm.IUM, p.IUM) AS ReqUOM,
    p.IUM AS OnHandUOM
FROM Erp.JobMtl jm
LEFT JOIN Erp.Part p ON jm.Company = p.Company AND jm.PartNum = p.PartNum
WHERE jm.JobNum = @p1
  AND jm.AssemblySeq = @p2
  AND jm.RelatedOperation = @p3
  AND jm.RequiredQty > 0
ORDER BY jm.MtlSeq`

// JobMaterials returns the material detail lines for one operation,
// with inventory coverage status and shortage per line.
func (s *Store) JobMaterials(ctx context.Context, jobNum string, assemblySeq, oprSeq int) ([]Material, error) {
	materials := []Material{}
	if err := s.db.SelectContext(ctx, &materials, jobMaterialsQuery, jobNum, assemblySeq, oprSeq); err != nil {
		return nil, cerr.Wrap(err, "query job materials")
	}
	if len(materials) == 0 {
		return materials, nil
	}

	inventory, err := s.inventoryByPart(ctx, partNums(materials))
	if err != nil {
		return nil, err
	}

	for i := range materials {
		m := &materials[i]
		inv := inventory[m.PartNum]
		m.OnHandQty = inv.OnHandQty
		m.DemandQty = inv.DemandQty
		m.DemandUOM = m.OnHandUOM
		m.Status = MaterialStatus(inv.OnHandQty, m.RequiredQty, inv.DemandQty)
		m.QtyShort = QtyShort(m.RequiredQty, inv.OnHandQty)
	}
	return materials, nil
}

const materialsForWorkcellQuery = `
WITH VisibleOps AS (
    SELECT jo.Company, jo.JobNum, jo.AssemblySeq, jo.OprSeq
    FROM Erp.JobOper jo
    INNER JOIN Erp.JobHead jh ON jo.Company = jh.Company AND jo.JobNum = jh.JobNum
    WHERE jh.JobComplete = 0
      AND jh.JobReleased = 1
      AND jo.OpCode IN (?)
      AND jo.OpComplete = 0
      AND jo.LaborEntryMethod != 'B'
),
BackflushOps AS (
    SELECT jo.Company, jo.JobNum, jo.AssemblySeq, jo.OprSeq
    FROM Erp.JobOper jo
    INNER JOIN VisibleOps vo
        ON jo.Company = vo.Company
        AND jo.JobNum = vo.JobNum
        AND jo.AssemblySeq = vo.AssemblySeq
    WHERE jo.LaborEntryMethod = 'B'
      AND jo.OpCode != 'PAINT'
      AND jo.OprSeq < vo.OprSeq
      AND jo.OprSeq > ISNULL(
          (SELECT MAX(jo2.OprSeq)
           FROM Erp.JobOper jo2
           WHERE jo2.Company = vo.Company
             AND jo2.JobNum = vo.JobNum
             AND jo2.AssemblySeq = vo.AssemblySeq
             AND jo2.OprSeq < vo.OprSeq
             AND jo2.LaborEntryMethod != 'B'), 0)
),
AllRelevantOps AS (
    SELECT Company, JobNum, AssemblySeq, OprSeq FROM VisibleOps
    UNION
    SELECT Company, JobNum, AssemblySeq, OprSeq FROM BackflushOps
)
SELECT DISTINCT jm.PartNum,
       REPLACE(p.PartDescription, ' - die billet ungrooved', '') AS PartDescription
FROM Erp.JobMtl jm
INNER JOIN AllRelevantOps aro
    ON jm.Company = aro.Company
    AND jm.JobNum = aro.JobNum
    AND jm.AssemblySeq = aro.AssemblySeq
    AND jm.RelatedOperation = aro.OprSeq
LEFT JOIN Erp.Part p
    ON jm.Company = p.Company AND jm.PartNum = p.PartNum
WHERE jm.RequiredQty > 0
ORDER BY PartDescription, jm.PartNum`

// MaterialsForWorkcell lists the distinct material parts used by the
// work cell's visible jobs, including backflush-owned materials. Feeds
// the material filter dropdown.
func (s *Store) MaterialsForWorkcell(ctx context.Context, ops []string) ([]PartRef, error) {
	if len(ops) == 0 {
		return []PartRef{}, nil
	}
	query, args, err := s.inQuery(materialsForWorkcellQuery, ops)
	if err != nil {
		return nil, err
	}
	parts := []PartRef{}
	if err := s.db.SelectContext(ctx, &parts, query, args...); err != nil {
		return nil, cerr.Wrap(err, "query workcell materials")
	}
	return parts, nil
}

const jobsUsingMaterialQuery = `
WITH VisibleOps AS (
    SELECT jo.Company, jo.JobNum, jo.AssemblySeq, jo.OprSeq
    FROM Erp.JobOper jo
    INNER JOIN Erp.JobHead jh ON jo.Company = jh.Company AND jo.JobNum = jh.JobNum
    WHERE jh.JobComplete = 0
      AND jh.JobReleased = 1
      AND jo.OpCode IN (?)
      AND jo.OpComplete = 0
      AND jo.LaborEntryMethod != 'B'
),
BackflushOps AS (
    SELECT jo.Company, jo.JobNum, jo.AssemblySeq, jo.OprSeq, vo.OprSeq AS OwnerOprSeq
    FROM Erp.JobOper jo
    INNER JOIN VisibleOps vo
        ON jo.Company = vo.Company
        AND jo.JobNum = vo.JobNum
        AND jo.AssemblySeq = vo.AssemblySeq
    WHERE jo.LaborEntryMethod = 'B'
      AND jo.OpCode != 'PAINT'
      AND jo.OprSeq < vo.OprSeq
      AND jo.OprSeq > ISNULL(
          (SELECT MAX(jo2.OprSeq)
           FROM Erp.JobOper jo2
           WHERE jo2.Company = vo.Company
             AND jo2.JobNum = vo.JobNum
             AND jo2.AssemblySeq = vo.AssemblySeq
             AND jo2.OprSeq < vo.OprSeq
             AND jo2.LaborEntryMethod != 'B'), 0)
),
AllRelevantOps AS (
    SELECT Company, JobNum, AssemblySeq, OprSeq, OprSeq AS OwnerOprSeq FROM VisibleOps
    UNION
    SELECT Company, JobNum, AssemblySeq, OprSeq, OwnerOprSeq FROM BackflushOps
)
SELECT DISTINCT
    aro.JobNum + '-' + CAST(aro.AssemblySeq AS VARCHAR) + '-' + CAST(aro.OwnerOprSeq AS VARCHAR) AS JobKey
FROM Erp.JobMtl jm
INNER JOIN AllRelevantOps aro
    ON jm.Company = aro.Company
    AND jm.JobNum = aro.JobNum
    AND jm.AssemblySeq = aro.AssemblySeq
    AND jm.RelatedOperation = aro.OprSeq
WHERE jm.PartNum = ?
  AND jm.RequiredQty > 0`

// JobsUsingMaterial returns the queue row keys whose owned materials
// include the given part. Feeds the material filter.
func (s *Store) JobsUsingMaterial(ctx context.Context, ops []string, partNum string) ([]string, error) {
	if len(ops) == 0 {
		return []string{}, nil
	}
	query, args, err := s.inQuery(jobsUsingMaterialQuery, ops, partNum)
	if err != nil {
		return nil, err
	}
	keys := []string{}
	if err := s.db.SelectContext(ctx, &keys, query, args...); err != nil {
		return nil, cerr.Wrap(err, "query jobs using material")
	}
	return keys, nil
}
