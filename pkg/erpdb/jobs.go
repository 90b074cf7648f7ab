package erpdb

import (
	"context"

	cerr "github.com/cockroachdb/errors"
)

// jobsQuery selects the queue rows for a set of operation codes.
//
// Readiness rules:
//  1. Job released and not complete.
//  2. Operation matches the work cell op codes, is incomplete, and is
//     not backflush.
//  3. Unless it is the first non-backflush operation on its assembly,
//     the prior non-backflush operation must have quantity completed.
//  4. For the final assembly (AssemblySeq 0), every sub-assembly's last
//     non-backflush operation must have quantity completed.
//
// Material status rolls up per owner operation. Backflush operations
// pass their materials forward to the next non-backflush operation;
// PAINT materials are excluded entirely.
const jobsQuery = `
WITH PriorOpQty AS (
    SELECT
        jo.Company,
        jo.JobNum,
        jo.AssemblySeq,
        jo.OprSeq,
        ISNULL(
            (SELECT TOP 1 jo_prior.QtyCompleted
             FROM Erp.JobOper jo_prior
             WHERE jo_prior.Company = jo.Company
               AND jo_prior.JobNum = jo.JobNum
               AND jo_prior.AssemblySeq = jo.AssemblySeq
               AND jo_prior.OprSeq < jo.OprSeq
               AND jo_prior.LaborEntryMethod != 'B'
             ORDER BY jo_prior.OprSeq DESC),
            0
        ) AS QtyFromPrior,
        CASE WHEN NOT EXISTS (
            SELECT 1 FROM Erp.JobOper jo_prior
            WHERE jo_prior.Company = jo.Company
              AND jo_prior.JobNum = jo.JobNum
              AND jo_prior.AssemblySeq = jo.AssemblySeq
              AND jo_prior.OprSeq < jo.OprSeq
              AND jo_prior.LaborEntryMethod != 'B'
        ) THEN 1 ELSE 0 END AS IsFirstOp
    FROM Erp.JobOper jo
    WHERE jo.LaborEntryMethod != 'B'
),
SubAsmComplete AS (
    SELECT
        jo.Company,
        jo.JobNum,
        CASE WHEN NOT EXISTS (
            SELECT 1
            FROM (
                SELECT Company, JobNum, AssemblySeq, MAX(OprSeq) AS LastOprSeq
                FROM Erp.JobOper
                WHERE AssemblySeq > 0
                  AND LaborEntryMethod != 'B'
                GROUP BY Company, JobNum, AssemblySeq
            ) last_ops
            INNER JOIN Erp.JobOper jo_last
                ON last_ops.Company = jo_last.Company
                AND last_ops.JobNum = jo_last.JobNum
                AND last_ops.AssemblySeq = jo_last.AssemblySeq
                AND last_ops.LastOprSeq = jo_last.OprSeq
            WHERE last_ops.Company = jo.Company
              AND last_ops.JobNum = jo.JobNum
              AND jo_last.QtyCompleted = 0
        ) THEN 1 ELSE 0 END AS AllSubAsmsReady
    FROM Erp.JobOper jo
    GROUP BY jo.Company, jo.JobNum
),
OpOwnership AS (
    SELECT
        jo.Company,
        jo.JobNum,
        jo.AssemblySeq,
        jo.OprSeq,
        jo.OpCode,
        jo.LaborEntryMethod,
        CASE
            WHEN jo.LaborEntryMethod != 'B' THEN jo.OprSeq
            ELSE (
                SELECT TOP 1 jo_next.OprSeq
                FROM Erp.JobOper jo_next
                WHERE jo_next.Company = jo.Company
                  AND jo_next.JobNum = jo.JobNum
                  AND jo_next.AssemblySeq = jo.AssemblySeq
                  AND jo_next.OprSeq > jo.OprSeq
                  AND jo_next.LaborEntryMethod != 'B'
                ORDER BY jo_next.OprSeq ASC
            )
        END AS OwnerOprSeq
    FROM Erp.JobOper jo
),
MaterialAgg AS (
    SELECT
        jm.Company,
        jm.JobNum,
        jm.AssemblySeq,
        oo.OwnerOprSeq AS RelatedOperation,
        COUNT(*) AS TotalMtls,
        SUM(CASE
            WHEN ISNULL(pq.OnHandQty, 0) >= ISNULL(pq.DemandQty, jm.RequiredQty) THEN 1
            ELSE 0
        END) AS StarMtls,
        SUM(CASE
            WHEN ISNULL(pq.OnHandQty, 0) >= jm.RequiredQty
                 AND ISNULL(pq.OnHandQty, 0) < ISNULL(pq.DemandQty, jm.RequiredQty + 1) THEN 1
            ELSE 0
        END) AS CheckMtls,
        SUM(CASE
            WHEN ISNULL(pq.OnHandQty, 0) > 0
                 AND ISNULL(pq.OnHandQty, 0) < jm.RequiredQty THEN 1
            ELSE 0
        END) AS PartialMtls,
        SUM(CASE
            WHEN ISNULL(pq.OnHandQty, 0) = 0 THEN 1
            ELSE 0
        END) AS NoneMtls
    FROM Erp.JobMtl jm
    INNER JOIN OpOwnership oo
        ON jm.Company = oo.Company
        AND jm.JobNum = oo.JobNum
        AND jm.AssemblySeq = oo.AssemblySeq
        AND jm.RelatedOperation = oo.OprSeq
    LEFT JOIN (
        SELECT Company, PartNum,
               SUM(OnHandQty) AS OnHandQty,
               SUM(DemandQty) AS DemandQty
        FROM Erp.PartQty
        GROUP BY Company, PartNum
    ) pq ON jm.Company = pq.Company AND jm.PartNum = pq.PartNum
    WHERE jm.RequiredQty > 0
      AND oo.OpCode != 'PAINT'
      AND oo.OwnerOprSeq IS NOT NULL
    GROUP BY jm.Company, jm.JobNum, jm.AssemblySeq, oo.OwnerOprSeq
)
SELECT
    jh.JobNum,
    CASE WHEN jo.AssemblySeq > 0 THEN ja.PartNum ELSE jh.PartNum END AS PartNum,
    CASE WHEN jo.AssemblySeq > 0 THEN pa.PartDescription ELSE p.PartDescription END AS PartDescription,
    CASE WHEN jo.AssemblySeq > 0 THEN ja.RequiredQty ELSE jh.ProdQty END AS ProdQty,
    jh.SchedCode AS Priority,
    jo.OprSeq,
    jo.OpCode,
    jo.OpDesc,
    jo.AssemblySeq,
    jo.QtyCompleted AS QtyCompletedThisOp,
    jh.ProdQty - jo.QtyCompleted AS QtyLeft,
    jo.EstProdHours AS OpHours,
    jo.ProdStandard AS CycleTime,
    jo.CommentText AS Notes,
    joud.FinalLocation_c AS NextLocation,
    joud.Finish_c AS Material,
    joud.FinishColor_c AS FinishColor,
    joud.PrepTime_c AS PrepTime,
    joud.MachineLoadTime_c AS MachLoad,
    joud.MachineRunTime_c AS MachRun,
    joud.MachineUnloadTime_c AS MachUnload,
    joud.MachProgramNum_c AS MachProgram,
    poq.QtyFromPrior,
    poq.IsFirstOp,
    CONVERT(VARCHAR(10), jh.ReqDueDate, 23) AS ReqDueDate,
    CONVERT(VARCHAR(10), jh.StartDate, 23) AS StartDate,
    CONVERT(VARCHAR(10), jh.DueDate, 23) AS DueDate,
    DATEDIFF(day, GETDATE(), jh.ReqDueDate) AS DaysUntilDue,
    CASE
        WHEN ma.TotalMtls IS NULL OR ma.TotalMtls = 0 THEN 'none'
        WHEN ma.NoneMtls > 0 THEN 'missing'
        WHEN ma.PartialMtls > 0 THEN 'partial'
        WHEN ma.CheckMtls > 0 THEN 'check'
        WHEN ma.StarMtls = ma.TotalMtls THEN 'star'
        ELSE 'none'
    END AS MtlStatus,
    ISNULL(ma.TotalMtls, 0) AS TotalMtls
FROM Erp.JobHead jh
INNER JOIN Erp.JobOper jo
    ON jh.Company = jo.Company AND jh.JobNum = jo.JobNum
LEFT JOIN Erp.JobOper_UD joud
    ON jo.SysRowID = joud.ForeignSysRowID
INNER JOIN PriorOpQty poq
    ON jo.Company = poq.Company
    AND jo.JobNum = poq.JobNum
    AND jo.AssemblySeq = poq.AssemblySeq
    AND jo.OprSeq = poq.OprSeq
INNER JOIN SubAsmComplete sac
    ON jo.Company = sac.Company
    AND jo.JobNum = sac.JobNum
LEFT JOIN Erp.Part p
    ON jh.Company = p.Company AND jh.PartNum = p.PartNum
LEFT JOIN Erp.JobAsmbl ja
    ON jo.Company = ja.Company AND jo.JobNum = ja.JobNum AND jo.AssemblySeq = ja.AssemblySeq
LEFT JOIN Erp.Part pa
    ON ja.Company = pa.Company AND ja.PartNum = pa.PartNum
LEFT JOIN MaterialAgg ma
    ON jo.Company = ma.Company
    AND jo.JobNum = ma.JobNum
    AND jo.AssemblySeq = ma.AssemblySeq
    AND jo.OprSeq = ma.RelatedOperation
WHERE jh.JobComplete = 0
  AND jh.JobReleased = 1
  AND jo.OpCode IN (?)
  AND jo.OpComplete = 0
  AND jo.LaborEntryMethod != 'B'
  AND (poq.IsFirstOp = 1 OR poq.QtyFromPrior > 0)
  AND (jo.AssemblySeq > 0 OR sac.AllSubAsmsReady = 1)
ORDER BY
    jh.StartDate ASC,
    jh.JobNum ASC,
    jo.AssemblySeq ASC,
    jo.OprSeq ASC`

// JobsForWorkcell returns the queue rows for the given op codes,
// ordered by start date. An empty op set yields an empty queue.
func (s *Store) JobsForWorkcell(ctx context.Context, ops []string) ([]Job, error) {
	if len(ops) == 0 {
		return []Job{}, nil
	}

	query, args, err := s.inQuery(jobsQuery, ops)
	if err != nil {
		return nil, err
	}

	jobs := []Job{}
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, cerr.Wrap(err, "query workcell jobs")
	}
	return jobs, nil
}

// JobsWithDetails returns the queue rows with operations and materials
// attached. Three bulk queries replace per-row subqueries.
func (s *Store) JobsWithDetails(ctx context.Context, ops []string) ([]Job, error) {
	jobs, err := s.JobsForWorkcell(ctx, ops)
	if err != nil || len(jobs) == 0 {
		return jobs, err
	}

	seen := map[string]bool{}
	jobNums := []string{}
	for _, j := range jobs {
		if !seen[j.JobNum] {
			seen[j.JobNum] = true
			jobNums = append(jobNums, j.JobNum)
		}
	}

	operations, err := s.BulkOperations(ctx, jobNums)
	if err != nil {
		return nil, err
	}
	materials, err := s.BulkMaterials(ctx, jobNums)
	if err != nil {
		return nil, err
	}

	for i := range jobs {
		jobs[i].Operations = operations[jobs[i].JobNum]
		jobs[i].Materials = materials[jobs[i].Key()]
	}
	return jobs, nil
}
