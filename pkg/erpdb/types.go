package erpdb

import "fmt"

// Material status values, ordered from best to worst coverage.
const (
	// StatusStar means on-hand stock covers the total shop demand.
	StatusStar = "star"
	// StatusCheck means on-hand covers this job but not all demand.
	StatusCheck = "check"
	// StatusPartial means some stock exists but less than this job needs.
	StatusPartial = "partial"
	// StatusMissing means no stock at all.
	StatusMissing = "missing"
	// StatusNone means the operation needs no materials.
	StatusNone = "none"
)

// Job is one queue row: an incomplete operation on a released job that
// is ready for its work cell.
type Job struct {
	JobNum             string   `db:"JobNum" json:"JobNum"`
	PartNum            string   `db:"PartNum" json:"PartNum"`
	PartDescription    *string  `db:"PartDescription" json:"PartDescription"`
	ProdQty            float64  `db:"ProdQty" json:"ProdQty"`
	Priority           *string  `db:"Priority" json:"Priority"`
	OprSeq             int      `db:"OprSeq" json:"OprSeq"`
	OpCode             string   `db:"OpCode" json:"OpCode"`
	OpDesc             string   `db:"OpDesc" json:"OpDesc"`
	AssemblySeq        int      `db:"AssemblySeq" json:"AssemblySeq"`
	QtyCompletedThisOp float64  `db:"QtyCompletedThisOp" json:"QtyCompletedThisOp"`
	QtyLeft            float64  `db:"QtyLeft" json:"QtyLeft"`
	OpHours            float64  `db:"OpHours" json:"OpHours"`
	CycleTime          float64  `db:"CycleTime" json:"CycleTime"`
	Notes              *string  `db:"Notes" json:"Notes"`
	NextLocation       *string  `db:"NextLocation" json:"NextLocation"`
	Material           *string  `db:"Material" json:"Material"`
	FinishColor        *string  `db:"FinishColor" json:"FinishColor"`
	PrepTime           *float64 `db:"PrepTime" json:"PrepTime"`
	MachLoad           *float64 `db:"MachLoad" json:"MachLoad"`
	MachRun            *float64 `db:"MachRun" json:"MachRun"`
	MachUnload         *float64 `db:"MachUnload" json:"MachUnload"`
	MachProgram        *string  `db:"MachProgram" json:"MachProgram"`
	QtyFromPrior       float64  `db:"QtyFromPrior" json:"QtyFromPrior"`
	IsFirstOp          int      `db:"IsFirstOp" json:"IsFirstOp"`
	ReqDueDate         *string  `db:"ReqDueDate" json:"ReqDueDate"`
	StartDate          *string  `db:"StartDate" json:"StartDate"`
	DueDate            *string  `db:"DueDate" json:"DueDate"`
	DaysUntilDue       *int     `db:"DaysUntilDue" json:"DaysUntilDue"`
	MtlStatus          string   `db:"MtlStatus" json:"MtlStatus"`
	TotalMtls          int      `db:"TotalMtls" json:"TotalMtls"`

	// Filled by JobsWithDetails.
	Operations []Operation `db:"-" json:"Operations,omitempty"`
	Materials  []Material  `db:"-" json:"Materials,omitempty"`
}

// Key identifies the queue row across refreshes.
func (j Job) Key() string {
	return fmt.Sprintf("%s-%d-%d", j.JobNum, j.AssemblySeq, j.OprSeq)
}

// Operation is one routing step on a job.
type Operation struct {
	JobNum        string  `db:"JobNum" json:"JobNum,omitempty"`
	AssemblySeq   int     `db:"AssemblySeq" json:"AssemblySeq"`
	OprSeq        int     `db:"OprSeq" json:"OprSeq"`
	OpCode        string  `db:"OpCode" json:"OpCode"`
	OpDesc        string  `db:"OpDesc" json:"OpDesc"`
	QtyCompleted  float64 `db:"QtyCompleted" json:"QtyCompleted"`
	OpComplete    int     `db:"OpComplete" json:"OpComplete"`
	ProdStandard  float64 `db:"ProdStandard" json:"ProdStandard"`
	LastEntryDate *string `db:"LastEntryDate" json:"LastEntryDate,omitempty"`
}

// Material is one required material line with inventory figures.
type Material struct {
	JobNum          string  `db:"JobNum" json:"JobNum,omitempty"`
	AssemblySeq     int     `db:"AssemblySeq" json:"AssemblySeq,omitempty"`
	OprSeq          int     `db:"OprSeq" json:"OprSeq,omitempty"`
	MtlSeq          int     `db:"MtlSeq" json:"MtlSeq"`
	PartNum         string  `db:"PartNum" json:"PartNum"`
	PartDescription *string `db:"PartDescription" json:"PartDescription"`
	RequiredQty     float64 `db:"RequiredQty" json:"RequiredQty"`
	ReqUOM          *string `db:"ReqUOM" json:"ReqUOM"`
	OnHandUOM       *string `db:"OnHandUOM" json:"OnHandUOM"`
	SourceOpCode    *string `db:"SourceOpCode" json:"SourceOpCode,omitempty"`
	OnHandQty       float64 `db:"-" json:"OnHandQty"`
	DemandQty       float64 `db:"-" json:"DemandQty"`
	DemandUOM       *string `db:"-" json:"DemandUOM,omitempty"`
	Status          string  `db:"-" json:"Status,omitempty"`
	QtyShort        float64 `db:"-" json:"QtyShort"`
}

// JobHeader is the job summary shown in the detail panel.
type JobHeader struct {
	JobNum          string  `db:"JobNum" json:"JobNum"`
	PartNum         string  `db:"PartNum" json:"PartNum"`
	PartDescription *string `db:"PartDescription" json:"PartDescription"`
	ProdQty         float64 `db:"ProdQty" json:"ProdQty"`
	StartDate       *string `db:"StartDate" json:"StartDate"`
	ReqDueDate      *string `db:"ReqDueDate" json:"ReqDueDate"`
	DueDate         *string `db:"DueDate" json:"DueDate"`
}

// PartRef is one entry in the material filter dropdown.
type PartRef struct {
	PartNum         string  `db:"PartNum" json:"PartNum"`
	PartDescription *string `db:"PartDescription" json:"PartDescription"`
}

// ColorRef is one entry in the finish color filter dropdown.
type ColorRef struct {
	FinishColor string `db:"FinishColor" json:"FinishColor"`
}

// CheckIn is the most recent labor entry for a part.
type CheckIn struct {
	EmployeeNum  string  `db:"EmployeeNum" json:"EmployeeNum"`
	EmployeeName *string `db:"EmployeeName" json:"EmployeeName"`
	LaborQty     float64 `db:"LaborQty" json:"LaborQty"`
	ClockInDate  *string `db:"ClockInDate" json:"ClockInDate"`
	ClockInTime  float64 `db:"ClockInTime" json:"ClockInTime"`
	JobNum       string  `db:"JobNum" json:"JobNum"`
	OpCode       *string `db:"OpCode" json:"OpCode,omitempty"`
}

// MaterialStatus classifies inventory coverage for one material line.
// Demand of zero falls back to the line requirement so parts with no
// recorded shop demand still rate a star when covered.
func MaterialStatus(onHand, required, demand float64) string {
	if demand <= 0 {
		demand = required
	}
	switch {
	case onHand >= demand:
		return StatusStar
	case onHand >= required:
		return StatusCheck
	case onHand > 0:
		return StatusPartial
	default:
		return StatusMissing
	}
}

// QtyShort is how many units the line is short, never negative.
func QtyShort(required, onHand float64) float64 {
	if short := required - onHand; short > 0 {
		return short
	}
	return 0
}
