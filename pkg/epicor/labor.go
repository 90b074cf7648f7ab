package epicor

import (
	"context"
	"fmt"
	"net/url"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// StartActivityRequest identifies the operation to start labor on.
type StartActivityRequest struct {
	EmployeeID    string
	JobNum        string
	AssemblySeq   int
	OprSeq        int
	OpCode        string
	ResourceGrpID string
	ResourceID    string
	JcDept        string
}

// ActivityHandle identifies a running labor transaction.
type ActivityHandle struct {
	LaborHedSeq float64 `json:"laborHedSeq"`
	LaborDtlSeq float64 `json:"laborDtlSeq"`
	Message     string  `json:"message"`
}

// StartActivity clocks the employee in and opens a labor detail on the
// given job operation. The LaborSvc chain is ClockIn, find the active
// LaborHed, GetByID, StartActivity, DefaultJobNum, DefaultOprSeq, then
// Update to commit.
func (c *Client) StartActivity(ctx context.Context, req StartActivityRequest) (*ActivityHandle, error) {
	logger := otelzap.Ctx(ctx)

	// Clock-in failure is tolerated; the employee may already be
	// clocked in. The LaborHed lookup below is authoritative.
	if _, err := c.post(ctx, "Erp.BO.EmpBasicSvc/ClockIn", map[string]interface{}{
		"employeeID": req.EmployeeID,
		"shift":      1,
	}); err != nil {
		logger.Debug("ClockIn reported an error, continuing", zap.Error(err))
	}

	filter := url.QueryEscape(fmt.Sprintf("EmployeeNum eq '%s' and ActiveTrans eq true", req.EmployeeID))
	active, err := c.get(ctx, fmt.Sprintf(
		"Erp.BO.LaborSvc/Labors?$filter=%s&$orderby=LaborHedSeq desc&$top=1", filter))
	if err != nil {
		return nil, cerr.Wrap(err, "find active LaborHed")
	}

	heds, _ := active["value"].([]interface{})
	if len(heds) == 0 {
		return nil, cerr.New("no active LaborHed found after clock in")
	}
	hed, _ := heds[0].(map[string]interface{})
	laborHedSeq := hed["LaborHedSeq"]

	result, err := c.post(ctx, "Erp.BO.LaborSvc/GetByID", map[string]interface{}{
		"laborHedSeq": laborHedSeq,
	})
	if err != nil {
		return nil, cerr.Wrap(err, "GetByID")
	}
	ds := returnDS(result)

	// Existing labor details must not be touched; StartActivity
	// creates a fresh one.
	ds.SetRows("LaborDtl", nil)

	result, err = c.post(ctx, "Erp.BO.LaborSvc/StartActivity", map[string]interface{}{
		"LaborHedSeq": laborHedSeq,
		"StartType":   "P",
		"ds":          ds,
	})
	if err != nil {
		return nil, cerr.Wrap(err, "StartActivity")
	}
	ds = paramsDS(result, ds)

	dtl := ds.FirstRow("LaborDtl")
	if dtl == nil {
		return nil, cerr.New("StartActivity created no LaborDtl record")
	}
	dtl["JobNum"] = req.JobNum
	if req.OpCode != "" {
		dtl["OpCode"] = req.OpCode
	}

	result, err = c.post(ctx, "Erp.BO.LaborSvc/DefaultJobNum", map[string]interface{}{
		"jobNum": req.JobNum,
		"ds":     ds,
	})
	if err != nil {
		return nil, cerr.Wrap(err, "DefaultJobNum")
	}
	ds = paramsDS(result, ds)

	if dtl = ds.FirstRow("LaborDtl"); dtl != nil {
		dtl["AssemblySeq"] = req.AssemblySeq
		dtl["OprSeq"] = req.OprSeq
	}

	result, err = c.post(ctx, "Erp.BO.LaborSvc/DefaultOprSeq", map[string]interface{}{
		"OprSeq": req.OprSeq,
		"ds":     ds,
	})
	if err == nil {
		ds = paramsDS(result, ds)
	} else {
		logger.Debug("DefaultOprSeq reported an error, continuing", zap.Error(err))
	}

	if dtl = ds.FirstRow("LaborDtl"); dtl != nil {
		if req.ResourceGrpID != "" {
			dtl["ResourceGrpID"] = req.ResourceGrpID
		}
		if req.ResourceID != "" {
			dtl["ResourceID"] = req.ResourceID
		}
		if req.JcDept != "" {
			dtl["JcDept"] = req.JcDept
		}
		dtl["Rework"] = false
	}

	result, err = c.post(ctx, "Erp.BO.LaborSvc/Update", map[string]interface{}{"ds": ds})
	if err != nil {
		return nil, cerr.Wrap(err, "Update")
	}
	final := paramsDS(result, ds)

	handle := &ActivityHandle{
		Message: fmt.Sprintf("Started activity on %s Op %d", req.JobNum, req.OprSeq),
	}
	if hed := final.FirstRow("LaborHed"); hed != nil {
		handle.LaborHedSeq, _ = hed["LaborHedSeq"].(float64)
	}
	if dtl := final.FirstRow("LaborDtl"); dtl != nil {
		handle.LaborDtlSeq, _ = dtl["LaborDtlSeq"].(float64)
		if handle.LaborHedSeq == 0 {
			handle.LaborHedSeq, _ = dtl["LaborHedSeq"].(float64)
		}
	}
	return handle, nil
}

// EndActivityRequest closes a labor transaction and reports quantity.
type EndActivityRequest struct {
	LaborHedSeq float64
	LaborDtlSeq float64
	LaborQty    float64
	ScrapQty    float64
	// Complete also marks the job operation complete.
	Complete bool
}

// EndActivity reports quantity against a labor detail and ends it.
func (c *Client) EndActivity(ctx context.Context, req EndActivityRequest) error {
	result, err := c.post(ctx, "Erp.BO.LaborSvc/GetByID", map[string]interface{}{
		"laborHedSeq": req.LaborHedSeq,
	})
	if err != nil {
		return cerr.Wrap(err, "GetByID")
	}
	ds := returnDS(result)

	var target map[string]interface{}
	for _, dtl := range ds.Rows("LaborDtl") {
		if seq, _ := dtl["LaborDtlSeq"].(float64); seq == req.LaborDtlSeq {
			target = dtl
			break
		}
	}
	if target == nil {
		return cerr.Newf("LaborDtl record %v not found", req.LaborDtlSeq)
	}

	target["LaborQty"] = req.LaborQty
	target["ScrapQty"] = req.ScrapQty
	target["RowMod"] = "U"
	if req.Complete {
		target["OpComplete"] = true
		target["Complete"] = true
	}

	result, err = c.post(ctx, "Erp.BO.LaborSvc/EndActivity", map[string]interface{}{"ds": ds})
	if err != nil {
		return cerr.Wrap(err, "EndActivity")
	}
	ds = paramsDS(result, ds)

	if _, err = c.post(ctx, "Erp.BO.LaborSvc/Update", map[string]interface{}{"ds": ds}); err != nil {
		return cerr.Wrap(err, "Update")
	}
	return nil
}

// ActiveLabor lists the open labor details for an employee.
func (c *Client) ActiveLabor(ctx context.Context, employeeID string) ([]map[string]interface{}, error) {
	filter := url.QueryEscape(fmt.Sprintf("EmployeeNum eq '%s' and ActiveTrans eq true", employeeID))
	result, err := c.get(ctx, fmt.Sprintf(
		"Erp.BO.LaborSvc/Labors?$filter=%s&$expand=LaborDtls", filter))
	if err != nil {
		return nil, cerr.Wrap(err, "query active labor")
	}

	heds, _ := result["value"].([]interface{})
	records := []map[string]interface{}{}
	for _, raw := range heds {
		hed, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		hedSeq := hed["LaborHedSeq"]
		dtls, _ := hed["LaborDtls"].([]interface{})
		for _, rawDtl := range dtls {
			dtl, ok := rawDtl.(map[string]interface{})
			if !ok {
				continue
			}
			if active, present := dtl["ActiveTrans"].(bool); present && !active {
				continue
			}
			dtl["LaborHedSeq"] = hedSeq
			records = append(records, dtl)
		}
	}
	return records, nil
}
