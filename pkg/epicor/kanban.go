package epicor

import (
	"context"
	"fmt"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// KanbanReceiptRequest receives finished parts straight to stock. The
// KanbanReceipts business object creates the job, reports the quantity,
// closes the job, and books the receipt in one transaction.
type KanbanReceiptRequest struct {
	EmployeeID string
	PartNum    string
	Quantity   float64
	Warehouse  string
	BinNum     string
}

// KanbanReceipt processes a kanban receipt. Empty warehouse and bin
// fall back to the production defaults.
func (c *Client) KanbanReceipt(ctx context.Context, req KanbanReceiptRequest) (string, error) {
	logger := otelzap.Ctx(ctx)

	if req.Warehouse == "" {
		req.Warehouse = "PROD"
	}
	if req.BinNum == "" {
		req.BinNum = "PR-01"
	}

	result, err := c.post(ctx, "Erp.BO.KanbanReceiptsSvc/KanbanReceiptsGetNew", nil)
	if err != nil {
		return "", cerr.Wrap(err, "KanbanReceiptsGetNew")
	}
	ds := paramsDS(result, returnDS(result))

	receipt := ds.FirstRow("KanbanReceipts")
	if receipt == nil {
		return "", cerr.New("KanbanReceiptsGetNew created no receipt row")
	}
	receipt["PartNum"] = req.PartNum

	result, err = c.post(ctx, "Erp.BO.KanbanReceiptsSvc/ChangePart", map[string]interface{}{
		"ds":      ds,
		"partNum": req.PartNum,
		"uomCode": "EA",
	})
	if err != nil {
		return "", cerr.Wrap(err, "ChangePart")
	}
	ds = paramsDS(result, ds)

	if receipt = ds.FirstRow("KanbanReceipts"); receipt != nil {
		receipt["Quantity"] = req.Quantity
		receipt["WarehouseCode"] = req.Warehouse
		receipt["BinNum"] = req.BinNum
		receipt["EmployeeID"] = req.EmployeeID
	}

	// Warehouse and bin change failures are not fatal; the values are
	// already set on the row and PreProcess validates them.
	if result, err = c.post(ctx, "Erp.BO.KanbanReceiptsSvc/ChangeWarehouse", map[string]interface{}{
		"ds":            ds,
		"warehouseCode": req.Warehouse,
	}); err == nil {
		ds = paramsDS(result, ds)
	} else {
		logger.Debug("ChangeWarehouse reported an error, continuing", zap.Error(err))
	}

	if result, err = c.post(ctx, "Erp.BO.KanbanReceiptsSvc/ChangeBin", map[string]interface{}{
		"ds":     ds,
		"binNum": req.BinNum,
	}); err == nil {
		ds = paramsDS(result, ds)
	} else {
		logger.Debug("ChangeBin reported an error, continuing", zap.Error(err))
	}

	result, err = c.post(ctx, "Erp.BO.KanbanReceiptsSvc/PreProcessKanbanReceipts", map[string]interface{}{
		"ds": ds,
	})
	if err != nil {
		return "", cerr.Wrap(err, "PreProcessKanbanReceipts")
	}
	ds = paramsDS(result, ds)

	if receipt = ds.FirstRow("KanbanReceipts"); receipt != nil {
		receipt["ValidateOK"] = true
	}

	if _, err = c.post(ctx, "Erp.BO.KanbanReceiptsSvc/ProcessKanbanReceipts", map[string]interface{}{
		"ds":           ds,
		"dSerialNoQty": 0,
	}); err != nil {
		return "", cerr.Wrap(err, "ProcessKanbanReceipts")
	}

	message := fmt.Sprintf("Received %g of %s to %s/%s",
		req.Quantity, req.PartNum, req.Warehouse, req.BinNum)
	logger.Info("Kanban receipt processed",
		zap.String("part", req.PartNum),
		zap.Float64("quantity", req.Quantity),
		zap.String("employee", req.EmployeeID))
	return message, nil
}
