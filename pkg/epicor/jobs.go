package epicor

import (
	"context"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// UpdateJobQuantity changes a job's production quantity through the
// make-to-stock demand link, which cascades to the job head and every
// operation quantity. Jobs without a demand link fall back to a direct
// job head update.
func (c *Client) UpdateJobQuantity(ctx context.Context, jobNum string, newQty float64) error {
	logger := otelzap.Ctx(ctx)

	result, err := c.post(ctx, "Erp.BO.JobEntrySvc/GetByID", map[string]interface{}{
		"jobNum": jobNum,
	})
	if err != nil {
		return cerr.Wrap(err, "GetByID")
	}
	ds := returnDS(result)

	if prod := ds.FirstRow("JobProd"); prod != nil {
		prod["MakeToStockQty"] = newQty
		prod["RowMod"] = "U"
	} else if head := ds.FirstRow("JobHead"); head != nil {
		logger.Debug("Job has no demand link, updating job head directly",
			zap.String("job", jobNum))
		head["ProdQty"] = newQty
		head["RowMod"] = "U"
	} else {
		return cerr.Newf("job %s has no JobHead or JobProd records", jobNum)
	}

	if _, err = c.post(ctx, "Erp.BO.JobEntrySvc/Update", map[string]interface{}{"ds": ds}); err != nil {
		return cerr.Wrap(err, "Update")
	}

	logger.Info("Job quantity updated",
		zap.String("job", jobNum),
		zap.Float64("quantity", newQty))
	return nil
}
