package webapp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/epicor"
	"github.com/jdsquared/thequeue/pkg/queue_err"
	"github.com/jdsquared/thequeue/pkg/workcell"
)

// workcellOps resolves the route's work cell or writes a 404.
func (s *Server) workcellOps(w http.ResponseWriter, r *http.Request) (workcell.Workcell, bool) {
	id := mux.Vars(r)["workcell"]
	wc, ok := s.workcells.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "Work cell not found")
		return workcell.Workcell{}, false
	}
	return wc, true
}

func (s *Server) apiError(w http.ResponseWriter, r *http.Request, what string, err error) {
	logger := otelzap.Ctx(r.Context())
	if queue_err.IsExpectedUserError(err) {
		logger.Warn("API request rejected", zap.String("what", what), zap.Error(err))
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Error("API request failed", zap.String("what", what), zap.Error(err))
	writeJSONError(w, http.StatusInternalServerError, what+" failed")
}

func (s *Server) apiQueue(w http.ResponseWriter, r *http.Request) {
	wc, ok := s.workcellOps(w, r)
	if !ok {
		return
	}
	jobs, err := s.store.JobsForWorkcell(r.Context(), wc.Ops)
	if err != nil {
		s.apiError(w, r, "queue refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) apiMaterials(w http.ResponseWriter, r *http.Request) {
	wc, ok := s.workcellOps(w, r)
	if !ok {
		return
	}
	materials, err := s.store.MaterialsForWorkcell(r.Context(), wc.Ops)
	if err != nil {
		s.apiError(w, r, "material list", err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *Server) apiJobsByMaterial(w http.ResponseWriter, r *http.Request) {
	wc, ok := s.workcellOps(w, r)
	if !ok {
		return
	}
	keys, err := s.store.JobsUsingMaterial(r.Context(), wc.Ops, mux.Vars(r)["part"])
	if err != nil {
		s.apiError(w, r, "material filter", err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) apiColors(w http.ResponseWriter, r *http.Request) {
	wc, ok := s.workcellOps(w, r)
	if !ok {
		return
	}
	colors, err := s.store.ColorsForWorkcell(r.Context(), wc.Ops)
	if err != nil {
		s.apiError(w, r, "color list", err)
		return
	}
	writeJSON(w, http.StatusOK, colors)
}

func (s *Server) apiJobsByColor(w http.ResponseWriter, r *http.Request) {
	wc, ok := s.workcellOps(w, r)
	if !ok {
		return
	}
	keys, err := s.store.JobsUsingColor(r.Context(), wc.Ops, mux.Vars(r)["color"])
	if err != nil {
		s.apiError(w, r, "color filter", err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) apiJobDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobNum := vars["job"]
	asm, _ := strconv.Atoi(vars["asm"])
	opr, _ := strconv.Atoi(vars["opr"])

	header, err := s.store.JobHeader(r.Context(), jobNum)
	if err != nil {
		s.apiError(w, r, "job detail", err)
		return
	}
	operations, err := s.store.JobOperations(r.Context(), jobNum)
	if err != nil {
		s.apiError(w, r, "job detail", err)
		return
	}
	materials, err := s.store.JobMaterials(r.Context(), jobNum, asm, opr)
	if err != nil {
		s.apiError(w, r, "job detail", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"header":     header,
		"operations": operations,
		"materials":  materials,
	})
}

func (s *Server) apiLastCheckin(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	checkin, err := s.store.LastCheckin(r.Context(), vars["part"], vars["op"])
	if err != nil {
		s.apiError(w, r, "last checkin", err)
		return
	}
	writeJSON(w, http.StatusOK, checkin)
}

type startActivityPayload struct {
	EmployeeID    string `json:"employee_id"`
	JobNum        string `json:"job_num"`
	AssemblySeq   int    `json:"assembly_seq"`
	OprSeq        int    `json:"opr_seq"`
	OpCode        string `json:"op_code"`
	ResourceGrpID string `json:"resource_grp_id"`
	ResourceID    string `json:"resource_id"`
	JcDept        string `json:"jc_dept"`
}

func (s *Server) apiStartActivity(w http.ResponseWriter, r *http.Request) {
	var payload startActivityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.EmployeeID == "" || payload.JobNum == "" {
		writeJSONError(w, http.StatusBadRequest, "employee_id and job_num are required")
		return
	}

	handle, err := s.labor.StartActivity(r.Context(), epicor.StartActivityRequest{
		EmployeeID:    payload.EmployeeID,
		JobNum:        payload.JobNum,
		AssemblySeq:   payload.AssemblySeq,
		OprSeq:        payload.OprSeq,
		OpCode:        payload.OpCode,
		ResourceGrpID: payload.ResourceGrpID,
		ResourceID:    payload.ResourceID,
		JcDept:        payload.JcDept,
	})
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"laborHedSeq": handle.LaborHedSeq,
		"laborDtlSeq": handle.LaborDtlSeq,
		"message":     handle.Message,
	})
}

type endActivityPayload struct {
	LaborHedSeq float64 `json:"labor_hed_seq"`
	LaborDtlSeq float64 `json:"labor_dtl_seq"`
	LaborQty    float64 `json:"labor_qty"`
	ScrapQty    float64 `json:"scrap_qty"`
	Complete    bool    `json:"complete"`
}

func (s *Server) apiEndActivity(w http.ResponseWriter, r *http.Request) {
	var payload endActivityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.labor.EndActivity(r.Context(), epicor.EndActivityRequest{
		LaborHedSeq: payload.LaborHedSeq,
		LaborDtlSeq: payload.LaborDtlSeq,
		LaborQty:    payload.LaborQty,
		ScrapQty:    payload.ScrapQty,
		Complete:    payload.Complete,
	})
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

func (s *Server) apiActiveLabor(w http.ResponseWriter, r *http.Request) {
	records, err := s.labor.ActiveLabor(r.Context(), mux.Vars(r)["employee"])
	if err != nil {
		s.apiError(w, r, "active labor", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type kanbanReceiptPayload struct {
	EmployeeID string  `json:"employee_id"`
	PartNum    string  `json:"part_num"`
	Quantity   float64 `json:"quantity"`
	Warehouse  string  `json:"warehouse"`
	BinNum     string  `json:"bin_num"`
}

func (s *Server) apiKanbanReceipt(w http.ResponseWriter, r *http.Request) {
	var payload kanbanReceiptPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.PartNum == "" || payload.Quantity <= 0 {
		writeJSONError(w, http.StatusBadRequest, "part_num and a positive quantity are required")
		return
	}

	message, err := s.labor.KanbanReceipt(r.Context(), epicor.KanbanReceiptRequest{
		EmployeeID: payload.EmployeeID,
		PartNum:    payload.PartNum,
		Quantity:   payload.Quantity,
		Warehouse:  payload.Warehouse,
		BinNum:     payload.BinNum,
	})
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
	})
}

type jobQuantityPayload struct {
	Quantity float64 `json:"quantity"`
}

func (s *Server) apiUpdateJobQuantity(w http.ResponseWriter, r *http.Request) {
	var payload jobQuantityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Quantity <= 0 {
		writeJSONError(w, http.StatusBadRequest, "a positive quantity is required")
		return
	}

	jobNum := mux.Vars(r)["job"]
	if err := s.labor.UpdateJobQuantity(r.Context(), jobNum, payload.Quantity); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Updated job " + jobNum,
	})
}
