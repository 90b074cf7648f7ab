package webapp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdsquared/thequeue/pkg/epicor"
	"github.com/jdsquared/thequeue/pkg/erpdb"
	"github.com/jdsquared/thequeue/pkg/workcell"
)

type fakeStore struct {
	jobs    []erpdb.Job
	pingErr error
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) JobsForWorkcell(ctx context.Context, ops []string) ([]erpdb.Job, error) {
	return f.jobs, nil
}

func (f *fakeStore) JobsWithDetails(ctx context.Context, ops []string) ([]erpdb.Job, error) {
	return f.jobs, nil
}

func (f *fakeStore) JobHeader(ctx context.Context, jobNum string) (*erpdb.JobHeader, error) {
	if jobNum == "MISSING" {
		return nil, nil
	}
	return &erpdb.JobHeader{JobNum: jobNum, PartNum: "TB-100", ProdQty: 25}, nil
}

func (f *fakeStore) JobOperations(ctx context.Context, jobNum string) ([]erpdb.Operation, error) {
	return []erpdb.Operation{{OprSeq: 10, OpCode: "SAW"}}, nil
}

func (f *fakeStore) JobMaterials(ctx context.Context, jobNum string, assemblySeq, oprSeq int) ([]erpdb.Material, error) {
	return []erpdb.Material{{PartNum: "STEEL-1", Status: erpdb.StatusStar}}, nil
}

func (f *fakeStore) MaterialsForWorkcell(ctx context.Context, ops []string) ([]erpdb.PartRef, error) {
	return []erpdb.PartRef{{PartNum: "STEEL-1"}}, nil
}

func (f *fakeStore) JobsUsingMaterial(ctx context.Context, ops []string, partNum string) ([]string, error) {
	return []string{"J1-0-30"}, nil
}

func (f *fakeStore) ColorsForWorkcell(ctx context.Context, ops []string) ([]erpdb.ColorRef, error) {
	return []erpdb.ColorRef{{FinishColor: "Gloss Black"}}, nil
}

func (f *fakeStore) JobsUsingColor(ctx context.Context, ops []string, color string) ([]string, error) {
	return []string{"J2-0-40"}, nil
}

func (f *fakeStore) LastCheckin(ctx context.Context, partNum, opCode string) (*erpdb.CheckIn, error) {
	return &erpdb.CheckIn{EmployeeNum: "105", JobNum: "J1"}, nil
}

type fakeLabor struct {
	startErr  error
	lastStart epicor.StartActivityRequest
	lastQty   float64
}

func (f *fakeLabor) StartActivity(ctx context.Context, req epicor.StartActivityRequest) (*epicor.ActivityHandle, error) {
	f.lastStart = req
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &epicor.ActivityHandle{LaborHedSeq: 77, LaborDtlSeq: 5, Message: "started"}, nil
}

func (f *fakeLabor) EndActivity(ctx context.Context, req epicor.EndActivityRequest) error {
	return nil
}

func (f *fakeLabor) ActiveLabor(ctx context.Context, employeeID string) ([]map[string]interface{}, error) {
	return []map[string]interface{}{{"JobNum": "J1"}}, nil
}

func (f *fakeLabor) KanbanReceipt(ctx context.Context, req epicor.KanbanReceiptRequest) (string, error) {
	return "received", nil
}

func (f *fakeLabor) UpdateJobQuantity(ctx context.Context, jobNum string, newQty float64) error {
	f.lastQty = newQty
	return nil
}

func newTestServer(t *testing.T, store *fakeStore, labor *fakeLabor) *Server {
	t.Helper()

	defs := filepath.Join(t.TempDir(), "workcells.json")
	require.NoError(t, os.WriteFile(defs, []byte(`{
		"workcells": {
			"WELD": {"name": "Welding", "ops": ["WELD", "TACK"]}
		}
	}`), 0o644))
	registry, err := workcell.Load(defs)
	require.NoError(t, err)

	srv, err := New(Options{Addr: ":0"}, store, labor, registry)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func postJSON(t *testing.T, srv *Server, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexListsWorkcells(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLabor{})

	rec := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welding")
	assert.Contains(t, rec.Body.String(), "/queue/WELD")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestQueuePageUnknownWorkcell(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLabor{})

	rec := get(t, srv, "/queue/NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOPE")
}

func TestQueuePageRendersJobs(t *testing.T) {
	store := &fakeStore{jobs: []erpdb.Job{{
		JobNum: "J1", PartNum: "TB-100", OpCode: "WELD", MtlStatus: erpdb.StatusStar,
	}}}
	srv := newTestServer(t, store, &fakeLabor{})

	rec := get(t, srv, "/queue/WELD")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "J1")
	assert.Contains(t, rec.Body.String(), "TB-100")
}

func TestAPIQueue(t *testing.T) {
	store := &fakeStore{jobs: []erpdb.Job{{JobNum: "J1", OpCode: "WELD"}}}
	srv := newTestServer(t, store, &fakeLabor{})

	rec := get(t, srv, "/api/queue/WELD")
	require.Equal(t, http.StatusOK, rec.Code)

	var jobs []erpdb.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "J1", jobs[0].JobNum)

	rec = get(t, srv, "/api/queue/NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIJobDetail(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLabor{})

	rec := get(t, srv, "/api/job/J1/0/30")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		Header     *erpdb.JobHeader  `json:"header"`
		Operations []erpdb.Operation `json:"operations"`
		Materials  []erpdb.Material  `json:"materials"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.NotNil(t, detail.Header)
	assert.Equal(t, "J1", detail.Header.JobNum)
	assert.Len(t, detail.Operations, 1)
	assert.Len(t, detail.Materials, 1)
}

func TestAPIStartActivity(t *testing.T) {
	labor := &fakeLabor{}
	srv := newTestServer(t, &fakeStore{}, labor)

	rec := postJSON(t, srv, "/api/labor/start", map[string]interface{}{
		"employee_id": "105",
		"job_num":     "J1",
		"opr_seq":     30,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, true, result["success"])
	assert.Equal(t, 77.0, result["laborHedSeq"])
	assert.Equal(t, "105", labor.lastStart.EmployeeID)
	assert.Equal(t, 30, labor.lastStart.OprSeq)
}

func TestAPIStartActivityFailureShape(t *testing.T) {
	labor := &fakeLabor{startErr: cerr.New("StartActivity: status 500")}
	srv := newTestServer(t, &fakeStore{}, labor)

	rec := postJSON(t, srv, "/api/labor/start", map[string]interface{}{
		"employee_id": "105",
		"job_num":     "J1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "StartActivity")
}

func TestAPIStartActivityValidation(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLabor{})

	rec := postJSON(t, srv, "/api/labor/start", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKanbanReceiptValidation(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLabor{})

	rec := postJSON(t, srv, "/api/kanban_receipt", map[string]interface{}{
		"part_num": "TB-100",
		"quantity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIUpdateJobQuantity(t *testing.T) {
	labor := &fakeLabor{}
	srv := newTestServer(t, &fakeStore{}, labor)

	rec := postJSON(t, srv, "/api/job/J1/quantity", map[string]interface{}{"quantity": 25})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25.0, labor.lastQty)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLabor{})
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	degraded := newTestServer(t, &fakeStore{pingErr: cerr.New("no route to host")}, &fakeLabor{})
	rec = get(t, degraded, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStaticAssetsServed(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeLabor{})
	rec := get(t, srv, "/static/queue.css")
	assert.Equal(t, http.StatusOK, rec.Code)
}
