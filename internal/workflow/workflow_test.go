package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/surgidocs/chartgroup/internal/bundle"
	"github.com/surgidocs/chartgroup/internal/docrouter"
	"github.com/surgidocs/chartgroup/internal/grouping"
)

// fakeRouter is a minimal in-memory DocRouter backend. Uploaded documents
// are classified by the payload registered for their page suffix.
type fakeRouter struct {
	mu      sync.Mutex
	results map[string]string // upload-name suffix -> updated_llm_result JSON
	states  map[string][]string
	docs    map[string]string // document ID -> upload name
	reruns  map[string]int
	deletes map[string]int
	nextID  int
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		results: make(map[string]string),
		states:  make(map[string][]string),
		docs:    make(map[string]string),
		reruns:  make(map[string]int),
		deletes: make(map[string]int),
	}
}

func (f *fakeRouter) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v0/orgs/org1/tags", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"tags": []map[string]string{
			{"id": "tag-main", "name": DefaultTagName},
			{"id": "tag-ins", "name": DefaultInsuranceTagName},
		}})
	})
	mux.HandleFunc("GET /v0/orgs/org1/prompts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"prompts": []map[string]string{
			{"name": DefaultPromptName, "prompt_revid": "rev-main"},
			{"name": DefaultInsurancePromptName, "prompt_revid": "rev-ins"},
		}})
	})
	mux.HandleFunc("POST /v0/orgs/org1/documents", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Documents []struct {
				Name string `json:"name"`
			} `json:"documents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Documents) != 1 {
			t.Errorf("bad upload request: %v", err)
		}
		f.mu.Lock()
		f.nextID++
		id := fmt.Sprintf("doc-%d", f.nextID)
		f.docs[id] = req.Documents[0].Name
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"documents": []map[string]string{{"document_id": id}},
		})
	})
	mux.HandleFunc("GET /v0/orgs/org1/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		f.mu.Lock()
		state := docrouter.StateLLMCompleted
		if queue := f.states[id]; len(queue) > 0 {
			state, f.states[id] = queue[0], queue[1:]
		}
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"state": state})
	})
	mux.HandleFunc("DELETE /v0/orgs/org1/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deletes[r.PathValue("id")]++
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v0/orgs/org1/llm/run/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.reruns[r.PathValue("id")]++
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /v0/orgs/org1/llm/result/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		name := f.docs[r.PathValue("id")]
		f.mu.Unlock()
		for suffix, result := range f.results {
			if strings.HasSuffix(name, suffix) {
				fmt.Fprintf(w, `{"updated_llm_result": %s}`, result)
				return
			}
		}
		fmt.Fprint(w, `{"updated_llm_result": {}}`)
	})
	return mux
}

func testPipeline(t *testing.T, f *fakeRouter) *Pipeline {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	client, err := docrouter.New(docrouter.Config{
		BaseURL: srv.URL,
		OrgID:   "org1",
		Logger:  slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("docrouter.New failed: %v", err)
	}
	p, err := New(Config{
		Client:       client,
		PollInterval: time.Millisecond,
		MaxWait:      time.Second,
		Logger:       slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

// fakePages writes n junk single-page files so classifyPages can be driven
// without a real PDF.
func fakePages(t *testing.T, n int) []bundle.Page {
	t.Helper()
	dir := t.TempDir()
	pages := make([]bundle.Page, 0, n)
	for i := 1; i <= n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("bundle_%d.pdf", i))
		if err := os.WriteFile(path, []byte("fake pdf"), 0o644); err != nil {
			t.Fatal(err)
		}
		pages = append(pages, bundle.Page{
			Number: i,
			Path:   path,
			Name:   fmt.Sprintf("bundle-%d.pdf", i),
		})
	}
	return pages
}

func TestClassifyPages(t *testing.T) {
	f := newFakeRouter()
	f.results["bundle-1.pdf"] = `{"first_name": "Jane", "last_name": "Doe", "dob": "1980-01-01"}`
	f.results["bundle-2.pdf"] = `{"document_type": "surgery schedule"}`

	p := testPipeline(t, f)
	envelope, err := p.classifyPages(context.Background(), fakePages(t, 2))
	if err != nil {
		t.Fatalf("classifyPages failed: %v", err)
	}
	if len(envelope) != 2 {
		t.Fatalf("expected 2 envelope pages, got %d", len(envelope))
	}

	records, err := (&grouping.Envelope{Pages: envelope}).PageRecords(DefaultPromptName)
	if err != nil {
		t.Fatalf("envelope does not round-trip: %v", err)
	}
	if records[0].PageNum != 1 || records[1].PageNum != 2 {
		t.Errorf("unexpected page numbers: %+v", records)
	}
	if got, _ := records[0].Payload.Get("first_name"); got != "Jane" {
		t.Errorf("expected payload to carry classification, got %v", got)
	}
}

func TestClassifyAndGroupShapesResult(t *testing.T) {
	f := newFakeRouter()
	f.results["bundle-1.pdf"] = `{"first_name": "Jane", "last_name": "Doe", "dob": "1980-01-01"}`
	f.results["bundle-2.pdf"] = `{"document_type": "surgery schedule"}`

	p := testPipeline(t, f)
	envelope, err := p.classifyPages(context.Background(), fakePages(t, 2))
	if err != nil {
		t.Fatalf("classifyPages failed: %v", err)
	}
	grouped, err := p.group("bundle.pdf", envelope)
	if err != nil {
		t.Fatalf("group failed: %v", err)
	}

	if grouped.FileName != "bundle.pdf" {
		t.Errorf("unexpected file name %q", grouped.FileName)
	}
	if !reflect.DeepEqual(grouped.SurgerySchedule, []int{2}) {
		t.Errorf("expected schedule [2], got %v", grouped.SurgerySchedule)
	}
	patient := grouped.Patients["jane_doe_1980_01_01"]
	if patient == nil || !reflect.DeepEqual(patient.Pages, []int{1}) {
		t.Errorf("unexpected patients: %+v", grouped.Patients)
	}
}

func TestAwaitResultRerunsFailedPrompt(t *testing.T) {
	f := newFakeRouter()
	f.results["bundle-1.pdf"] = `{"mrn": "Z9"}`
	// First poll reports a failed LLM pass; the rerun completes.
	f.states["doc-1"] = []string{docrouter.StateLLMFailed, docrouter.StateLLMCompleted}

	p := testPipeline(t, f)
	envelope, err := p.classifyPages(context.Background(), fakePages(t, 1))
	if err != nil {
		t.Fatalf("classifyPages failed: %v", err)
	}
	if got, _ := envelope[0].Get(DefaultPromptName); got.(*grouping.Fields).Len() == 0 {
		t.Error("expected rerun to recover the payload")
	}
	if f.reruns["doc-1"] != 1 {
		t.Errorf("expected exactly one forced rerun, got %d", f.reruns["doc-1"])
	}
}

func TestAwaitResultReuploadsAfterOCRFailure(t *testing.T) {
	f := newFakeRouter()
	f.results["bundle-1.pdf"] = `{"mrn": "Z9"}`
	// The first upload never OCRs; the reupload (doc-2) completes.
	f.states["doc-1"] = []string{docrouter.StateOCRFailed}

	p := testPipeline(t, f)
	envelope, err := p.classifyPages(context.Background(), fakePages(t, 1))
	if err != nil {
		t.Fatalf("classifyPages failed: %v", err)
	}
	if got, _ := envelope[0].Get(DefaultPromptName); got.(*grouping.Fields).Len() == 0 {
		t.Error("expected reupload to recover the payload")
	}
	if f.deletes["doc-1"] != 1 {
		t.Errorf("expected failed document to be deleted, got %d deletes", f.deletes["doc-1"])
	}
	if f.docs["doc-2"] == "" {
		t.Error("expected a second upload of the page")
	}
}

func TestAwaitResultExhaustsRetries(t *testing.T) {
	f := newFakeRouter()
	f.results["bundle-1.pdf"] = `{"mrn": "Z9"}`
	f.states["doc-1"] = []string{
		docrouter.StateLLMFailed,
		docrouter.StateLLMFailed,
		docrouter.StateLLMFailed,
		docrouter.StateLLMFailed,
	}

	p := testPipeline(t, f)
	envelope, err := p.classifyPages(context.Background(), fakePages(t, 1))
	if err != nil {
		t.Fatalf("classifyPages failed: %v", err)
	}
	payload, _ := envelope[0].Get(DefaultPromptName)
	if payload.(*grouping.Fields).Len() != 0 {
		t.Errorf("expected empty payload after exhausted retries, got %v", payload)
	}
}

func TestAwaitResultTimesOut(t *testing.T) {
	f := newFakeRouter()
	f.results["bundle-1.pdf"] = `{"mrn": "Z9"}`
	// Never leaves processing.
	f.states["doc-1"] = func() []string {
		states := make([]string, 10000)
		for i := range states {
			states[i] = docrouter.StateLLMProcessing
		}
		return states
	}()

	p := testPipeline(t, f)
	p.cfg.MaxWait = 20 * time.Millisecond

	envelope, err := p.classifyPages(context.Background(), fakePages(t, 1))
	if err != nil {
		t.Fatalf("classifyPages failed: %v", err)
	}
	payload, _ := envelope[0].Get(DefaultPromptName)
	if payload.(*grouping.Fields).Len() != 0 {
		t.Errorf("expected empty payload after timeout, got %v", payload)
	}
}

func TestExtractInsuranceSkipsWhenUnconfigured(t *testing.T) {
	f := newFakeRouter()
	p := testPipeline(t, f)
	p.cfg.InsuranceTagName = "no_such_tag"

	grouped := &GroupedBundle{
		FileName: "bundle.pdf",
		Patients: map[string]*PatientBundle{
			"jane_doe_1980_01_01": {Pages: []int{1}},
		},
	}
	if err := p.ExtractInsurance(context.Background(), "bundle.pdf", grouped); err != nil {
		t.Fatalf("expected graceful skip, got %v", err)
	}
	if grouped.Patients["jane_doe_1980_01_01"].InsuranceCard != nil {
		t.Error("expected no card data when tag is missing")
	}
}

func TestGroupedBundleJSON(t *testing.T) {
	f := newFakeRouter()
	f.results["bundle-1.pdf"] = `{"first_name": "Jane", "last_name": "Doe", "dob": "1980-01-01"}`

	p := testPipeline(t, f)
	envelope, err := p.classifyPages(context.Background(), fakePages(t, 1))
	if err != nil {
		t.Fatalf("classifyPages failed: %v", err)
	}
	grouped, err := p.group("bundle.pdf", envelope)
	if err != nil {
		t.Fatalf("group failed: %v", err)
	}

	out, err := json.Marshal(grouped)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, want := range []string{`"file_name":"bundle.pdf"`, `"page_num":1`, `"jane_doe_1980_01_01"`, `"pages":[1]`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(string(out), "patient_insurance_card") {
		t.Error("expected insurance card to be omitted when absent")
	}
}

func TestGroupedBundleYAML(t *testing.T) {
	f := newFakeRouter()
	f.results["bundle-1.pdf"] = `{"first_name": "Jane", "last_name": "Doe", "dob": "1980-01-01"}`
	f.results["bundle-2.pdf"] = `{"document_type": "surgery schedule"}`

	p := testPipeline(t, f)
	envelope, err := p.classifyPages(context.Background(), fakePages(t, 2))
	if err != nil {
		t.Fatalf("classifyPages failed: %v", err)
	}
	grouped, err := p.group("bundle.pdf", envelope)
	if err != nil {
		t.Fatalf("group failed: %v", err)
	}

	out, err := yaml.Marshal(grouped)
	if err != nil {
		t.Fatalf("yaml marshal failed: %v", err)
	}
	// The yaml rendering uses the same snake_case keys as the json one.
	for _, want := range []string{"file_name: bundle.pdf", "surgery_schedule:", "jane_doe_1980_01_01:", "pages:"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
	for _, reject := range []string{"filename:", "surgeryschedule:", "insurancecard:", "patient_insurance_card"} {
		if strings.Contains(string(out), reject) {
			t.Errorf("yaml output contains %q:\n%s", reject, out)
		}
	}
}
