package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"roister/agent/internal/config"
	"roister/agent/internal/engine"
	"roister/agent/internal/store"
)

func newTestServer(t *testing.T, cfg config.Config) (*httptest.Server, *engine.Engine) {
	t.Helper()
	st := store.New()
	e := &engine.Engine{Store: st, MinConfidence: 0.35}
	h := NewHandlers(cfg, st, e)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, e
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestRunInputOutcomeFlow(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})

	resp := postJSON(t, srv.URL+"/api/v1/run", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status = %d", resp.StatusCode)
	}
	var run struct {
		SessionID string `json:"session_id"`
		Status    string `json:"status"`
		AgentText string `json:"agent_text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	resp.Body.Close()
	if run.SessionID == "" || run.Status != "running" || run.AgentText == "" {
		t.Fatalf("run response = %+v", run)
	}

	// Outcome while running.
	oresp, err := http.Get(srv.URL + "/api/v1/outcome/" + run.SessionID)
	if err != nil {
		t.Fatalf("GET outcome: %v", err)
	}
	var out struct {
		Status  string          `json:"status"`
		Outcome json.RawMessage `json:"outcome"`
	}
	json.NewDecoder(oresp.Body).Decode(&out)
	oresp.Body.Close()
	if out.Status != "running" || string(out.Outcome) != "null" {
		t.Fatalf("running outcome = %+v", out)
	}

	// One turn that ends the call.
	iresp := postJSON(t, srv.URL+"/api/v1/input/"+run.SessionID, map[string]string{"user_text": "Goodbye."})
	if iresp.StatusCode != http.StatusOK {
		t.Fatalf("input status = %d", iresp.StatusCode)
	}
	var turn struct {
		Status string `json:"status"`
		Ended  bool   `json:"ended"`
	}
	json.NewDecoder(iresp.Body).Decode(&turn)
	iresp.Body.Close()
	if !turn.Ended || turn.Status != "completed" {
		t.Fatalf("turn = %+v", turn)
	}

	// Outcome now populated.
	oresp, _ = http.Get(srv.URL + "/api/v1/outcome/" + run.SessionID)
	json.NewDecoder(oresp.Body).Decode(&out)
	oresp.Body.Close()
	if out.Status != "completed" || string(out.Outcome) == "null" {
		t.Fatalf("completed outcome = %+v", out)
	}
}

func TestInputUnknownSession404(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})

	resp := postJSON(t, srv.URL+"/api/v1/input/unknown", map[string]string{"user_text": "hi"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	oresp, _ := http.Get(srv.URL + "/api/v1/outcome/unknown")
	if oresp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", oresp.StatusCode)
	}
	oresp.Body.Close()
}

func TestProspectRequiresAIMode(t *testing.T) {
	srv, e := newTestServer(t, config.Config{})
	e.StartSession("human-sess", store.ModeHuman)

	resp := postJSON(t, srv.URL+"/api/v1/prospect/human-sess", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestProspectTurnAIMode(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})

	resp := postJSON(t, srv.URL+"/api/v1/run", map[string]string{"prospect_mode": "ai"})
	var run struct {
		SessionID string `json:"session_id"`
	}
	json.NewDecoder(resp.Body).Decode(&run)
	resp.Body.Close()

	presp := postJSON(t, srv.URL+"/api/v1/prospect/"+run.SessionID, nil)
	if presp.StatusCode != http.StatusOK {
		t.Fatalf("prospect status = %d", presp.StatusCode)
	}
	var turn struct {
		ProspectText string `json:"prospect_text"`
		AgentText    string `json:"agent_text"`
	}
	json.NewDecoder(presp.Body).Decode(&turn)
	presp.Body.Close()
	if turn.ProspectText == "" || turn.AgentText == "" {
		t.Fatalf("turn = %+v", turn)
	}
}

func TestMintWSToken(t *testing.T) {
	cfg := config.Config{}
	cfg.WS.TokenSecret = "s3cret"
	cfg.WS.TokenExpMin = 60
	srv, e := newTestServer(t, cfg)
	e.StartSession("tok-sess", store.ModeHuman)

	resp := postJSON(t, srv.URL+"/api/v1/sessions/tok-sess/ws-token", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mint status = %d", resp.StatusCode)
	}
	var mint struct {
		Token string `json:"token"`
		Exp   int64  `json:"exp"`
	}
	json.NewDecoder(resp.Body).Decode(&mint)
	resp.Body.Close()
	if mint.Token == "" || mint.Exp == 0 {
		t.Fatalf("mint = %+v", mint)
	}

	// No secret configured: 400.
	srv2, e2 := newTestServer(t, config.Config{})
	e2.StartSession("tok-sess", store.ModeHuman)
	resp2 := postJSON(t, srv2.URL+"/api/v1/sessions/tok-sess/ws-token", nil)
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without secret, got %d", resp2.StatusCode)
	}
	resp2.Body.Close()
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})

	resp, err := http.Get(srv.URL + "/api/v1/run")
	if err != nil {
		t.Fatalf("GET run: %v", err)
	}
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// With no provider key configured the check passes trivially, so a bare
// deployment still reports healthy.
func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	var status struct {
		OK     bool `json:"ok"`
		Checks []struct {
			Name string `json:"name"`
			OK   bool   `json:"ok"`
		} `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if !status.OK {
		t.Fatalf("healthz ok = false: %+v", status)
	}
	if len(status.Checks) != 1 || status.Checks[0].Name != "provider" {
		t.Fatalf("healthz checks = %+v", status.Checks)
	}
}

func TestHealthzDegradedProvider(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(bad.Close)

	cfg := config.Config{}
	cfg.Provider.BaseURL = bad.URL
	cfg.Provider.APIKey = "bad-key"
	cfg.Provider.Model = "test-model"
	srv, _ := newTestServer(t, cfg)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for failing provider check, got %d", resp.StatusCode)
	}
}
