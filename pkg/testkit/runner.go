package testkit

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kmhttp "github.com/shashiranjanraj/kisanmart/pkg/http"
)

// Vars fills "{{name}}" placeholders in scenarios.
type Vars map[string]string

func (v Vars) expand(s string) string {
	for k, val := range v {
		s = strings.ReplaceAll(s, "{{"+k+"}}", val)
	}
	return s
}

// Run executes one scenario file against handler as a subtest.
func Run(t *testing.T, handler http.Handler, path string, vars Vars) {
	t.Helper()

	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("testkit: load scenario %q: %v", path, err)
	}
	t.Run(s.Name, func(t *testing.T) { runScenario(t, handler, s, vars) })
}

// RunDir runs every *.json scenario in dir, in file name order.
func RunDir(t *testing.T, handler http.Handler, dir string, vars Vars) {
	t.Helper()

	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(entries) == 0 {
		t.Fatalf("testkit: no scenario files found in %q", dir)
	}

	for _, path := range entries {
		s, err := LoadScenario(path)
		if err != nil {
			t.Errorf("testkit: load %q: %v", path, err)
			continue
		}
		t.Run(s.Name, func(t *testing.T) { runScenario(t, handler, s, vars) })
	}
}

// Do fires the scenario's request and returns the recorded response
// without asserting anything.
func Do(t *testing.T, handler http.Handler, s *Scenario, vars Vars) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	raw, err := s.requestBody()
	if err != nil {
		t.Fatalf("[%s] read request body: %v", s.Name, err)
	}
	if raw != nil {
		body = bytes.NewReader([]byte(vars.expand(string(raw))))
	}

	req := httptest.NewRequest(strings.ToUpper(s.RequestMethod), vars.expand(s.RequestURL), body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range s.Headers {
		req.Header.Set(k, vars.expand(v))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func runScenario(t *testing.T, handler http.Handler, s *Scenario, vars Vars) {
	t.Helper()

	mt := NewMockTransport(s, vars)
	kmhttp.DefaultClient.Transport = mt
	defer kmhttp.ResetTransport()

	rec := Do(t, handler, s, vars)

	AssertStatusCode(t, s, rec.Code, rec.Body.Bytes())

	if p := s.resolve(s.ResponseFileName); p != "" {
		expected, err := os.ReadFile(p)
		if err != nil {
			t.Errorf("[%s] read response file %q: %v", s.Name, p, err)
		} else {
			AssertJSONBody(t, s, []byte(vars.expand(string(expected))), rec.Body.Bytes())
		}
	}
	if len(s.ResponseContains) > 0 {
		AssertJSONSubset(t, s, []byte(vars.expand(string(s.ResponseContains))), rec.Body.Bytes())
	}

	for _, err := range mt.Unused() {
		t.Errorf("[%s] %v", s.Name, err)
	}
}
