package testkit

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockTransport is an http.RoundTripper that answers outgoing requests from
// a scenario's mock steps. Install it on pkg/http's client:
//
//	mt := testkit.NewMockTransport(s)
//	kmhttp.DefaultClient.Transport = mt
//	defer kmhttp.ResetTransport()
type MockTransport struct {
	mu      sync.Mutex
	steps   []httpMockEntry
	require bool
	vars    Vars
}

type httpMockEntry struct {
	step  MockStep
	calls int
}

func NewMockTransport(s *Scenario, vars Vars) *MockTransport {
	mt := &MockTransport{require: s.IsMockRequired, vars: vars}
	for _, step := range s.NetUtilMockStep {
		mt.steps = append(mt.steps, httpMockEntry{step: step})
	}
	return mt
}

func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	for i := range mt.steps {
		e := &mt.steps[i]
		if !e.step.IsMock {
			continue
		}
		if e.step.MatchMethod != "" && !strings.EqualFold(e.step.MatchMethod, req.Method) {
			continue
		}
		if !strings.HasPrefix(req.URL.String(), mt.vars.expand(e.step.MatchURL)) {
			continue
		}
		e.calls++
		return buildHTTPResponse(req, e.step.ReturnData, mt.vars)
	}

	if mt.require {
		return nil, fmt.Errorf("testkit: unexpected outgoing %s %s: no matching mock step", req.Method, req.URL)
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader(`{"error":"no mock configured"}`)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Unused returns an error per isMock step that was never hit.
func (mt *MockTransport) Unused() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for _, e := range mt.steps {
		if e.step.IsMock && e.calls == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock step %s %q was never called",
				e.step.MatchMethod, e.step.MatchURL))
		}
	}
	return errs
}

func buildHTTPResponse(req *http.Request, rd MockReturnData, vars Vars) (*http.Response, error) {
	code := rd.StatusCode
	if code == 0 {
		code = http.StatusOK
	}

	var body []byte
	switch {
	case rd.Body != "":
		decoded, err := base64.StdEncoding.DecodeString(rd.Body)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(rd.Body)
			if err != nil {
				return nil, fmt.Errorf("testkit: base64 decode mock body: %w", err)
			}
		}
		body = decoded
	case len(rd.JSON) > 0:
		body = []byte(vars.expand(string(rd.JSON)))
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, nil
}
