// Package testkit drives HTTP API tests from JSON scenario files.
//
// A scenario names the request to fire, the status to expect, the parts of
// the response body that must match, and canned responses for outgoing
// calls made through pkg/http (the payment gateway):
//
//	{
//	  "name": "create payment order",
//	  "requestMethod": "POST",
//	  "requestUrl": "/api/payment/create-order",
//	  "headers": {"Authorization": "Bearer {{userToken}}"},
//	  "requestBody": {"amount": 500},
//	  "expectedCode": 200,
//	  "responseContains": {"success": true, "data": {"orderId": "order_1"}},
//	  "netUtilMockStep": [{
//	    "method": "httprequest", "isMock": true,
//	    "matchUrl": "https://api.razorpay.com/v1/orders",
//	    "returnData": {"statusCode": 200, "json": {"id": "order_1"}}
//	  }]
//	}
//
// "{{name}}" placeholders in the URL, headers and bodies are filled from the
// Vars passed to Run.
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Scenario is one API test case.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	RequestMethod   string            `json:"requestMethod"`
	RequestURL      string            `json:"requestUrl"`
	RequestBody     json.RawMessage   `json:"requestBody"`     // inline body
	RequestFileName string            `json:"requestFileName"` // or a file next to the scenario
	Headers         map[string]string `json:"headers"`

	ExpectedCode     int             `json:"expectedCode"`
	ResponseFileName string          `json:"responseFileName"` // exact JSON match
	ResponseContains json.RawMessage `json:"responseContains"` // subset match

	// IsMockRequired fails outgoing calls that match no step.
	IsMockRequired  bool       `json:"isMockRequired"`
	NetUtilMockStep []MockStep `json:"netUtilMockStep"`

	dir string
}

// MockStep intercepts one kind of outgoing call. Only "httprequest" is
// understood.
type MockStep struct {
	Method string `json:"method"`

	// IsMock false documents a real dependency without intercepting it.
	IsMock bool `json:"isMock"`

	// MatchURL is a URL prefix; empty matches any request.
	MatchURL string `json:"matchUrl"`
	// MatchMethod restricts the HTTP method when set.
	MatchMethod string `json:"matchMethod"`

	ReturnData MockReturnData `json:"returnData"`
}

// MockReturnData is the synthetic response. Body is base64; JSON is used
// verbatim when Body is empty.
type MockReturnData struct {
	StatusCode int             `json:"statusCode"`
	Body       string          `json:"body"`
	JSON       json.RawMessage `json:"json"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: invalid scenario %q: %w", abs, err)
	}

	s.dir = filepath.Dir(abs)
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.RequestURL == "" {
		return fmt.Errorf("requestUrl is required")
	}
	if s.ExpectedCode == 0 {
		return fmt.Errorf("expectedCode is required")
	}
	if s.RequestMethod == "" {
		s.RequestMethod = "GET"
	}
	if len(s.RequestBody) > 0 && s.RequestFileName != "" {
		return fmt.Errorf("requestBody and requestFileName are exclusive")
	}
	for i, step := range s.NetUtilMockStep {
		if step.Method != "httprequest" {
			return fmt.Errorf("netUtilMockStep[%d].method %q is not supported", i, step.Method)
		}
	}
	return nil
}

func (s *Scenario) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// requestBody returns the raw request body, or nil.
func (s *Scenario) requestBody() ([]byte, error) {
	if len(s.RequestBody) > 0 {
		return s.RequestBody, nil
	}
	if s.RequestFileName == "" {
		return nil, nil
	}
	return os.ReadFile(s.resolve(s.RequestFileName))
}
