package testkit

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode checks the response code and prints the body on mismatch.
func AssertStatusCode(t *testing.T, s *Scenario, got int, body []byte) {
	t.Helper()
	assert.Equal(t, s.ExpectedCode, got, "[%s] HTTP status code mismatch\nbody: %s", s.Name, body)
}

// AssertJSONBody compares both documents after decoding, so key order and
// whitespace never matter.
func AssertJSONBody(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()

	var expVal, actVal any
	require.NoError(t, json.Unmarshal(expected, &expVal), "[%s] expected response is not valid JSON", s.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &actVal), "[%s] actual response is not valid JSON\nbody: %s", s.Name, actual) {
		return
	}
	assert.Equal(t, expVal, actVal, "[%s] response body mismatch", s.Name)
}

// AssertJSONSubset checks that every field in expected appears in actual
// with the same value. Arrays must have equal length; their elements are
// compared as subsets.
func AssertJSONSubset(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()

	var expVal, actVal any
	require.NoError(t, json.Unmarshal(expected, &expVal), "[%s] responseContains is not valid JSON", s.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &actVal), "[%s] actual response is not valid JSON\nbody: %s", s.Name, actual) {
		return
	}
	for _, d := range DiffJSON("", expVal, actVal) {
		t.Errorf("[%s] %s", s.Name, d)
	}
}

// DiffJSON lists where actual does not contain expected.
func DiffJSON(path string, expected, actual any) []string {
	if path == "" {
		path = "$"
	}
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected object, got %T", path, actual)}
		}
		var diffs []string
		for k, ev := range exp {
			av, exists := act[k]
			if !exists {
				diffs = append(diffs, fmt.Sprintf("%s.%s: missing", path, k))
				continue
			}
			diffs = append(diffs, DiffJSON(path+"."+k, ev, av)...)
		}
		return diffs
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected array, got %T", path, actual)}
		}
		if len(exp) != len(act) {
			return []string{fmt.Sprintf("%s: array length expected=%d actual=%d", path, len(exp), len(act))}
		}
		var diffs []string
		for i := range exp {
			diffs = append(diffs, DiffJSON(fmt.Sprintf("%s[%d]", path, i), exp[i], act[i])...)
		}
		return diffs
	default:
		if !assert.ObjectsAreEqual(expected, actual) {
			return []string{fmt.Sprintf("%s: expected %v, got %v", path, expected, actual)}
		}
		return nil
	}
}
