package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"
)

func TestOpenAPIDocumentParses(t *testing.T) {
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(openAPISpec, &doc))
	_, err := json.Marshal(doc)
	require.NoError(t, err)

	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	for _, p := range []string{"/v1/solve", "/v1/validate", "/v1/runs", "/v1/runs/{id}", "/v1/runs/{id}/events/ws"} {
		assert.Contains(t, paths, p)
	}
	solve := paths["/v1/solve"].(map[string]any)["post"].(map[string]any)
	accepted := solve["responses"].(map[string]any)["202"].(map[string]any)
	assert.Contains(t, accepted["description"], "/v1/runs/{id}")
}

func TestOpenAPIJSONServesConvertedDocument(t *testing.T) {
	h := newTestServer(t).Handler()
	rr := do(t, h, http.MethodGet, "/openapi.json", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Contains(t, doc.Paths, "/v1/runs/{id}/solution")
}
