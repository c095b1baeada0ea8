package docs_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"

	"github.com/jhoicas/Entregas-api/docs"
)

func TestSwagger_RegistraRutasDeLaAPI(t *testing.T) {
	raw, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	for _, path := range []string{
		"/api/stock/bulk", "/api/stock/{product_id}", "/api/stock/{product_id}/history",
		"/api/deliveries", "/api/deliveries/{id}", "/api/deliveries/{id}/state",
	} {
		assert.Contains(t, doc.Paths, path)
	}
	assert.Len(t, doc.Paths["/api/deliveries/{id}"], 3, "get, put y delete")
}
