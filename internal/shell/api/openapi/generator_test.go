package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResult struct {
	Deployable bool     `json:"deployable"`
	Errors     []string `json:"errors"`
	Valid      *bool    `json:"valid,omitempty"`
	internal   string
	Skipped    string `json:"-"`
}

type testError struct {
	Message string `json:"message" description:"Human-readable failure"`
}

func newTestGenerator() *Generator {
	g := NewGenerator(WithTitle("Test API"), WithVersion("2.0.0"), WithServer("http://localhost:8080"))
	g.RegisterEndpoint(Endpoint{
		Method:      http.MethodPost,
		Path:        "/validate",
		OperationID: "validateChart",
		Summary:     "Validate a chart",
		Tag:         "Validation",
		Form: []FormField{
			{Name: "file", Type: "file", Required: true},
			{Name: "isLinted", Type: "boolean"},
			{Name: "versionDesired", Type: "string"},
		},
		Responses: map[int]Response{
			http.StatusOK:         {Description: "Validation result", Model: testResult{}},
			http.StatusBadRequest: {Description: "Invalid request", Model: &testError{}},
		},
	})
	g.RegisterEndpoint(Endpoint{
		Method:      http.MethodGet,
		Path:        "/health",
		OperationID: "health",
		Responses:   map[int]Response{http.StatusOK: {Description: "Alive"}},
	})
	return g
}

func TestGenerate_Info(t *testing.T) {
	spec := newTestGenerator().Generate()

	assert.Equal(t, "3.0.3", spec.OpenAPI)
	assert.Equal(t, "Test API", spec.Info.Title)
	assert.Equal(t, "2.0.0", spec.Info.Version)
	require.Len(t, spec.Servers, 1)
	assert.Equal(t, "http://localhost:8080", spec.Servers[0].URL)
}

func TestGenerate_Operations(t *testing.T) {
	spec := newTestGenerator().Generate()

	validate := spec.Paths.Value("/validate")
	require.NotNil(t, validate)
	require.NotNil(t, validate.Post)
	assert.Equal(t, "validateChart", validate.Post.OperationID)
	assert.Equal(t, []string{"Validation"}, validate.Post.Tags)

	ok := validate.Post.Responses.Status(http.StatusOK)
	require.NotNil(t, ok)
	assert.Equal(t, "#/components/schemas/testResult", ok.Value.Content["application/json"].Schema.Ref)

	bad := validate.Post.Responses.Status(http.StatusBadRequest)
	require.NotNil(t, bad)
	assert.Equal(t, "#/components/schemas/testError", bad.Value.Content["application/json"].Schema.Ref)

	health := spec.Paths.Value("/health")
	require.NotNil(t, health)
	require.NotNil(t, health.Get)
	assert.Empty(t, health.Get.Responses.Status(http.StatusOK).Value.Content)
}

func TestGenerate_FormBody(t *testing.T) {
	spec := newTestGenerator().Generate()

	body := spec.Paths.Value("/validate").Post.RequestBody.Value
	schema := body.Content["multipart/form-data"].Schema.Value

	assert.Equal(t, []string{"file"}, schema.Required)
	assert.Equal(t, "binary", schema.Properties["file"].Value.Format)
	assert.True(t, schema.Properties["isLinted"].Value.Type.Is("boolean"))
	assert.True(t, schema.Properties["versionDesired"].Value.Type.Is("string"))
}

func TestGenerate_ReflectedSchema(t *testing.T) {
	spec := newTestGenerator().Generate()

	result := spec.Components.Schemas["testResult"].Value
	require.NotNil(t, result)
	assert.ElementsMatch(t, []string{"deployable", "errors", "valid"}, keys(result.Properties))
	assert.Equal(t, []string{"deployable", "errors"}, result.Required)
	assert.True(t, result.Properties["errors"].Value.Type.Is("array"))
	assert.True(t, result.Properties["valid"].Value.Nullable)

	errSchema := spec.Components.Schemas["testError"].Value
	assert.Equal(t, "Human-readable failure", errSchema.Properties["message"].Value.Description)
}

func TestGenerate_Cached(t *testing.T) {
	g := newTestGenerator()

	first := g.Generate()
	assert.Same(t, first, g.Generate())

	g.RegisterEndpoint(Endpoint{Method: http.MethodGet, Path: "/versions", Responses: map[int]Response{200: {Description: "ok"}}})
	second := g.Generate()
	assert.NotSame(t, first, second)
	assert.NotNil(t, second.Paths.Value("/versions"))
}

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestGenerator().Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/openapi.json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Contains(t, doc["paths"], "/validate")
}

func keys(m openapi3.Schemas) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
