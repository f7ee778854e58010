package openapi

import (
	"encoding/json"
	"testing"

	casefile "github.com/goliatone/go-casefile"
)

func requestSchema(t *testing.T, document map[string]any, path, method, contentType string) map[string]any {
	t.Helper()
	paths := document["paths"].(map[string]any)
	pathItem, ok := paths[path].(map[string]any)
	if !ok {
		t.Fatalf("path %q missing: %v", path, paths)
	}
	operation := pathItem[method].(map[string]any)
	content := operation["requestBody"].(map[string]any)["content"].(map[string]any)
	media, ok := content[contentType].(map[string]any)
	if !ok {
		t.Fatalf("content type %q missing: %v", contentType, content)
	}
	return media["schema"].(map[string]any)
}

func TestGenerateFromRegistry(t *testing.T) {
	schemaDoc, err := NewGenerator().Generate(casefile.DefaultRegistry())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if schemaDoc.Format != casefile.SchemaFormatOpenAPI {
		t.Fatalf("format = %s", schemaDoc.Format)
	}

	document := schemaDoc.Document.(map[string]any)
	if document["openapi"] != "3.0.3" {
		t.Fatalf("openapi version = %v", document["openapi"])
	}
	info := document["info"].(map[string]any)
	if info["title"] != "Case Field Intake" {
		t.Fatalf("title = %v", info["title"])
	}

	schema := requestSchema(t, document, "/casefile/fields", "post", "application/json")
	properties := schema["properties"].(map[string]any)
	if len(properties) != casefile.DefaultRegistry().Len() {
		t.Fatalf("properties = %d, want one per field", len(properties))
	}

	crm := properties["crm_system"].(map[string]any)
	if crm["type"] != "string" || crm["title"] != "CRM System" {
		t.Fatalf("crm_system = %v", crm)
	}
	enum := crm["enum"].([]any)
	if len(enum) != 6 {
		t.Fatalf("enum = %v", enum)
	}
	formgen := crm["x-formgen"].(map[string]any)
	if formgen["widget"] != "select" || formgen["path"] != "modules.overview.crmName" {
		t.Fatalf("x-formgen = %v", formgen)
	}

	endpoint := properties["api_endpoint_url"].(map[string]any)
	if endpoint["format"] != "uri" || endpoint["pattern"] != `^https?://.+` {
		t.Fatalf("api_endpoint_url = %v", endpoint)
	}

	limit := properties["email_daily_limit"].(map[string]any)
	if limit["type"] != "number" || limit["minimum"] != 0.0 || limit["maximum"] != 1000000.0 {
		t.Fatalf("email_daily_limit = %v", limit)
	}

	required := schema["required"].([]string)
	if len(required) == 0 {
		t.Fatal("no required fields")
	}
	for i := 1; i < len(required); i++ {
		if required[i-1] > required[i] {
			t.Fatalf("required not sorted: %v", required)
		}
	}
}

func TestGenerateFromSingleField(t *testing.T) {
	field, _ := casefile.DefaultRegistry().FieldByID("form_webhook_capability")

	schemaDoc, err := NewGenerator().Generate(field)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	schema := requestSchema(t, schemaDoc.Document.(map[string]any), "/casefile/fields", "post", "application/json")
	properties := schema["properties"].(map[string]any)
	webhook := properties["form_webhook_capability"].(map[string]any)
	if webhook["type"] != "boolean" {
		t.Fatalf("webhook = %v", webhook)
	}
}

func TestGenerateReflectsDocuments(t *testing.T) {
	doc := casefile.NewDocument("Acme")
	doc.Modules["overview"] = map[string]any{"crmName": "HubSpot"}

	schemaDoc, err := NewGenerator().Generate(doc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	schema := requestSchema(t, schemaDoc.Document.(map[string]any), "/casefile/fields", "post", "application/json")
	properties := schema["properties"].(map[string]any)

	id := properties["id"].(map[string]any)
	if id["type"] != "string" {
		t.Fatalf("id = %v", id)
	}
	created := properties["createdAt"].(map[string]any)
	if created["format"] != "date-time" {
		t.Fatalf("createdAt = %v", created)
	}
	modules := properties["modules"].(map[string]any)
	if modules["type"] != "object" {
		t.Fatalf("modules = %v", modules)
	}
}

func TestGeneratorOptions(t *testing.T) {
	schemaDoc, err := NewGenerator(
		WithOpenAPIVersion("3.1.0"),
		WithInfo("Intake Forms", "2.0.0", WithInfoDescription("field catalog intake")),
		WithOperation("/intake", "PUT", "", WithOperationSummary("submit intake values")),
		WithContentType("application/vnd.api+json"),
		WithResponse("400", "validation failed"),
	).Generate(casefile.DefaultRegistry())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	document := schemaDoc.Document.(map[string]any)
	if document["openapi"] != "3.1.0" {
		t.Fatalf("version = %v", document["openapi"])
	}
	info := document["info"].(map[string]any)
	if info["title"] != "Intake Forms" || info["description"] != "field catalog intake" {
		t.Fatalf("info = %v", info)
	}

	paths := document["paths"].(map[string]any)
	pathItem := paths["/intake"].(map[string]any)
	operation := pathItem["put"].(map[string]any)
	if operation["summary"] != "submit intake values" {
		t.Fatalf("operation = %v", operation)
	}
	// operationId keeps the configured default shape when not overridden
	if operation["operationId"] != "post:/casefile/fields" {
		t.Fatalf("operationId = %v", operation["operationId"])
	}
	responses := operation["responses"].(map[string]any)
	if _, ok := responses["400"]; !ok {
		t.Fatalf("responses = %v", responses)
	}
}

func TestGeneratedDocumentSerializes(t *testing.T) {
	schemaDoc, err := NewGenerator().Generate(casefile.DefaultRegistry())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := json.Marshal(schemaDoc.Document); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
}
