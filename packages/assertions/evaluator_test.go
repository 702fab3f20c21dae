package assertions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createResponse(statusCode int, body string, headers map[string]string) *http.Response {
	if headers == nil {
		headers = make(map[string]string)
	}
	if _, ok := headers["Content-Type"]; !ok {
		headers["Content-Type"] = "application/json"
	}
	return &http.Response{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       []byte(body),
		Duration:   100 * time.Millisecond,
	}
}

func TestEvaluator_StatusCode(t *testing.T) {
	resp := createResponse(201, `{}`, nil)
	e := NewEvaluator(resp)

	result := e.Evaluate(Status(201))

	assert.True(t, result.Passed)
	assert.Equal(t, 201, result.Actual)

	result = e.Evaluate(Status(200))
	assert.False(t, result.Passed)
	assert.Equal(t, "expected 200, got 201", result.Message)
}

func TestEvaluator_Body_JSONPath(t *testing.T) {
	resp := createResponse(200, `{"id": 7, "title": "Hello", "blank": "", "user": {"email": "a@b.io"}}`, nil)
	e := NewEvaluator(resp)

	tests := []struct {
		name      string
		assertion Assertion
		passed    bool
	}{
		{"nested path equals", BodyEquals("user.email", "a@b.io"), true},
		{"numeric id", BodyEquals("id", 7), true},
		{"numeric id as string", BodyEquals("id", "7"), false},
		{"id tolerates string form", BodyID("id", "7"), true},
		{"wrong title", BodyEquals("title", "Bye"), false},
		{"bare path", Assertion{Subject: "title", Operator: OpEquals, Expected: "Hello"}, true},
		{"not empty", BodyNotEmpty("title"), true},
		{"missing is empty", BodyNotEmpty("missing"), false},
		{"empty string is empty", BodyNotEmpty("blank"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(tt.assertion)
			assert.Equal(t, tt.passed, result.Passed, "Message: %s", result.Message)
		})
	}
}

func TestEvaluator_Body_Array(t *testing.T) {
	resp := createResponse(200, `[{"id": 55}, {"id": 60}, {"id": 61}]`, nil)
	e := NewEvaluator(resp)

	t.Run("array length", func(t *testing.T) {
		result := e.Evaluate(BodyLength("", 3))
		assert.True(t, result.Passed)
		assert.Equal(t, 3, result.Actual)
	})

	t.Run("length mismatch", func(t *testing.T) {
		result := e.Evaluate(BodyLength("", 10))
		assert.False(t, result.Passed)
		assert.Equal(t, "expected length 10, got 3", result.Message)
	})

	t.Run("bracket notation access", func(t *testing.T) {
		result := e.Evaluate(BodyEquals("[1].id", 60))
		assert.True(t, result.Passed, "Message: %s", result.Message)
	})

	t.Run("gjson projection includes all", func(t *testing.T) {
		result := e.Evaluate(Assertion{Subject: "body.#.id", Operator: OpIncludesAll, Expected: []any{55, 60}})
		assert.True(t, result.Passed, "Message: %s", result.Message)
	})

	t.Run("includes all reports missing members", func(t *testing.T) {
		result := e.Evaluate(Assertion{Subject: "body.#.id", Operator: OpIncludesAll, Expected: []any{55, 99}})
		assert.False(t, result.Passed)
		assert.Contains(t, result.Message, "missing [99]")
	})

	t.Run("includes", func(t *testing.T) {
		result := e.Evaluate(Assertion{Subject: "body.#.id", Operator: OpIncludes, Expected: 61})
		assert.True(t, result.Passed)
	})
}

func TestEvaluator_IncludesAll_NonArray(t *testing.T) {
	resp := createResponse(200, `{"id": 55}`, nil)
	result := NewEvaluator(resp).Evaluate(Assertion{Subject: "body.id", Operator: OpIncludesAll, Expected: []any{55}})

	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "expected array")
}

func TestEvaluator_EqualsIsExact(t *testing.T) {
	resp := createResponse(200, `{"id": 5, "title": "1e3", "flag": "true", "postDate": "2024-01-02T03:04:05.000Z"}`, nil)
	e := NewEvaluator(resp)

	tests := []struct {
		name      string
		assertion Assertion
		passed    bool
	}{
		{"number by value", BodyEquals("id", 5), true},
		{"number vs numeric string", BodyEquals("id", "5"), false},
		{"string vs equivalent number", BodyEquals("title", "1000"), false},
		{"string vs float", BodyEquals("title", 1000), false},
		{"string vs bool", BodyEquals("flag", true), false},
		{"exact string", BodyEquals("postDate", "2024-01-02T03:04:05.000Z"), true},
		{"truncated date", BodyEquals("postDate", "2024-01-02T03:04:05Z"), false},
		{"not equals numeric string", Assertion{Subject: "body.id", Operator: OpNotEquals, Expected: "5"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(tt.assertion)
			assert.Equal(t, tt.passed, result.Passed, "Message: %s", result.Message)
		})
	}
}

func TestEvaluator_SameID(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"num": 55, "str": "55", "uuid": "a1b2", "frac": 5.5, "exp": "1e3"}`, nil))

	tests := []struct {
		name      string
		assertion Assertion
		passed    bool
	}{
		{"number and int", BodyID("num", 55), true},
		{"number and string", BodyID("num", "55"), true},
		{"string and int", BodyID("str", 55), true},
		{"string and string", BodyID("uuid", "a1b2"), true},
		{"different id", BodyID("num", 56), false},
		{"fractions are not ids", BodyID("frac", 5.5), false},
		{"no numeric parsing of strings", BodyID("exp", 1000), false},
		{"missing", BodyID("missing", 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(tt.assertion)
			assert.Equal(t, tt.passed, result.Passed, "Message: %s", result.Message)
		})
	}
}

func TestEvaluator_IncludesIDs(t *testing.T) {
	numeric := NewEvaluator(createResponse(200, `[{"id": 55}, {"id": 60}]`, nil))
	assert.True(t, numeric.Evaluate(BodyIncludesIDs("#.id", []string{"55", "60"})).Passed)

	strs := NewEvaluator(createResponse(200, `[{"id": "55"}, {"id": "60"}]`, nil))
	assert.True(t, strs.Evaluate(BodyIncludesIDs("#.id", []string{"60"})).Passed)

	result := numeric.Evaluate(BodyIncludesIDs("#.id", []string{"55", "600"}))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "missing [600]")

	assert.False(t, strs.Evaluate(Assertion{Subject: "body.#.id", Operator: OpIncludesAll, Expected: []any{55}}).Passed)
}

func TestEvaluator_Exists(t *testing.T) {
	resp := createResponse(200, `{"accessToken": "abc", "user": null}`, nil)
	e := NewEvaluator(resp)

	t.Run("exists - present", func(t *testing.T) {
		assert.True(t, e.Evaluate(BodyExists("accessToken")).Passed)
	})

	t.Run("exists - null value", func(t *testing.T) {
		assert.False(t, e.Evaluate(BodyExists("user")).Passed)
	})

	t.Run("not exists - missing", func(t *testing.T) {
		result := e.Evaluate(Assertion{Subject: "body.missing", Operator: OpNotExists})
		assert.True(t, result.Passed)
	})
}

func TestEvaluator_StringOperators(t *testing.T) {
	resp := createResponse(200, `{"content": "Hello, World!", "postDate": "2026-10-17T10:00:00.000Z"}`, nil)
	e := NewEvaluator(resp)

	tests := []struct {
		name     string
		subject  string
		operator Operator
		expected any
	}{
		{"contains", "body.content", OpContains, "World"},
		{"not contains", "body.content", OpNotContains, "Goodbye"},
		{"starts with", "body.content", OpStartsWith, "Hello"},
		{"ends with", "body.content", OpEndsWith, "!"},
		{"matches", "body.postDate", OpMatches, `^\d{4}-\d{2}-\d{2}T`},
		{"matches with slashes", "body.postDate", OpMatches, `/Z$/`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(Assertion{Subject: tt.subject, Operator: tt.operator, Expected: tt.expected})
			assert.True(t, result.Passed, "Message: %s", result.Message)
		})
	}
}

func TestEvaluator_Type(t *testing.T) {
	resp := createResponse(200, `{
		"string": "hello",
		"number": 42,
		"boolean": true,
		"array": [1, 2, 3],
		"object": {"key": "value"},
		"null": null
	}`, nil)
	e := NewEvaluator(resp)

	tests := []struct {
		subject  string
		expected string
	}{
		{"body.string", "string"},
		{"body.number", "number"},
		{"body.boolean", "boolean"},
		{"body.array", "array"},
		{"body.object", "object"},
		{"body.null", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			result := e.Evaluate(Assertion{Subject: tt.subject, Operator: OpType, Expected: tt.expected})
			assert.True(t, result.Passed, "Message: %s", result.Message)
		})
	}
}

func TestEvaluator_In(t *testing.T) {
	resp := createResponse(404, `{}`, nil)
	e := NewEvaluator(resp)

	result := e.Evaluate(Assertion{Subject: "status", Operator: OpIn, Expected: []int{400, 404}})
	assert.True(t, result.Passed, "Message: %s", result.Message)

	result = e.Evaluate(Assertion{Subject: "status", Operator: OpIn, Expected: "404"})
	assert.False(t, result.Passed)
}

func TestEvaluator_Duration(t *testing.T) {
	resp := createResponse(200, `{}`, nil)
	resp.Duration = 50 * time.Millisecond

	result := NewEvaluator(resp).Evaluate(Assertion{Subject: "duration", Operator: OpLessThan, Expected: 100})
	assert.True(t, result.Passed)
}

func TestEvaluator_Header(t *testing.T) {
	resp := createResponse(200, `{}`, map[string]string{
		"Content-Type": "application/json; charset=utf-8",
		"X-Powered-By": "Express",
	})
	e := NewEvaluator(resp)

	assert.True(t, e.Evaluate(HeaderContains("Content-Type", "json")).Passed)
	assert.True(t, e.Evaluate(Assertion{Subject: "header X-Powered-By", Operator: OpEquals, Expected: "Express"}).Passed)
}

func TestEvaluator_PlainTextBody(t *testing.T) {
	resp := createResponse(401, `jwt malformed`, map[string]string{"Content-Type": "text/plain"})
	e := NewEvaluator(resp)

	assert.True(t, e.Evaluate(Assertion{Subject: "body", Operator: OpContains, Expected: "jwt"}).Passed)
	assert.False(t, e.Evaluate(BodyExists("id")).Passed)
}

const postSchema = `{
	"type": "object",
	"required": ["id", "title", "content"],
	"properties": {
		"id": {"type": ["integer", "string"]},
		"title": {"type": "string"},
		"content": {"type": "string"}
	}
}`

func TestEvaluator_Schema_Inline(t *testing.T) {
	e := NewEvaluator(createResponse(201, `{"id": 101, "title": "t", "content": "c"}`, nil))
	result := e.Evaluate(BodySchema("", postSchema))
	assert.True(t, result.Passed, "Message: %s", result.Message)

	e = NewEvaluator(createResponse(201, `{"id": 101}`, nil))
	result = e.Evaluate(BodySchema("", postSchema))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "schema validation failed")
}

func TestEvaluator_Schema_File(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "post.schema.json"), []byte(postSchema), 0644)
	require.NoError(t, err)

	resp := createResponse(200, `{"id": "5", "title": "t", "content": "c"}`, nil)
	result := NewEvaluator(resp, WithBaseDir(tmpDir)).Evaluate(BodySchema("", "post.schema.json"))
	assert.True(t, result.Passed, "Message: %s", result.Message)
}

func TestEvaluator_Schema_PathTraversal(t *testing.T) {
	tmpDir := t.TempDir()
	resp := createResponse(200, `{}`, nil)

	result := NewEvaluator(resp, WithBaseDir(tmpDir)).Evaluate(BodySchema("", "../../../etc/passwd"))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "path traversal")
}

func TestEvaluateAll(t *testing.T) {
	resp := createResponse(200, `{"id": 5, "title": "ok"}`, nil)

	results := EvaluateAll(resp, []Assertion{
		Status(200),
		BodyEquals("title", "ok"),
		{Subject: "body.id", Operator: OpGreaterThan, Expected: 0},
	})

	assert.Len(t, results, 3)
	assert.True(t, AllPassed(results))

	results = EvaluateAll(resp, []Assertion{Status(200), Status(404)})
	assert.False(t, AllPassed(results))
}

func TestAssertion_String(t *testing.T) {
	assert.Equal(t, "status == 201", Status(201).String())
	assert.Equal(t, "body.accessToken exists", BodyExists("accessToken").String())
}

func TestValidatePathWithinBase(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		baseDir string
		wantErr bool
	}{
		{"path within base", "/home/user/project/schema.json", "/home/user/project", false},
		{"path traversal", "/home/user/project/../../../etc/passwd", "/home/user/project", true},
		{"empty base", "/any/path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePathWithinBase(tt.path, tt.baseDir)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
