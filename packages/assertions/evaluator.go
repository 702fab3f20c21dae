package assertions

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/postcheck/packages/http"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Result is the outcome of one assertion.
type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

type Evaluator struct {
	response *http.Response
	body     gjson.Result
	baseDir  string // schema file paths are resolved against and confined to this
}

type EvaluatorOption func(*Evaluator)

// WithBaseDir sets the directory schema file paths are resolved against.
func WithBaseDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

func NewEvaluator(resp *http.Response, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		response: resp,
		body:     resp.JSON(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Evaluate(a Assertion) *Result {
	actual := e.resolve(a.Subject)
	passed, msg := e.check(a.Operator, actual, a.Expected)

	result := &Result{
		Passed:   passed,
		Message:  msg,
		Expected: a.Expected,
		Actual:   actual,
		Subject:  a.Subject,
		Operator: a.Operator.String(),
	}
	// Report the measured length rather than the whole value.
	if a.Operator == OpLength {
		result.Actual = computeLength(actual)
	}
	return result
}

// resolve returns the value a subject names. Missing body paths resolve to
// nil.
func (e *Evaluator) resolve(subject string) any {
	switch {
	case subject == "status":
		return e.response.StatusCode
	case subject == "duration":
		return e.response.DurationMs()
	case subject == "header":
		return e.response.Headers
	case strings.HasPrefix(subject, "header "):
		return e.response.Header(strings.TrimSpace(strings.TrimPrefix(subject, "header ")))
	case subject == "body":
		return e.bodyValue("")
	}

	path, _ := strings.CutPrefix(subject, "body.")
	return e.bodyValue(path)
}

func (e *Evaluator) bodyValue(path string) any {
	if !e.body.Exists() {
		if path == "" {
			return e.response.BodyString()
		}
		return nil
	}
	if path == "" {
		return e.body.Value()
	}
	return e.body.Get(gjsonPath(path)).Value()
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// gjsonPath rewrites bracket indexes to gjson dots: "[0].id" becomes "0.id"
// and "items[0].tags[1]" becomes "items.0.tags.1".
func gjsonPath(path string) string {
	return strings.TrimPrefix(bracketIndex.ReplaceAllString(path, ".$1"), ".")
}

type checkFunc func(actual, expected any) (bool, string)

var checks = map[Operator]checkFunc{
	OpEquals:         equals,
	OpGreaterThan:    numeric(">", func(a, b float64) bool { return a > b }),
	OpGreaterOrEqual: numeric(">=", func(a, b float64) bool { return a >= b }),
	OpLessThan:       numeric("<", func(a, b float64) bool { return a < b }),
	OpLessOrEqual:    numeric("<=", func(a, b float64) bool { return a <= b }),
	OpContains:       text("contain", strings.Contains),
	OpStartsWith:     text("start with", strings.HasPrefix),
	OpEndsWith:       text("end with", strings.HasSuffix),
	OpMatches:        matches,
	OpExists:         exists,
	OpNotEmpty:       notEmpty,
	OpLength:         length,
	OpIncludes:       includes,
	OpIncludesAll:    includesAll,
	OpSameID:         sameID,
	OpIncludesIDs:    includesIDs,
	OpIn:             in,
	OpType:           typeCheck,
}

func (e *Evaluator) check(op Operator, actual, expected any) (bool, string) {
	switch op {
	case OpNotEquals:
		if ok, _ := equals(actual, expected); ok {
			return false, fmt.Sprintf("expected not to equal %v", expected)
		}
		return true, ""
	case OpNotContains:
		if ok, _ := checks[OpContains](actual, expected); ok {
			return false, fmt.Sprintf("expected not to contain %v", expected)
		}
		return true, ""
	case OpNotExists:
		if actual != nil {
			return false, "expected not to exist"
		}
		return true, ""
	case OpSchema:
		return e.schema(actual, expected)
	}

	if fn, ok := checks[op]; ok {
		return fn(actual, expected)
	}
	return false, fmt.Sprintf("unknown operator: %v", op)
}

// equals compares JSON values exactly. Numbers compare by value, so 201 and
// a decoded 201.0 are equal; a string never equals a number.
func equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}
	a, aOk := number(actual)
	b, bOk := number(expected)
	if aOk && bOk && a == b {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func sameID(actual, expected any) (bool, string) {
	a, aOk := idString(actual)
	b, bOk := idString(expected)
	if aOk && bOk && a == b {
		return true, ""
	}
	return false, fmt.Sprintf("expected id %v, got %v", expected, actual)
}

// idString is the canonical form of an id: a string as is, a whole number
// in decimal. Other values are not ids.
func idString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, s != ""
	}
	f, ok := number(v)
	if !ok || f != math.Trunc(f) {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// number converts numeric kinds only; numeric strings are not numbers.
func number(v any) (float64, bool) {
	if _, ok := v.(string); ok {
		return 0, false
	}
	return toFloat64(v)
}

func numeric(symbol string, cmp func(a, b float64) bool) checkFunc {
	return func(actual, expected any) (bool, string) {
		a, aOk := toFloat64(actual)
		b, bOk := toFloat64(expected)
		if !aOk || !bOk {
			return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, symbol, expected)
		}
		if cmp(a, b) {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v %s %v", actual, symbol, expected)
	}
}

func text(verb string, fn func(s, sub string) bool) checkFunc {
	return func(actual, expected any) (bool, string) {
		if fn(fmt.Sprint(actual), fmt.Sprint(expected)) {
			return true, ""
		}
		return false, fmt.Sprintf("expected '%v' to %s '%v'", actual, verb, expected)
	}
}

// matches accepts a bare pattern or one wrapped in slashes.
func matches(actual, expected any) (bool, string) {
	pattern := strings.TrimSuffix(strings.TrimPrefix(fmt.Sprint(expected), "/"), "/")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}
	if re.MatchString(fmt.Sprint(actual)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
}

func exists(actual, _ any) (bool, string) {
	if actual == nil {
		return false, "expected to exist"
	}
	return true, ""
}

func notEmpty(actual, _ any) (bool, string) {
	switch {
	case actual == nil:
		return false, "expected a non-empty value, got nothing"
	case computeLength(actual) == 0:
		return false, "expected a non-empty value"
	}
	return true, ""
}

// computeLength returns the length of a string, array or object, or -1.
func computeLength(v any) int {
	if v == nil {
		return -1
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	}
	return -1
}

func length(actual, expected any) (bool, string) {
	want, ok := toInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}
	got := computeLength(actual)
	if got == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}
	if got != want {
		return false, fmt.Sprintf("expected length %d, got %d", want, got)
	}
	return true, ""
}

func containsValue(arr []any, v any) bool {
	return containsFunc(arr, v, equals)
}

func containsFunc(arr []any, v any, eq checkFunc) bool {
	for _, item := range arr {
		if ok, _ := eq(item, v); ok {
			return true
		}
	}
	return false
}

func includes(actual, expected any) (bool, string) {
	arr, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}
	if containsValue(arr, expected) {
		return true, ""
	}
	return false, fmt.Sprintf("expected array to include %v", expected)
}

// includesAll passes when expected is a subset of actual.
func includesAll(actual, expected any) (bool, string) {
	return subset(actual, expected, equals)
}

func includesIDs(actual, expected any) (bool, string) {
	return subset(actual, expected, sameID)
}

func subset(actual, expected any, eq checkFunc) (bool, string) {
	members, ok := toSlice(expected)
	if !ok {
		return false, fmt.Sprintf("expected members must be an array, got %T", expected)
	}
	arr, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}

	var missing []string
	for _, m := range members {
		if !containsFunc(arr, m, eq) {
			missing = append(missing, fmt.Sprint(m))
		}
	}
	if len(missing) > 0 {
		return false, fmt.Sprintf("expected %v to include members %v, missing [%s]", actual, members, strings.Join(missing, ", "))
	}
	return true, ""
}

func in(actual, expected any) (bool, string) {
	options, ok := toSlice(expected)
	if !ok {
		return false, fmt.Sprintf("expected array for 'in' operator, got %T", expected)
	}
	if containsValue(options, actual) {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v to be in %v", actual, expected)
}

func typeCheck(actual, expected any) (bool, string) {
	want := fmt.Sprint(expected)
	if got := jsonType(actual); got != want {
		return false, fmt.Sprintf("expected type %s, got %s", want, got)
	}
	return true, ""
}

// jsonType names v the way JSON Schema does.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return reflect.TypeOf(v).String()
}

// schema validates actual against a JSON schema given inline (starting with
// '{') or as a file path under the base directory.
func (e *Evaluator) schema(actual, expected any) (bool, string) {
	loader, err := e.schemaLoader(strings.TrimSpace(fmt.Sprint(expected)))
	if err != nil {
		return false, err.Error()
	}

	result, err := gojsonschema.Validate(loader, gojsonschema.NewGoLoader(actual))
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}
	if result.Valid() {
		return true, ""
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(errs, "; "))
}

func (e *Evaluator) schemaLoader(source string) (gojsonschema.JSONLoader, error) {
	if strings.HasPrefix(source, "{") {
		return gojsonschema.NewStringLoader(source), nil
	}

	path := source
	if !filepath.IsAbs(path) && e.baseDir != "" {
		path = filepath.Join(e.baseDir, path)
	}
	if err := validatePathWithinBase(path, e.baseDir); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %v", err)
	}
	return gojsonschema.NewBytesLoader(data), nil
}

// validatePathWithinBase rejects paths that resolve outside baseDir. An
// empty baseDir allows anything.
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	base, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}
	return nil
}

func toSlice(v any) ([]any, bool) {
	if arr, ok := v.([]any); ok {
		return arr, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	f, ok := toFloat64(v)
	return int(f), ok
}

// EvaluateAll evaluates every assertion against resp.
func EvaluateAll(resp *http.Response, assertions []Assertion, opts ...EvaluatorOption) []*Result {
	evaluator := NewEvaluator(resp, opts...)
	results := make([]*Result, len(assertions))
	for i, a := range assertions {
		results[i] = evaluator.Evaluate(a)
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []*Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
