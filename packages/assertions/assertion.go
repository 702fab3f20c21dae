package assertions

import "fmt"

// Assertion is a single expectation about a response.
//
// Subject is one of "status", "duration", "header <Name>", "body" or
// "body.<path>"; a bare path is treated as a body path.
type Assertion struct {
	Subject  string
	Operator Operator
	Expected any
}

func (a Assertion) String() string {
	if a.Operator.unary() {
		return fmt.Sprintf("%s %s", a.Subject, a.Operator)
	}
	return fmt.Sprintf("%s %s %v", a.Subject, a.Operator, a.Expected)
}

type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpExists
	OpNotExists
	OpNotEmpty
	OpLength
	OpIncludes
	OpIncludesAll
	OpIn
	OpType
	OpSchema
	OpSameID
	OpIncludesIDs
)

var operatorNames = [...]string{
	OpEquals:         "==",
	OpNotEquals:      "!=",
	OpGreaterThan:    ">",
	OpGreaterOrEqual: ">=",
	OpLessThan:       "<",
	OpLessOrEqual:    "<=",
	OpContains:       "contains",
	OpNotContains:    "!contains",
	OpStartsWith:     "startsWith",
	OpEndsWith:       "endsWith",
	OpMatches:        "matches",
	OpExists:         "exists",
	OpNotExists:      "!exists",
	OpNotEmpty:       "notEmpty",
	OpLength:         "length",
	OpIncludes:       "includes",
	OpIncludesAll:    "includesAll",
	OpIn:             "in",
	OpType:           "type",
	OpSchema:         "schema",
	OpSameID:         "sameId",
	OpIncludesIDs:    "includesIds",
}

func (op Operator) String() string {
	if op < 0 || int(op) >= len(operatorNames) {
		return "unknown"
	}
	return operatorNames[op]
}

// unary operators take no expected value.
func (op Operator) unary() bool {
	return op == OpExists || op == OpNotExists || op == OpNotEmpty
}

// Shorthand constructors used by scenario definitions.

func Status(code int) Assertion {
	return Assertion{Subject: "status", Operator: OpEquals, Expected: code}
}

func HeaderContains(name, substr string) Assertion {
	return Assertion{Subject: "header " + name, Operator: OpContains, Expected: substr}
}

func BodyEquals(path string, expected any) Assertion {
	return Assertion{Subject: bodySubject(path), Operator: OpEquals, Expected: expected}
}

func BodyExists(path string) Assertion {
	return Assertion{Subject: bodySubject(path), Operator: OpExists}
}

func BodyNotEmpty(path string) Assertion {
	return Assertion{Subject: bodySubject(path), Operator: OpNotEmpty}
}

func BodyLength(path string, n int) Assertion {
	return Assertion{Subject: bodySubject(path), Operator: OpLength, Expected: n}
}

// BodyID passes when the id at path is id, whether either side is a JSON
// number or a string holding one.
func BodyID(path string, id any) Assertion {
	return Assertion{Subject: bodySubject(path), Operator: OpSameID, Expected: id}
}

// BodyIncludesIDs passes when every id appears in the array at path, with ids
// compared like BodyID.
func BodyIncludesIDs(path string, ids []string) Assertion {
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	return Assertion{Subject: bodySubject(path), Operator: OpIncludesIDs, Expected: members}
}

// BodySchema validates the body against an inline JSON schema document or a
// schema file path.
func BodySchema(path string, schema string) Assertion {
	return Assertion{Subject: bodySubject(path), Operator: OpSchema, Expected: schema}
}

func bodySubject(path string) string {
	if path == "" {
		return "body"
	}
	return "body." + path
}
