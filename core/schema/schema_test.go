package schema_test

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/ticketportal/core/schema"
)

const (
	refTitle = `{ "$id" : "http://some_host.com/title.json",
		"type" : "string", "minLength" : 5, "maxLength" : 100 }`
	refPriority = `{ "$id" : "http://some_host.com/priority.json",
		"type" : "string", "enum" : ["LOW", "MEDIUM", "HIGH"] }`

	ticketSchema = `
	{ "$id" : "http://some_host.com/ticket.json",
	  "type" : "object",
	  "required" : ["title", "priority"],
	  "properties" : {
		"title" : { "$ref" : "http://some_host.com/title.json" },
		"priority" : { "$ref" : "http://some_host.com/priority.json" }
	  }
	}`
	ticketSchemaID = "http://some_host.com/ticket.json"
)

func TestValidateString(t *testing.T) {
	v, err := schema.NewValidator([]string{ticketSchema}, []string{refTitle, refPriority})
	require.NoError(t, err)
	assert.True(t, v.HasSchema(ticketSchemaID))
	assert.False(t, v.HasSchema("http://some_host.com/other.json"))

	assert.NoError(t, v.ValidateString(`{"title":"Login broken","priority":"HIGH"}`, ticketSchemaID))

	err = v.ValidateString(`{"title":"Nope","priority":"URGENT"}`, ticketSchemaID)
	var validationError *schema.ValidationError
	require.True(t, errors.As(err, &validationError))
	require.Len(t, validationError.Violations, 2)
	assert.Equal(t, "priority", validationError.Violations[0].Field)
	assert.Equal(t, "title", validationError.Violations[1].Field)
	assert.Contains(t, err.Error(), "title: ")

	err = v.ValidateString(`{"priority":"LOW"}`, ticketSchemaID)
	require.True(t, errors.As(err, &validationError))
	assert.Equal(t, "title: must not be null", err.Error())

	err = v.ValidateString(`{"title":`, ticketSchemaID)
	require.Error(t, err)
	assert.False(t, errors.As(err, &validationError))

	assert.Error(t, v.ValidateString(`{}`, "http://some_host.com/other.json"))
}

func TestValidateStruct(t *testing.T) {
	type Ticket struct {
		Title    string `json:"title"`
		Priority string `json:"priority"`
	}

	v, err := schema.NewValidator([]string{ticketSchema}, []string{refTitle, refPriority})
	require.NoError(t, err)

	assert.NoError(t, v.ValidateStruct(Ticket{Title: "Dark mode please", Priority: "LOW"}, ticketSchemaID))
	assert.Error(t, v.ValidateStruct(Ticket{Title: "Dark mode please"}, ticketSchemaID))
}

func TestNewValidator_Errors(t *testing.T) {
	_, err := schema.NewValidator([]string{`{"type":"object"}`}, nil)
	assert.Error(t, err, "schema without $id")

	_, err = schema.NewValidator([]string{`not json`}, nil)
	assert.Error(t, err)
}

func TestNewValidatorFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"ticket.json":        {Data: []byte(ticketSchema)},
		"README.md":          {Data: []byte("ignored")},
		"refs/title.json":    {Data: []byte(refTitle)},
		"refs/priority.json": {Data: []byte(refPriority)},
	}
	v, err := schema.NewValidatorFromFS(fsys)
	require.NoError(t, err)
	assert.True(t, v.HasSchema(ticketSchemaID))
	assert.NoError(t, v.ValidateBytes([]byte(`{"title":"Login broken","priority":"MEDIUM"}`), ticketSchemaID))

	// refs are optional
	v, err = schema.NewValidatorFromFS(fstest.MapFS{
		"plain.json": {Data: []byte(`{"$id":"http://some_host.com/plain.json","type":"string"}`)},
	})
	require.NoError(t, err)
	assert.NoError(t, v.ValidateString(`"text"`, "http://some_host.com/plain.json"))
}
