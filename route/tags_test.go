package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type courseQuery struct {
	ID       string  `param:"id" validate:"required,uuid" doc:"Course ID"`
	Page     int     `query:"page" default:"1" description:"Page number"`
	Visible  bool    `query:"visible"`
	MinScore float64 `query:"minscore" validate:"required"`
	Code     string  `query:"code" validate:"regexp=[A-Z]{3}" example:"CSC"`
	Lang     string  `header:"Accept-Language" validate:"alpha" deprecated:"true"`
	Body     string  `json:"body"`
	hidden   string  `query:"hidden"` //nolint:unused // verifies unexported fields are skipped
}

func TestParamsFromStruct(t *testing.T) {
	params, err := ParamsFromStruct(&courseQuery{})
	require.NoError(t, err)
	require.Len(t, params, 6)

	id := params[0]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, InPath, id.In)
	assert.Equal(t, TypeUUID, id.Type)
	assert.Equal(t, "Course ID", id.Description)

	page := params[1]
	assert.Equal(t, InQuery, page.In)
	assert.Equal(t, TypeInt, page.Type)
	assert.Equal(t, int64(1), page.Default)
	assert.Equal(t, "Page number", page.Description)
	assert.False(t, page.Required)

	assert.Equal(t, TypeBool, params[2].Type)

	minScore := params[3]
	assert.Equal(t, TypeFloat, minScore.Type)
	assert.True(t, minScore.Required)

	code := params[4]
	assert.Equal(t, TypeText, code.Type)
	assert.Equal(t, "[A-Z]{3}", code.Pattern)
	require.NotNil(t, code.Example)
	assert.Equal(t, "CSC", code.Example.Value)

	lang := params[5]
	assert.Equal(t, InHeader, lang.In)
	assert.Equal(t, "Accept-Language", lang.Name)
	assert.Equal(t, TypeAlpha, lang.Type)
	assert.True(t, lang.Deprecated)
}

func TestParamsFromStructErrors(t *testing.T) {
	_, err := ParamsFromStruct(42)
	assert.Error(t, err)

	type badDefault struct {
		Page int `query:"page" default:"first"`
	}
	_, err = ParamsFromStruct(badDefault{})
	assert.Error(t, err)

	type requiredWithDefault struct {
		Page int `query:"page" validate:"required" default:"1"`
	}
	_, err = ParamsFromStruct(requiredWithDefault{})
	assert.Error(t, err)

	assert.Panics(t, func() { MustParamsFromStruct("nope") })
}

func TestParseValidateTag(t *testing.T) {
	c := parseValidateTag(`required, min=1,oneof="a b"`)
	assert.Equal(t, map[string]string{"required": "true", "min": "1", "oneof": "a b"}, c)
	assert.Empty(t, parseValidateTag(""))
}
