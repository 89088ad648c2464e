package devserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPath_Parts(t *testing.T) {
	assert.Equal(t, []PathPart{
		{Type: StaticPart, Value: "/modules/"},
		{Type: WildcardPart, Value: "*"},
	}, Path("/modules/{*}").Parts())

	assert.Equal(t, []PathPart{
		{Type: StaticPart, Value: "/runs/"},
		{Type: ParameterPart, Value: "id"},
		{Type: StaticPart, Value: "/log"},
	}, Path("/runs/{id}/log").Parts())

	assert.Equal(t, []PathPart{
		{Type: StaticPart, Value: "/broken"},
		{Type: StaticPart, Value: "{oops"},
	}, Path("/broken{oops").Parts())
}

func TestPath_Format(t *testing.T) {
	p := Path("/runs/{id}/modules/{*}")
	assert.Equal(t, "/runs/:id/modules/*", p.format(colonParam, "*"))
	assert.Equal(t, "/runs/:id/modules/*path", p.format(colonParam, "*path"))
}
