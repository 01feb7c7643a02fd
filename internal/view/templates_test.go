package view

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderStatus(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, engine.RenderStatus(rec, 404, "pages/error.html", TemplateData{
		Title: "Not found",
		Data:  map[string]any{"Message": "No such screen"},
	}))
	assert.Equal(t, 404, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "No such screen"))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "950", FormatNumber("950"))
	assert.Equal(t, "", FormatNumber(""))
	assert.Equal(t, "KA", FormatNumber("KA"))
	grouped := FormatNumber("1234567")
	assert.NotEqual(t, "1234567", grouped)
	assert.Equal(t, "1234567", strings.ReplaceAll(grouped, ",", ""))
}

func TestStarsAndArrows(t *testing.T) {
	assert.Equal(t, "★★★★☆", Stars("4.2"))
	assert.Equal(t, "☆☆☆☆☆", Stars("-1"))
	assert.Equal(t, "n/a", Stars("n/a"))
	assert.Equal(t, "▲", SortArrow("asc"))
	assert.Equal(t, "▼", SortArrow("desc"))
	assert.Equal(t, "", SortArrow("none"))
}
