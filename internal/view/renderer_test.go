package view

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helenjin/databases-proj-group27/internal/middleware"
	"github.com/helenjin/databases-proj-group27/internal/model"
)

func render(t *testing.T, name string, id model.Identity, data any) string {
	t.Helper()
	r, err := New()
	require.NoError(t, err)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	middleware.SetIdentity(c, id)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, name, data, c))
	return buf.String()
}

func TestEveryPageParses(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	for _, name := range []string{"index.html", "list.html", "movie.html", "director.html",
		"genre.html", "actor.html", "login.html", "register.html", "error.html"} {
		assert.Contains(t, r.pages, name)
	}
	assert.NotContains(t, r.pages, layoutFile)
}

func TestLayoutShowsIdentity(t *testing.T) {
	out := render(t, "index.html", model.Identity{Username: "ada"}, map[string]any{"Titles": []string{}})
	assert.Contains(t, out, "Logged in as ada")
	assert.NotContains(t, out, `href="/login"`)

	out = render(t, "index.html", model.Anonymous, map[string]any{"Titles": []string{}})
	assert.NotContains(t, out, "Logged in as")
	assert.Contains(t, out, `href="/login"`)
}

func TestDetailLinksAreEscaped(t *testing.T) {
	out := render(t, "movie.html", model.Anonymous, model.MovieDetail{
		Movie:     model.Movie{Title: "Heat"},
		Directors: []string{"Michael Mann"},
		Actors:    []string{"Al Pacino"},
		Awards:    []string{},
	})
	assert.Contains(t, out, `href="/directors/Michael%20Mann"`)
	assert.Contains(t, out, `href="/actors/Al%20Pacino"`)
}

func TestTemplateEscapesUserInput(t *testing.T) {
	out := render(t, "login.html", model.Anonymous, map[string]any{
		"Error":    "Incorrect username.",
		"Username": `<script>alert(1)</script>`,
	})
	assert.Contains(t, out, "Incorrect username.")
	assert.NotContains(t, out, "<script>")
}

func TestUnknownTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Error(t, r.Render(&bytes.Buffer{}, "nope.html", nil, c))
}
