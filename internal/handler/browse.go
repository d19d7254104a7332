package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/helenjin/databases-proj-group27/internal/database"
	"github.com/helenjin/databases-proj-group27/internal/repository"
)

// BrowseHandler serves the read-only movie pages. Repositories are built
// per request over the request's leased connection.
type BrowseHandler struct {
	QueryTimeout time.Duration
}

func NewBrowseHandler(queryTimeout time.Duration) *BrowseHandler {
	return &BrowseHandler{QueryTimeout: queryTimeout}
}

type indexPage struct {
	Titles []string
}

type listPage struct {
	Heading string
	Base    string
	Items   []string
}

// withConn runs fn on the request's connection under the query timeout.
func (h *BrowseHandler) withConn(c echo.Context, fn func(ctx context.Context, q database.Querier) error) error {
	conn, err := database.ConnFrom(c.Request().Context())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.QueryTimeout)
	defer cancel()
	return fn(ctx, conn)
}

// Index lists every movie title in storage order.
func (h *BrowseHandler) Index(c echo.Context) error {
	var titles []string
	err := h.withConn(c, func(ctx context.Context, q database.Querier) (err error) {
		titles, err = repository.NewMovieRepo(q).ListTitles(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "index.html", indexPage{Titles: titles})
}

func (h *BrowseHandler) renderList(c echo.Context, heading, base string, list func(ctx context.Context, q database.Querier) ([]string, error)) error {
	var items []string
	err := h.withConn(c, func(ctx context.Context, q database.Querier) (err error) {
		items, err = list(ctx, q)
		return err
	})
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "list.html", listPage{Heading: heading, Base: base, Items: items})
}

func (h *BrowseHandler) Movies(c echo.Context) error {
	return h.renderList(c, "Movies", "/movies", func(ctx context.Context, q database.Querier) ([]string, error) {
		return repository.NewMovieRepo(q).ListTitlesSorted(ctx)
	})
}

func (h *BrowseHandler) Directors(c echo.Context) error {
	return h.renderList(c, "Directors", "/directors", func(ctx context.Context, q database.Querier) ([]string, error) {
		return repository.NewDirectorRepo(q).ListNames(ctx)
	})
}

func (h *BrowseHandler) Genres(c echo.Context) error {
	return h.renderList(c, "Genres", "/genres", func(ctx context.Context, q database.Querier) ([]string, error) {
		return repository.NewGenreRepo(q).ListNames(ctx)
	})
}

func (h *BrowseHandler) Actors(c echo.Context) error {
	return h.renderList(c, "Actors", "/actors", func(ctx context.Context, q database.Querier) ([]string, error) {
		return repository.NewActorRepo(q).ListNames(ctx)
	})
}

// Movie renders a movie. An unknown title renders the empty record.
func (h *BrowseHandler) Movie(c echo.Context) error {
	title, err := pathParam(c, "title")
	if err != nil {
		return err
	}
	return h.withConn(c, func(ctx context.Context, q database.Querier) error {
		d, err := repository.NewMovieRepo(q).Detail(ctx, title)
		if err != nil {
			return err
		}
		return c.Render(http.StatusOK, "movie.html", d)
	})
}

// Director renders a director; unknown names are 404.
func (h *BrowseHandler) Director(c echo.Context) error {
	name, err := pathParam(c, "name")
	if err != nil {
		return err
	}
	return h.withConn(c, func(ctx context.Context, q database.Querier) error {
		d, err := repository.NewDirectorRepo(q).Detail(ctx, name)
		if err != nil {
			return err
		}
		return c.Render(http.StatusOK, "director.html", d)
	})
}

func (h *BrowseHandler) Genre(c echo.Context) error {
	name, err := pathParam(c, "genre_name")
	if err != nil {
		return err
	}
	return h.withConn(c, func(ctx context.Context, q database.Querier) error {
		d, err := repository.NewGenreRepo(q).Detail(ctx, name)
		if err != nil {
			return err
		}
		return c.Render(http.StatusOK, "genre.html", d)
	})
}

// Actor renders an actor; unknown names are 404.
func (h *BrowseHandler) Actor(c echo.Context) error {
	name, err := pathParam(c, "name")
	if err != nil {
		return err
	}
	return h.withConn(c, func(ctx context.Context, q database.Querier) error {
		d, err := repository.NewActorRepo(q).Detail(ctx, name)
		if err != nil {
			return err
		}
		return c.Render(http.StatusOK, "actor.html", d)
	})
}
