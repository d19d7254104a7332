package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/helenjin/databases-proj-group27/internal/database"
	"github.com/helenjin/databases-proj-group27/internal/model"
)

// MovieRepo encapsulates the queries behind the index, the movie list and
// the movie detail page.
type MovieRepo struct {
	db database.Querier
}

func NewMovieRepo(db database.Querier) *MovieRepo {
	return &MovieRepo{db: db}
}

// ListTitles returns every title in storage order.
func (r *MovieRepo) ListTitles(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, r.db, "list movie titles", "SELECT title FROM movie")
}

// ListTitlesSorted returns every title alphabetically.
func (r *MovieRepo) ListTitlesSorted(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, r.db, "list movie titles sorted", "SELECT title FROM movie ORDER BY title")
}

// Detail loads the movie with the given title together with its directors,
// cast and awards. When titles repeat the lowest id wins. An unknown title
// is not an error: the zero MovieDetail with empty lists is returned.
func (r *MovieRepo) Detail(ctx context.Context, title string) (model.MovieDetail, error) {
	d := model.MovieDetail{Directors: []string{}, Actors: []string{}, Awards: []string{}}

	const qMovie = "SELECT id, title, popularity, length, year FROM movie WHERE title = ? ORDER BY id LIMIT 1"
	var (
		popularity   sql.NullFloat64
		length, year sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, qMovie, title).Scan(&d.ID, &d.Title, &popularity, &length, &year)
	if errors.Is(err, sql.ErrNoRows) {
		return d, nil
	}
	if err != nil {
		return d, queryErr("get movie", err)
	}
	d.Popularity = popularity.Float64
	d.Length = length.Int64
	d.Year = year.Int64

	const qDirectors = "SELECT director_name FROM directs WHERE movie_id = ? ORDER BY director_name"
	if d.Directors, err = queryStrings(ctx, r.db, "list movie directors", qDirectors, d.ID); err != nil {
		return model.MovieDetail{}, err
	}

	const qActors = `SELECT actor.name FROM actor
		INNER JOIN plays_in ON actor.id = plays_in.actor_id
		WHERE plays_in.movie_id = ? ORDER BY actor.name`
	if d.Actors, err = queryStrings(ctx, r.db, "list movie actors", qActors, d.ID); err != nil {
		return model.MovieDetail{}, err
	}

	const qAwards = "SELECT award_name FROM won WHERE id = ? ORDER BY award_name"
	if d.Awards, err = queryStrings(ctx, r.db, "list movie awards", qAwards, d.ID); err != nil {
		return model.MovieDetail{}, err
	}
	return d, nil
}
