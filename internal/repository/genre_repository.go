package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/helenjin/databases-proj-group27/internal/database"
	"github.com/helenjin/databases-proj-group27/internal/model"
)

type GenreRepo struct {
	db database.Querier
}

func NewGenreRepo(db database.Querier) *GenreRepo {
	return &GenreRepo{db: db}
}

func (r *GenreRepo) ListNames(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, r.db, "list genres", "SELECT genre_name FROM genre ORDER BY genre_name")
}

// Detail returns the genre with the titles tagged with it. An unknown genre
// yields the zero GenreDetail with an empty list.
func (r *GenreRepo) Detail(ctx context.Context, name string) (model.GenreDetail, error) {
	d := model.GenreDetail{Movies: []string{}}

	const q = "SELECT genre_name FROM genre WHERE genre_name = ?"
	err := r.db.QueryRowContext(ctx, q, name).Scan(&d.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return d, nil
	}
	if err != nil {
		return d, queryErr("get genre", err)
	}

	const qMovies = `SELECT movie.title FROM movie
		INNER JOIN is_a ON movie.id = is_a.id
		WHERE is_a.genre_name = ? ORDER BY movie.title`
	movies, err := queryStrings(ctx, r.db, "list genre movies", qMovies, name)
	if err != nil {
		return model.GenreDetail{}, err
	}
	d.Movies = movies
	return d, nil
}
