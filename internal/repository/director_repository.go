package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/helenjin/databases-proj-group27/internal/database"
	"github.com/helenjin/databases-proj-group27/internal/model"
)

type DirectorRepo struct {
	db database.Querier
}

func NewDirectorRepo(db database.Querier) *DirectorRepo {
	return &DirectorRepo{db: db}
}

// ListNames returns all director names alphabetically.
func (r *DirectorRepo) ListNames(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, r.db, "list directors", "SELECT name FROM director ORDER BY name")
}

// Detail returns the director and the titles they directed. It returns
// ErrDirectorNotFound when no director has that name.
func (r *DirectorRepo) Detail(ctx context.Context, name string) (model.DirectorDetail, error) {
	var (
		d      model.DirectorDetail
		studio sql.NullString
	)
	const q = "SELECT name, studio FROM director WHERE name = ?"
	if err := r.db.QueryRowContext(ctx, q, name).Scan(&d.Name, &studio); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DirectorDetail{}, ErrDirectorNotFound
		}
		return model.DirectorDetail{}, queryErr("get director", err)
	}
	d.Studio = studio.String

	const qMovies = `SELECT movie.title FROM movie
		INNER JOIN directs ON movie.id = directs.movie_id
		WHERE directs.director_name = ? ORDER BY movie.title`
	movies, err := queryStrings(ctx, r.db, "list director movies", qMovies, name)
	if err != nil {
		return model.DirectorDetail{}, err
	}
	d.Movies = movies
	return d, nil
}
