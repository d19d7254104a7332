package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/helenjin/databases-proj-group27/internal/database"
	"github.com/helenjin/databases-proj-group27/internal/model"
)

type ActorRepo struct {
	db database.Querier
}

func NewActorRepo(db database.Querier) *ActorRepo {
	return &ActorRepo{db: db}
}

func (r *ActorRepo) ListNames(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, r.db, "list actors", "SELECT name FROM actor ORDER BY name")
}

// Detail returns the actor with that name and the titles they played in.
// Names are not unique in the schema; the lowest id wins. Returns
// ErrActorNotFound when nobody has the name.
func (r *ActorRepo) Detail(ctx context.Context, name string) (model.ActorDetail, error) {
	var (
		d   model.ActorDetail
		sag sql.NullString
	)
	const q = "SELECT id, name, sag_number FROM actor WHERE name = ? ORDER BY id LIMIT 1"
	if err := r.db.QueryRowContext(ctx, q, name).Scan(&d.ID, &d.Name, &sag); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ActorDetail{}, ErrActorNotFound
		}
		return model.ActorDetail{}, queryErr("get actor", err)
	}
	d.SAGNumber = sag.String

	const qMovies = `SELECT movie.title FROM movie
		INNER JOIN plays_in ON movie.id = plays_in.movie_id
		WHERE plays_in.actor_id = ? ORDER BY movie.title`
	movies, err := queryStrings(ctx, r.db, "list actor movies", qMovies, d.ID)
	if err != nil {
		return model.ActorDetail{}, err
	}
	d.Movies = movies
	return d, nil
}
