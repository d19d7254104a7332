package model

// Movie mirrors a row of the `movie` table. Nullable numeric columns are
// read as zero.
type Movie struct {
	ID         int64
	Title      string
	Popularity float64
	Length     int64
	Year       int64
}

// MovieDetail is what the movie page shows. A title with no matching row
// yields the zero value with empty (non-nil) lists.
type MovieDetail struct {
	Movie
	Directors []string
	Actors    []string
	Awards    []string
}

// Director mirrors the `director` table; Name is the natural key.
type Director struct {
	Name   string
	Studio string
}

type DirectorDetail struct {
	Director
	Movies []string
}

type Genre struct {
	Name string
}

type GenreDetail struct {
	Genre
	Movies []string
}

// Actor mirrors the `actor` table. Names are not unique; lookups by name
// resolve to the lowest id.
type Actor struct {
	ID        int64
	Name      string
	SAGNumber string
}

type ActorDetail struct {
	Actor
	Movies []string
}

// GuestbookEntry is a row of the auxiliary `test` table fed by POST /add.
type GuestbookEntry struct {
	ID   int64
	Name string
}
