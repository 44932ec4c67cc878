// Package store is the User Store: the only component that touches the
// vaulth table. Provider columns are chosen from a fixed compile-time
// map, never by formatting a caller-supplied string into SQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaulth-auth/vaulth/integration/database/pg"
)

// newID generates an id for RegisterByProvider when the caller supplied
// none. The id column is an arbitrary client-chosen string (see User.ID);
// a random UUID is just a convenient, collision-free default here.
func newID() string {
	return uuid.NewString()
}

// Provider is one of the fixed, allow-listed identity providers. It is
// never constructed from unchecked user input.
type Provider string

const (
	Google    Provider = "google"
	Microsoft Provider = "microsoft"
	Facebook  Provider = "facebook"
	Twitter   Provider = "twitter"
	GitHub    Provider = "github"
	Discord   Provider = "discord"
)

// providerColumns is the fixed allow-list mapping a provider name to its
// column in the vaulth table. This map, not caller input, decides which
// column ever appears in a query string.
var providerColumns = map[Provider]string{
	Google:    "google_id",
	Microsoft: "microsoft_id",
	Facebook:  "facebook_id",
	Twitter:   "twitter_id",
	GitHub:    "github_id",
	Discord:   "discord_id",
}

// Valid reports whether p is one of the six allow-listed providers.
func (p Provider) Valid() bool {
	_, ok := providerColumns[p]
	return ok
}

// ErrUnknownProvider is returned when a Provider outside the allow-list
// is passed to a Store method.
var ErrUnknownProvider = errors.New("store: unknown provider")

// ErrNoMatchingUser is returned when a lookup finds no row.
var ErrNoMatchingUser = errors.New("store: no matching user")

// ErrUserIDTaken is returned by RegisterByProvider when the caller
// supplied an id that already exists.
var ErrUserIDTaken = errors.New("store: user id taken")

// User is a single row of the vaulth table. ID is an arbitrary string
// chosen by the client on first registration, not a generated value.
// Name and About are nil unless set through a future non-OAuth path; the
// OAuth flow never populates them.
type User struct {
	ID         string
	Name       *string
	About      *string
	Password   *string
	InsertedAt time.Time
	UpdatedAt  time.Time
	LoginAt    time.Time
}

const selectColumns = `id, name, about, password, inserted_at, updated_at, login_at`

func scanUser(row interface {
	Scan(dest ...any) error
}) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.About, &u.Password, &u.InsertedAt, &u.UpdatedAt, &u.LoginAt); err != nil {
		return User{}, err
	}
	return u, nil
}

// Store is the User Store, backed by Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Select fetches a user by id.
func (s *Store) Select(ctx context.Context, id string) (User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM vaulth WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return User{}, ErrNoMatchingUser
		}
		return User{}, err
	}
	return u, nil
}

// Delete removes a user by id. It does not error if no row matched.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM vaulth WHERE id = $1`, id)
	return err
}

// SelectByProvider looks up the user whose <provider>_id column equals
// providerID. Returns ErrNoMatchingUser if none exists.
func (s *Store) SelectByProvider(ctx context.Context, provider Provider, providerID string) (User, error) {
	column, ok := providerColumns[provider]
	if !ok {
		return User{}, ErrUnknownProvider
	}

	query := fmt.Sprintf(`SELECT `+selectColumns+` FROM vaulth WHERE %s = $1`, column)
	row := s.pool.QueryRow(ctx, query, providerID)

	u, err := scanUser(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return User{}, ErrNoMatchingUser
		}
		return User{}, err
	}
	return u, nil
}

// Login stamps login_at = now for id and returns the updated row.
// Returns ErrNoMatchingUser if no such user exists.
func (s *Store) Login(ctx context.Context, id string) (User, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE vaulth SET login_at = now() WHERE id = $1 RETURNING `+selectColumns, id)
	u, err := scanUser(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return User{}, ErrNoMatchingUser
		}
		return User{}, err
	}
	return u, nil
}

// RegisterByProvider creates a user bound to (provider, providerID) in a
// single atomic INSERT, so two concurrent registrations racing on the
// same (provider, providerID) pair are guaranteed to produce exactly one
// success: the loser's unique-constraint violation on the provider
// column surfaces as a generic error, handled via pg.IsDuplicateKeyError.
//
// If givenID is non-nil, it is used as the new row's id; a collision on
// that id (rather than on the provider column) is reported as
// ErrUserIDTaken so the caller can distinguish "this provider identity
// is already registered" from "the id you asked for is taken".
func (s *Store) RegisterByProvider(ctx context.Context, provider Provider, providerID string, givenID *string) (User, error) {
	column, ok := providerColumns[provider]
	if !ok {
		return User{}, ErrUnknownProvider
	}

	id := newID()
	if givenID != nil {
		id = *givenID
	}

	query := fmt.Sprintf(
		`INSERT INTO vaulth (id, %s, inserted_at, updated_at, login_at)
		 VALUES ($1, $2, now(), now(), now())
		 RETURNING `+selectColumns,
		column,
	)
	row := s.pool.QueryRow(ctx, query, id, providerID)

	u, err := scanUser(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			var pgErr *pgconn.PgError
			if givenID != nil && errors.As(err, &pgErr) && pgErr.ConstraintName == "vaulth_pkey" {
				return User{}, ErrUserIDTaken
			}
			return User{}, err
		}
		return User{}, err
	}
	return u, nil
}
