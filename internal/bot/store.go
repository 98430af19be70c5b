package bot

import (
	"context"
	"errors"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/pkg/database"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Query is a completed questionnaire. RegionID is set for regional searches.
type Query struct {
	Discipline string
	Formats    []entity.CompetitionFormat
	Age        int
	Kind       entity.CompetitionKind
	RegionID   *uint
}

type Listing struct {
	Name                  string
	Description           string
	Kind                  entity.CompetitionKind
	MaxParticipantsInTeam int
	RegionCount           int
	TeamName              string
	StartDate             *time.Time
	EndDate               *time.Time
	RegistrationStart     *time.Time
	RegistrationEnd       *time.Time
}

type Store interface {
	SaveAccount(ctx context.Context, username string, chatID int64) error
	FindRegion(ctx context.Context, name string) (uint, bool, error)
	SearchCompetitions(ctx context.Context, q Query) ([]Listing, error)
	MyCompetitions(ctx context.Context, chatID int64) ([]Listing, error)
}

type pgStore struct {
	pool            *pgxpool.Pool
	fullRegionCount int
}

func NewStore(pool *pgxpool.Pool, fullRegionCount int) Store {
	return &pgStore{pool: pool, fullRegionCount: fullRegionCount}
}

func (s *pgStore) SaveAccount(ctx context.Context, username string, chatID int64) error {
	username = entity.NormalizeTelegramUsername(username)
	if username == "" {
		return nil
	}

	sql, args, err := database.PSQL.
		Insert("telegram_accounts").
		Columns("username", "chat_id", "updated_at").
		Values(username, chatID, time.Now()).
		Suffix("ON CONFLICT (username) DO UPDATE SET chat_id = EXCLUDED.chat_id, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, sql, args...)
	return err
}

func (s *pgStore) FindRegion(ctx context.Context, name string) (uint, bool, error) {
	row, err := database.QueryRow(ctx, s.pool, database.PSQL.
		Select("id").
		From("regions").
		Where("lower(name) = lower(?)", name).
		Limit(1))
	if err != nil {
		return 0, false, err
	}

	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint(id), true, nil
}

func (s *pgStore) SearchCompetitions(ctx context.Context, q Query) ([]Listing, error) {
	sel := database.PSQL.
		Select(
			"c.name", "c.description", "c.kind", "c.max_participants_in_team",
			"jsonb_array_length(c.permissions)",
			"d.start_date", "d.end_date", "d.registration_start", "d.registration_end",
		).
		From("competitions c").
		Join("disciplines ds ON ds.id = c.discipline_id").
		LeftJoin("competition_dates d ON d.competition_id = c.id").
		Where(sq.Eq{"ds.name": q.Discipline, "c.kind": string(q.Kind), "c.format": formats(q.Formats)}).
		Where(sq.LtOrEq{"c.min_age": q.Age}).
		Where(sq.NotEq{"c.status": string(entity.StatusPending)}).
		OrderBy("d.start_date NULLS LAST", "c.id")

	if q.RegionID != nil {
		sel = sel.Where("c.permissions @> jsonb_build_array(?::bigint)", int64(*q.RegionID))
	} else {
		sel = sel.Where(sq.Or{
			sq.Expr("jsonb_array_length(c.permissions) = 0"),
			sq.Expr("jsonb_array_length(c.permissions) >= ?", s.fullRegionCount),
		})
	}

	rows, err := database.QueryRows(ctx, s.pool, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		var l Listing
		var kind string
		if err := rows.Scan(&l.Name, &l.Description, &kind, &l.MaxParticipantsInTeam, &l.RegionCount,
			&l.StartDate, &l.EndDate, &l.RegistrationStart, &l.RegistrationEnd); err != nil {
			return nil, err
		}
		l.Kind = entity.CompetitionKind(kind)
		out = append(out, l)
	}
	return out, rows.Err()
}

// MyCompetitions lists team entries and individual participations of the
// profile whose tg_username was registered from chatID.
func (s *pgStore) MyCompetitions(ctx context.Context, chatID int64) ([]Listing, error) {
	username := sq.Expr("(SELECT username FROM telegram_accounts WHERE chat_id = ? LIMIT 1)", chatID)

	teams := database.PSQL.
		Select("t.name", "c.name", "c.description", "c.kind",
			"d.start_date", "d.end_date", "d.registration_start", "d.registration_end").
		From("teams t").
		Join("competitions c ON c.id = t.competition_id").
		LeftJoin("competition_dates d ON d.competition_id = c.id").
		Join("team_members tm ON tm.team_id = t.id").
		Join("profiles p ON p.user_id = tm.user_id").
		Where(sq.Expr("p.tg_username = ?", username))

	solo := database.PSQL.
		Select("''", "c.name", "c.description", "c.kind",
			"d.start_date", "d.end_date", "d.registration_start", "d.registration_end").
		From("competition_participants cp").
		Join("competitions c ON c.id = cp.competition_id").
		LeftJoin("competition_dates d ON d.competition_id = c.id").
		Join("profiles p ON p.user_id = cp.user_id").
		Where(sq.Expr("p.tg_username = ?", username)).
		Where(sq.Eq{"c.kind": string(entity.KindIndividual)})

	var out []Listing
	for _, q := range []sq.SelectBuilder{teams, solo} {
		rows, err := database.QueryRows(ctx, s.pool, q)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var l Listing
			var kind string
			if err := rows.Scan(&l.TeamName, &l.Name, &l.Description, &kind,
				&l.StartDate, &l.EndDate, &l.RegistrationStart, &l.RegistrationEnd); err != nil {
				rows.Close()
				return nil, err
			}
			l.Kind = entity.CompetitionKind(kind)
			out = append(out, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func formats(fs []entity.CompetitionFormat) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}
