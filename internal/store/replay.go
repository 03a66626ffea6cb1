package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/duskfall/hollowvale/internal/game"
)

// PostgresReplayStore implements game.ReplayStore: the durable, append-only
// `replays` document collection of spec §6.2, backed by a jsonb events
// column rather than the doc-store's native array field.
type PostgresReplayStore struct {
	pg *pgxpool.Pool
}

func NewPostgresReplayStore(pg *pgxpool.Pool) *PostgresReplayStore {
	return &PostgresReplayStore{pg: pg}
}

var _ game.ReplayStore = (*PostgresReplayStore)(nil)

// ListReplaysForUser queries the replay archive by owning user-id, spec
// §2.3's "Replay Store ... queryable by owning user-id".
func (s *PostgresReplayStore) ListReplaysForUser(ctx context.Context, userID uuid.UUID) ([]game.Replay, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT id, game_id, room_id, room_name, owner_user_ids, created_at, duration_ms, result_summary, events
		FROM replays WHERE $1 = ANY(owner_user_ids) ORDER BY created_at DESC LIMIT 50
	`, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Replay
	for rows.Next() {
		var id uuid.UUID
		var r game.Replay
		var ownerIDs []string
		var eventsJSON json.RawMessage
		if err := rows.Scan(&id, &r.GameID, &r.RoomID, &r.RoomName, &ownerIDs, &r.CreatedAt, &r.DurationMs, &r.ResultSummary, &eventsJSON); err != nil {
			continue
		}
		for _, idStr := range ownerIDs {
			if uid, err := uuid.Parse(idStr); err == nil {
				r.OwnerUserIDs = append(r.OwnerUserIDs, uid)
			}
		}
		if err := json.Unmarshal(eventsJSON, &r.Events); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresReplayStore) SaveReplay(ctx context.Context, replay game.Replay) (uuid.UUID, error) {
	eventsJSON, err := json.Marshal(replay.Events)
	if err != nil {
		return uuid.Nil, err
	}
	ownerIDs := make([]string, 0, len(replay.OwnerUserIDs))
	for _, id := range replay.OwnerUserIDs {
		ownerIDs = append(ownerIDs, id.String())
	}

	id := uuid.New()
	_, err = s.pg.Exec(ctx, `
		INSERT INTO replays (id, game_id, room_id, room_name, owner_user_ids, created_at, duration_ms, result_summary, events)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, replay.GameID, replay.RoomID, replay.RoomName, ownerIDs, replay.CreatedAt, replay.DurationMs, replay.ResultSummary, eventsJSON)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}
