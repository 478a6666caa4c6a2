package game

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"empires-server/internal/shared/database"
	"empires-server/internal/shared/errors"
	"empires-server/internal/state"
	"empires-server/internal/turn"
)

// Repository stores whole game states. Save replaces the stored state and,
// when rep is non-nil, appends the turn report in the same write.
type Repository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, st *state.State) (*Record, error)
	Load(ctx context.Context, gameID int64) (*Record, error)
	Save(ctx context.Context, st *state.State, rep *turn.Report) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Report(ctx context.Context, gameID int64, turn int) (*turn.Report, error)
}

type PostgresRepository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewPostgresRepository(db *database.DB, logger *slog.Logger) *PostgresRepository {
	logger.Debug("Initializing game repository")

	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresRepository) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('game_id_seq')`).Scan(&id); err != nil {
		return 0, errors.WrapExternal("failed to allocate game id", err)
	}
	return id, nil
}

func (r *PostgresRepository) Create(ctx context.Context, st *state.State) (*Record, error) {
	logger := r.logger.With(
		"component", "game_repository",
		"operation", "create_game",
		"game_id", st.GameID,
		"empires", len(st.Empires),
	)
	logger.Info("Storing new game")

	payload, digest, err := encode(st)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO game_snapshots (game_id, turn, variant, digest, state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING updated_at
	`
	rec := &Record{State: st, Digest: digest}
	if err := r.db.QueryRowContext(ctx, query, st.GameID, st.Turn.Turn, st.Variant, digest, payload).Scan(&rec.UpdatedAt); err != nil {
		logger.Error("Failed to store game", "error", err)
		return nil, errors.WrapExternal("failed to store game", err)
	}

	logger.Info("Game stored successfully")
	return rec, nil
}

func (r *PostgresRepository) Load(ctx context.Context, gameID int64) (*Record, error) {
	logger := r.logger.With("component", "game_repository", "operation", "load_game", "game_id", gameID)
	logger.Debug("Loading game")

	var (
		payload []byte
		rec     Record
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT state, digest, updated_at FROM game_snapshots WHERE game_id = $1`, gameID,
	).Scan(&payload, &rec.Digest, &rec.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("game %d not found", gameID)
	}
	if err != nil {
		logger.Error("Failed to load game", "error", err)
		return nil, errors.WrapExternal("failed to load game", err)
	}

	var st state.State
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, errors.WrapInternal("failed to decode stored game", err)
	}
	rec.State = &st
	return &rec, nil
}

func (r *PostgresRepository) Save(ctx context.Context, st *state.State, rep *turn.Report) (*Record, error) {
	logger := r.logger.With(
		"component", "game_repository",
		"operation", "save_game",
		"game_id", st.GameID,
		"turn", st.Turn.Turn,
	)

	payload, digest, err := encode(st)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxContext(ctx)
	if err != nil {
		return nil, errors.WrapExternal("failed to begin transaction", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(); err != nil {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	rec := &Record{State: st, Digest: digest}
	err = tx.QueryRowContext(ctx, `
		UPDATE game_snapshots
		SET turn = $2, digest = $3, state = $4, updated_at = NOW()
		WHERE game_id = $1
		RETURNING updated_at
	`, st.GameID, st.Turn.Turn, digest, payload).Scan(&rec.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("game %d not found", st.GameID)
	}
	if err != nil {
		logger.Error("Failed to update game snapshot", "error", err)
		return nil, errors.WrapExternal("failed to save game", err)
	}

	if rep != nil {
		report, err := json.Marshal(rep)
		if err != nil {
			return nil, errors.WrapInternal("failed to encode turn report", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turn_reports (game_id, turn, report) VALUES ($1, $2, $3)`,
			rep.GameID, rep.Turn, report,
		); err != nil {
			logger.Error("Failed to store turn report", "error", err)
			return nil, errors.WrapExternal("failed to store turn report", err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit game snapshot", "error", err)
		return nil, errors.WrapExternal("failed to commit game snapshot", err)
	}
	committed = true

	logger.Debug("Game saved", "digest", digest)
	return rec, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT state, digest, updated_at FROM game_snapshots ORDER BY game_id`)
	if err != nil {
		return nil, errors.WrapExternal("failed to list games", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			payload []byte
			rec     Record
		)
		if err := rows.Scan(&payload, &rec.Digest, &rec.UpdatedAt); err != nil {
			return nil, errors.WrapExternal("failed to scan game", err)
		}
		var st state.State
		if err := json.Unmarshal(payload, &st); err != nil {
			return nil, errors.WrapInternal("failed to decode stored game", err)
		}
		rec.State = &st
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapExternal("failed to list games", err)
	}
	return out, nil
}

func (r *PostgresRepository) Report(ctx context.Context, gameID int64, turnNumber int) (*turn.Report, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT report FROM turn_reports WHERE game_id = $1 AND turn = $2`, gameID, turnNumber,
	).Scan(&payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("no report for game %d turn %d", gameID, turnNumber)
	}
	if err != nil {
		return nil, errors.WrapExternal("failed to load turn report", err)
	}
	var rep turn.Report
	if err := json.Unmarshal(payload, &rep); err != nil {
		return nil, errors.WrapInternal("failed to decode turn report", err)
	}
	return &rep, nil
}

func encode(st *state.State) ([]byte, string, error) {
	payload, err := json.Marshal(st)
	if err != nil {
		return nil, "", errors.WrapInternal("failed to encode game state", err)
	}
	digest, err := st.Digest()
	if err != nil {
		return nil, "", errors.WrapInternal("failed to digest game state", err)
	}
	return payload, digest, nil
}

// MemoryRepository keeps games in process. It is used when the database is
// disabled and in tests.
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	games   map[int64]*Record
	reports map[string]*turn.Report
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		games:   make(map[int64]*Record),
		reports: make(map[string]*turn.Report),
		now:     time.Now,
	}
}

func (m *MemoryRepository) NextID(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID, nil
}

func (m *MemoryRepository) Create(_ context.Context, st *state.State) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[st.GameID]; ok {
		return nil, errors.Conflictf("game %d already exists", st.GameID)
	}
	return m.put(st)
}

func (m *MemoryRepository) Load(_ context.Context, gameID int64) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[gameID]
	if !ok {
		return nil, errors.NotFoundf("game %d not found", gameID)
	}
	return &Record{State: rec.State.Clone(), Digest: rec.Digest, UpdatedAt: rec.UpdatedAt}, nil
}

func (m *MemoryRepository) Save(_ context.Context, st *state.State, rep *turn.Report) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[st.GameID]; !ok {
		return nil, errors.NotFoundf("game %d not found", st.GameID)
	}
	rec, err := m.put(st)
	if err != nil {
		return nil, err
	}
	if rep != nil {
		m.reports[reportKey(rep.GameID, rep.Turn)] = rep
	}
	return rec, nil
}

func (m *MemoryRepository) List(context.Context) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Record, 0, len(m.games))
	for _, rec := range m.games {
		out = append(out, &Record{State: rec.State.Clone(), Digest: rec.Digest, UpdatedAt: rec.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].State.GameID < out[j].State.GameID })
	return out, nil
}

func (m *MemoryRepository) Report(_ context.Context, gameID int64, turnNumber int) (*turn.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep, ok := m.reports[reportKey(gameID, turnNumber)]
	if !ok {
		return nil, errors.NotFoundf("no report for game %d turn %d", gameID, turnNumber)
	}
	return rep, nil
}

// put must be called with mu held.
func (m *MemoryRepository) put(st *state.State) (*Record, error) {
	digest, err := st.Digest()
	if err != nil {
		return nil, errors.WrapInternal("failed to digest game state", err)
	}
	stored := &Record{State: st.Clone(), Digest: digest, UpdatedAt: m.now()}
	m.games[st.GameID] = stored
	if st.GameID > m.nextID {
		m.nextID = st.GameID
	}
	return &Record{State: st, Digest: digest, UpdatedAt: stored.UpdatedAt}, nil
}

func reportKey(gameID int64, turnNumber int) string {
	return fmt.Sprintf("%d/%d", gameID, turnNumber)
}
