package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLiteSink records runs, window stats, and bookmarks into a SQLite database.
// A nil *SQLiteSink is valid and discards everything.
type SQLiteSink struct {
	path  string
	runID string

	mu sync.RWMutex
	db *sql.DB
}

// OpenSQLiteSink opens (creating if needed) the database at path.
// Returns nil if path is empty (sink disabled).
func OpenSQLiteSink(ctx context.Context, path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteSink{path: path, db: db}, nil
}

// StartRun registers a new run and returns its id. Later writes belong to it.
func (s *SQLiteSink) StartRun(ctx context.Context, seed int64, configYAML []byte) (string, error) {
	if s == nil {
		return "", nil
	}
	db, err := s.getDB()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, started_at, config)
		VALUES (?, ?, ?, ?)
	`, id, seed, time.Now().UTC().Format(time.RFC3339), string(configYAML))
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	s.mu.Lock()
	s.runID = id
	s.mu.Unlock()
	return id, nil
}

// RunID returns the id of the current run.
func (s *SQLiteSink) RunID() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// WriteWindow stores one stats window of the current run.
func (s *SQLiteSink) WriteWindow(ctx context.Context, stats WindowStats) error {
	if s == nil {
		return nil
	}
	db, runID, err := s.current()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO windows (
			run_id, window_end, herbivores, carnivores, omnivores, food,
			births, deaths, kills, food_eaten, births_dropped,
			energy_mean, speed_mean, size_mean, perception_mean, max_generation
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, window_end) DO UPDATE SET
			herbivores = excluded.herbivores,
			carnivores = excluded.carnivores,
			omnivores = excluded.omnivores,
			food = excluded.food,
			births = excluded.births,
			deaths = excluded.deaths,
			kills = excluded.kills,
			food_eaten = excluded.food_eaten,
			births_dropped = excluded.births_dropped,
			energy_mean = excluded.energy_mean,
			speed_mean = excluded.speed_mean,
			size_mean = excluded.size_mean,
			perception_mean = excluded.perception_mean,
			max_generation = excluded.max_generation
	`,
		runID, stats.WindowEndTick, stats.Herbivores, stats.Carnivores, stats.Omnivores, stats.Food,
		stats.HerbivoreBirths+stats.CarnivoreBirths+stats.OmnivoreBirths,
		stats.HerbivoreDeaths+stats.CarnivoreDeaths+stats.OmnivoreDeaths,
		stats.Kills, stats.FoodEaten, stats.BirthsDropped,
		stats.EnergyMean, stats.SpeedMean, stats.SizeMean, stats.PerceptionMean, stats.MaxGeneration,
	)
	if err != nil {
		return fmt.Errorf("inserting window: %w", err)
	}
	return nil
}

// WriteBookmark stores one bookmark of the current run.
func (s *SQLiteSink) WriteBookmark(ctx context.Context, b Bookmark) error {
	if s == nil {
		return nil
	}
	db, runID, err := s.current()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO bookmarks (run_id, tick, type, description)
		VALUES (?, ?, ?, ?)
	`, runID, b.Tick, string(b.Type), b.Description)
	if err != nil {
		return fmt.Errorf("inserting bookmark: %w", err)
	}
	return nil
}

// FinishRun records run totals and the final tick.
func (s *SQLiteSink) FinishRun(ctx context.Context, tick uint32, totals Totals) error {
	if s == nil {
		return nil
	}
	db, runID, err := s.current()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?, final_tick = ?, births = ?, deaths = ?,
			max_population = ?, food_eaten = ?, kills = ?
		WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339), tick, totals.Births, totals.Deaths,
		totals.MaxPopulation, totals.FoodEaten, totals.Kills, runID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// WindowCount returns the number of stored windows for a run.
func (s *SQLiteSink) WindowCount(ctx context.Context, runID string) (int, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM windows WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteSink) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite sink is closed")
	}
	return s.db, nil
}

func (s *SQLiteSink) current() (*sql.DB, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, "", errors.New("sqlite sink is closed")
	}
	if s.runID == "" {
		return nil, "", errors.New("sqlite sink has no active run")
	}
	return s.db, s.runID, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			final_tick INTEGER,
			births INTEGER,
			deaths INTEGER,
			max_population INTEGER,
			food_eaten INTEGER,
			kills INTEGER,
			config TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS windows (
			run_id TEXT NOT NULL REFERENCES runs(id),
			window_end INTEGER NOT NULL,
			herbivores INTEGER NOT NULL,
			carnivores INTEGER NOT NULL,
			omnivores INTEGER NOT NULL,
			food INTEGER NOT NULL,
			births INTEGER NOT NULL,
			deaths INTEGER NOT NULL,
			kills INTEGER NOT NULL,
			food_eaten INTEGER NOT NULL,
			births_dropped INTEGER NOT NULL,
			energy_mean REAL NOT NULL,
			speed_mean REAL NOT NULL,
			size_mean REAL NOT NULL,
			perception_mean REAL NOT NULL,
			max_generation INTEGER NOT NULL,
			PRIMARY KEY (run_id, window_end)
		);
		CREATE TABLE IF NOT EXISTS bookmarks (
			run_id TEXT NOT NULL REFERENCES runs(id),
			tick INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL
		);
	`)
	return err
}
