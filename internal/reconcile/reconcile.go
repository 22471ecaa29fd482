// Package reconcile merges incoming patient records into the store.
//
// Records are applied in fixed-size chunks, each committed in its own
// transaction. Existing rows receive only the columns that differ, so
// re-applying a batch that is already stored changes nothing.
package reconcile

import (
	"context"
	"fmt"

	"github.com/crucial707/patient-sync/internal/models"
	"github.com/crucial707/patient-sync/internal/repo"
)

// DefaultChunkSize is the number of records committed per transaction.
const DefaultChunkSize = 100

// Tx is the store work of one chunk.
type Tx interface {
	FindByIDs(ctx context.Context, ids []int) (map[int]models.Patient, error)
	Insert(ctx context.Context, p models.Patient) (int, error)
	Update(ctx context.Context, id int, changes []models.FieldChange) error
	Commit() error
	Rollback() error
}

// Store opens chunk transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Reconciler upserts batches of patients chunk by chunk.
type Reconciler struct {
	store     Store
	chunkSize int
}

// New returns a Reconciler. A non-positive chunkSize means DefaultChunkSize.
func New(store Store, chunkSize int) *Reconciler {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Reconciler{store: store, chunkSize: chunkSize}
}

// ChunkSize is the number of records per transaction.
func (r *Reconciler) ChunkSize() int {
	return r.chunkSize
}

// UpsertBatch inserts unknown records and updates changed ones, returning the
// number of rows written. Chunks commit independently: when chunk k fails the
// error is returned together with the count of chunks 1..k-1, which stay
// committed. Running the same batch again is safe.
//
// Records with an id are applied before records without one, so an id the
// store generates never collides with an explicit id later in the batch.
// Chunk numbers in errors count over that order.
func (r *Reconciler) UpsertBatch(ctx context.Context, records []models.Patient) (int, error) {
	ordered := make([]models.Patient, 0, len(records))
	var fresh []models.Patient
	for _, p := range records {
		if p.ID == 0 {
			fresh = append(fresh, p)
			continue
		}
		ordered = append(ordered, p)
	}
	ordered = append(ordered, fresh...)

	total := 0
	for start := 0; start < len(ordered); start += r.chunkSize {
		end := min(start+r.chunkSize, len(ordered))
		n, err := r.upsertChunk(ctx, ordered[start:end])
		if err != nil {
			return total, fmt.Errorf("chunk %d (records %d-%d): %w", start/r.chunkSize+1, start+1, end, err)
		}
		total += n
	}
	return total, nil
}

func (r *Reconciler) upsertChunk(ctx context.Context, chunk []models.Patient) (affected int, err error) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	ids := make([]int, 0, len(chunk))
	for _, p := range chunk {
		if p.ID != 0 {
			ids = append(ids, p.ID)
		}
	}

	existing, err := tx.FindByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("find existing: %w", err)
	}

	for _, p := range chunk {
		if p.ID == 0 {
			if _, err := tx.Insert(ctx, p); err != nil {
				return 0, fmt.Errorf("insert new record: %w", err)
			}
			affected++
			continue
		}

		current, ok := existing[p.ID]
		if !ok {
			if _, err := tx.Insert(ctx, p); err != nil {
				return 0, fmt.Errorf("insert id %d: %w", p.ID, err)
			}
			existing[p.ID] = p
			affected++
			continue
		}

		changes := current.Changes(p)
		if len(changes) == 0 {
			continue
		}
		if err := tx.Update(ctx, p.ID, changes); err != nil {
			return 0, fmt.Errorf("update id %d: %w", p.ID, err)
		}
		existing[p.ID] = current.Apply(changes)
		affected++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return affected, nil
}

// sqlStore adapts repo.PatientRepo to Store.
type sqlStore struct {
	patients *repo.PatientRepo
}

// NewSQLStore returns a Store backed by the Postgres patient repository.
func NewSQLStore(patients *repo.PatientRepo) Store {
	return sqlStore{patients: patients}
}

func (s sqlStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.patients.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
