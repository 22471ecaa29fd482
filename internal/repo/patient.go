package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/crucial707/patient-sync/internal/models"
	"github.com/lib/pq"
)

const patientColumns = "id, name, surname, date_of_birth, email"

// PatientRepo persists patient records.
type PatientRepo struct {
	DB *sql.DB
}

// NewPatientRepo returns a new PatientRepo.
func NewPatientRepo(db *sql.DB) *PatientRepo {
	return &PatientRepo{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(s rowScanner) (models.Patient, error) {
	var p models.Patient
	err := s.Scan(&p.ID, &p.Name, &p.Surname, &p.DateOfBirth, &p.Email)
	return p, err
}

func collectPatients(rows *sql.Rows) ([]models.Patient, error) {
	defer rows.Close()

	var list []models.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Count returns the total number of patients.
func (r *PatientRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM patients").Scan(&n)
	return n, err
}

// List returns patients ordered by id. limit/offset for pagination.
func (r *PatientRepo) List(ctx context.Context, limit, offset int) ([]models.Patient, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+patientColumns+` FROM patients ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return collectPatients(rows)
}

// PageAfter returns up to limit patients with id greater than afterID, in id order.
func (r *PatientRepo) PageAfter(ctx context.Context, afterID, limit int) ([]models.Patient, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id > $1 ORDER BY id LIMIT $2`,
		afterID, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectPatients(rows)
}

// GetByID returns one patient, or nil when no row has that id.
func (r *PatientRepo) GetByID(ctx context.Context, id int) (*models.Patient, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	p, err := scanPatient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Begin opens a transaction scoped to one reconciliation chunk.
func (r *PatientRepo) Begin(ctx context.Context) (*PatientTx, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &PatientTx{tx: tx}, nil
}

// PatientTx groups the batched writes of one chunk.
type PatientTx struct {
	tx *sql.Tx
}

// FindByIDs loads every patient whose id is in ids, keyed by id.
func (t *PatientTx) FindByIDs(ctx context.Context, ids []int) (map[int]models.Patient, error) {
	found := make(map[int]models.Patient, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}

	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = ANY($1)`,
		pq.Array(keys),
	)
	if err != nil {
		return nil, err
	}
	list, err := collectPatients(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		found[p.ID] = p
	}
	return found, nil
}

// Insert adds p and returns its id. A zero id takes the next id after the
// current maximum.
func (t *PatientTx) Insert(ctx context.Context, p models.Patient) (int, error) {
	if p.ID == 0 {
		var id int
		err := t.tx.QueryRowContext(ctx,
			`INSERT INTO patients (`+patientColumns+`)
			 VALUES ((SELECT COALESCE(MAX(id), 0) + 1 FROM patients), $1, $2, $3, $4)
			 RETURNING id`,
			p.Name, p.Surname, p.DateOfBirth, p.Email,
		).Scan(&id)
		return id, err
	}

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO patients (`+patientColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Surname, p.DateOfBirth, p.Email,
	)
	return p.ID, err
}

// Update assigns only the given columns of patient id.
func (t *PatientTx) Update(ctx context.Context, id int, changes []models.FieldChange) error {
	if len(changes) == 0 {
		return nil
	}

	sets := make([]string, len(changes))
	args := make([]any, 0, len(changes)+1)
	for i, c := range changes {
		sets[i] = fmt.Sprintf("%s = $%d", c.Column, i+1)
		args = append(args, c.Value)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE patients SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}

func (t *PatientTx) Commit() error {
	return t.tx.Commit()
}

func (t *PatientTx) Rollback() error {
	return t.tx.Rollback()
}
