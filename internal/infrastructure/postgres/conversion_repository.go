package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
)

var (
	_ repository.ConversionJobRepository = (*ConversionJobRepo)(nil)
	_ repository.LegacyRepository        = (*LegacyRepo)(nil)
)

// ConversionJobRepo persistencia del job de conversión.
type ConversionJobRepo struct {
	q Querier
}

// NewConversionJobRepository construye el adaptador. Pasar pool o tx (Querier).
func NewConversionJobRepository(q Querier) *ConversionJobRepo {
	return &ConversionJobRepo{q: q}
}

const jobColumns = `id, status, start_time, end_time, current_phase, percent_complete,
	items_converted, items_errors, purchases_converted, purchases_errors,
	sales_converted, sales_errors, assets_converted, assets_errors,
	error_message, created_at, updated_at`

func scanJob(row pgx.Row) (*entity.ConversionJob, error) {
	var (
		j      entity.ConversionJob
		status string
	)
	if err := row.Scan(&j.ID, &status, &j.StartTime, &j.EndTime, &j.CurrentPhase, &j.PercentComplete,
		&j.Items.Converted, &j.Items.Errors, &j.Purchases.Converted, &j.Purchases.Errors,
		&j.Sales.Converted, &j.Sales.Errors, &j.Assets.Converted, &j.Assets.Errors,
		&j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.Status = entity.JobStatus(status)
	return &j, nil
}

// Create inserta el job. La restricción parcial conversion_jobs_single_active garantiza
// un único job queued/running aun entre instancias.
func (r *ConversionJobRepo) Create(ctx context.Context, job *entity.ConversionJob) error {
	_, err := r.q.Exec(ctx, `INSERT INTO conversion_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		job.ID, string(job.Status), job.StartTime, job.EndTime, job.CurrentPhase, job.PercentComplete,
		job.Items.Converted, job.Items.Errors, job.Purchases.Converted, job.Purchases.Errors,
		job.Sales.Converted, job.Sales.Errors, job.Assets.Converted, job.Assets.Errors,
		job.ErrorMessage, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert conversion job: %w", domain.ErrConversionInProgress)
		}
		return wrapErr("insert conversion job", err)
	}
	return nil
}

// Update guarda el snapshot completo del job. Un job ya completed o failed no se toca:
// devuelve domain.ErrJobFinished para que el ejecutor se detenga.
func (r *ConversionJobRepo) Update(ctx context.Context, job *entity.ConversionJob) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE conversion_jobs SET status = $2, start_time = $3, end_time = $4, current_phase = $5,
			percent_complete = $6, items_converted = $7, items_errors = $8,
			purchases_converted = $9, purchases_errors = $10, sales_converted = $11, sales_errors = $12,
			assets_converted = $13, assets_errors = $14, error_message = $15, updated_at = $16
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		job.ID, string(job.Status), job.StartTime, job.EndTime, job.CurrentPhase, job.PercentComplete,
		job.Items.Converted, job.Items.Errors, job.Purchases.Converted, job.Purchases.Errors,
		job.Sales.Converted, job.Sales.Errors, job.Assets.Converted, job.Assets.Errors,
		job.ErrorMessage, job.UpdatedAt,
	)
	if err != nil {
		return wrapErr("update conversion job", err)
	}
	if cmd.RowsAffected() == 0 {
		var status string
		err := r.q.QueryRow(ctx, `SELECT status FROM conversion_jobs WHERE id = $1`, job.ID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return wrapErr("update conversion job", err)
		}
		return fmt.Errorf("job %s (%s): %w", job.ID, status, domain.ErrJobFinished)
	}
	return nil
}

// GetByID obtiene el job; (nil, nil) si no existe.
func (r *ConversionJobRepo) GetByID(ctx context.Context, id string) (*entity.ConversionJob, error) {
	j, err := scanJob(r.q.QueryRow(ctx, `SELECT `+jobColumns+` FROM conversion_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get conversion job", err)
	}
	return j, nil
}

// GetActive job queued o running; (nil, nil) si no hay.
func (r *ConversionJobRepo) GetActive(ctx context.Context) (*entity.ConversionJob, error) {
	j, err := scanJob(r.q.QueryRow(ctx, `SELECT `+jobColumns+` FROM conversion_jobs
		WHERE status IN ('queued', 'running') ORDER BY created_at LIMIT 1`))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get active conversion job", err)
	}
	return j, nil
}

// List historial, el más reciente primero.
func (r *ConversionJobRepo) List(ctx context.Context, limit int) ([]*entity.ConversionJob, error) {
	rows, err := r.q.Query(ctx, `SELECT `+jobColumns+` FROM conversion_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, wrapErr("list conversion jobs", err)
	}
	defer rows.Close()
	var list []*entity.ConversionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion job: %w", err)
		}
		list = append(list, j)
	}
	return list, rows.Err()
}

// LegacyRepo lectura de las tablas planas del modelo anterior. Cada fila lleva
// la marca converted para que una nueva ejecución solo vea pendientes.
type LegacyRepo struct {
	q Querier
}

// NewLegacyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLegacyRepository(q Querier) *LegacyRepo {
	return &LegacyRepo{q: q}
}

// legacyTables tabla de origen por clase; solo valores fijos llegan al SQL.
var legacyTables = map[string]string{
	entity.ClassItems:     "legacy_items",
	entity.ClassPurchases: "legacy_purchase_lines",
	entity.ClassSales:     "legacy_sale_lines",
	entity.ClassAssets:    "legacy_assets",
}

func legacyTable(class string) (string, error) {
	t, ok := legacyTables[class]
	if !ok {
		return "", domain.NewValidationError("class", "clase desconocida "+class)
	}
	return t, nil
}

// CountPending registros sin convertir de la clase.
func (r *LegacyRepo) CountPending(ctx context.Context, class string) (int, error) {
	table, err := legacyTable(class)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM `+table+` WHERE NOT converted`).Scan(&n); err != nil {
		return 0, wrapErr("count legacy "+class, err)
	}
	return n, nil
}

// ListPendingItems ítems con relaciones planas pendientes.
func (r *LegacyRepo) ListPendingItems(ctx context.Context) ([]entity.LegacyItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, parent_item_id, parent_amount, material_ids, material_quantities
		FROM legacy_items WHERE NOT converted ORDER BY id`)
	if err != nil {
		return nil, wrapErr("list legacy items", err)
	}
	defer rows.Close()
	var list []entity.LegacyItem
	for rows.Next() {
		var it entity.LegacyItem
		if err := rows.Scan(&it.ID, &it.ParentItemID, &it.ParentAmount, &it.MaterialIDs, &it.MaterialQuantities); err != nil {
			return nil, fmt.Errorf("scan legacy item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

// ListPendingPurchaseLines líneas de compra pendientes.
func (r *LegacyRepo) ListPendingPurchaseLines(ctx context.Context) ([]entity.LegacyLine, error) {
	return r.pendingLines(ctx, "legacy_purchase_lines")
}

// ListPendingSaleLines líneas de venta pendientes.
func (r *LegacyRepo) ListPendingSaleLines(ctx context.Context) ([]entity.LegacyLine, error) {
	return r.pendingLines(ctx, "legacy_sale_lines")
}

func (r *LegacyRepo) pendingLines(ctx context.Context, table string) ([]entity.LegacyLine, error) {
	rows, err := r.q.Query(ctx, `SELECT id, parent_id, item_ref, amount, unit, unit_price
		FROM `+table+` WHERE NOT converted ORDER BY id`)
	if err != nil {
		return nil, wrapErr("list "+table, err)
	}
	defer rows.Close()
	var list []entity.LegacyLine
	for rows.Next() {
		var l entity.LegacyLine
		if err := rows.Scan(&l.ID, &l.ParentID, &l.ItemRef, &l.Amount, &l.Unit, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// ListPendingAssets activos pendientes.
func (r *LegacyRepo) ListPendingAssets(ctx context.Context) ([]entity.LegacyAsset, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, item_refs, quantities
		FROM legacy_assets WHERE NOT converted ORDER BY id`)
	if err != nil {
		return nil, wrapErr("list legacy assets", err)
	}
	defer rows.Close()
	var list []entity.LegacyAsset
	for rows.Next() {
		var a entity.LegacyAsset
		if err := rows.Scan(&a.ID, &a.Name, &a.ItemRefs, &a.Quantities); err != nil {
			return nil, fmt.Errorf("scan legacy asset: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// MarkConverted marca el registro como convertido.
func (r *LegacyRepo) MarkConverted(ctx context.Context, class, id string) error {
	table, err := legacyTable(class)
	if err != nil {
		return err
	}
	if _, err := r.q.Exec(ctx, `UPDATE `+table+` SET converted = true, converted_at = now() WHERE id = $1`, id); err != nil {
		return wrapErr("mark legacy "+class, err)
	}
	return nil
}
