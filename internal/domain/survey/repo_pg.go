package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dsr/dsr/internal/platform/db"
	"github.com/dsr/dsr/internal/platform/query"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// DB is the connection surface the repository needs. *pgxpool.Pool satisfies it.
type DB interface {
	queryable
	Begin(ctx context.Context) (pgx.Tx, error)
}

type repoPG struct{ db DB }

func NewRepoPG(database DB) Repository { return &repoPG{db: database} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

const recordCols = `id, record_number, first_name, last_name,
	first_name || ' ' || last_name AS full_name,
	nickname, id_card, age,
	house_no, moo, soi, road, tambon, amphoe, province, address,
	has_used_drugs, drug_types, reasons, start_date, usage_info, last_usage,
	dealer, contact, payment, attachments, images, files,
	status, pdf_status, pdf_generated_at, pdf_generated_by, pdf_file_path,
	created_at, updated_at`

// scanRecord scans one row in recordCols order and decodes the stored
// representation into the canonical record shape. Extra destinations are
// appended after the record columns (used for the search total_count window).
func (r *repoPG) scanRecord(row pgx.Row, extra ...interface{}) (*DrugRecord, error) {
	var rec DrugRecord
	var drugTypes, reasons, usage, lastUsage, dealer, contact, payment, attachments, images []byte
	var files *string

	dests := []interface{}{
		&rec.ID, &rec.RecordNumber, &rec.FirstName, &rec.LastName, &rec.FullName,
		&rec.Nickname, &rec.IDCard, &rec.Age,
		&rec.HouseNo, &rec.Moo, &rec.Soi, &rec.Road, &rec.Tambon, &rec.Amphoe, &rec.Province, &rec.Address,
		&rec.HasUsedDrugs, &drugTypes, &reasons, &rec.StartDate, &usage, &lastUsage,
		&dealer, &contact, &payment, &attachments, &images, &files,
		&rec.Status, &rec.PDFStatus, &rec.PDFGeneratedAt, &rec.PDFGeneratedBy, &rec.PDFFilePath,
		&rec.CreatedAt, &rec.UpdatedAt,
	}
	dests = append(dests, extra...)

	if err := row.Scan(dests...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec.DrugTypes = formatStringSet(drugTypes)
	rec.Reasons = formatStringSet(reasons)
	rec.Usage = formatUsage(usage)
	rec.LastUsage = formatLastUsage(lastUsage)
	rec.Dealer = formatDealer(dealer)
	rec.Contact = formatContact(contact)
	rec.Payment = formatPayment(payment)
	rec.Attachments = formatStringSet(attachments)
	rec.Images = formatStringSet(images)
	if files != nil {
		rec.Files = formatFileList(*files)
	} else {
		rec.Files = []string{}
	}
	return &rec, nil
}

func recordNumber(year, seq int) string {
	return fmt.Sprintf("DRUG-%d-%04d", year, seq)
}

func jsonArg(present bool, v interface{}) interface{} {
	if !present {
		return nil
	}
	return encodeJSON(v)
}

func (r *repoPG) Create(ctx context.Context, rec *DrugRecord) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context) error {
		conn := r.conn(ctx)

		// Per-year sequence. The upsert increment is atomic, so concurrent
		// creates in the same year never observe the same value.
		year := time.Now().Year()
		var seq int
		if err := conn.QueryRow(ctx, `
			INSERT INTO record_counters (year, seq) VALUES ($1, 1)
			ON CONFLICT (year) DO UPDATE SET seq = record_counters.seq + 1
			RETURNING seq`, year).Scan(&seq); err != nil {
			return err
		}

		rec.ID = uuid.New()
		rec.RecordNumber = recordNumber(year, seq)

		_, err := conn.Exec(ctx, `
			INSERT INTO drug_records (id, record_number, first_name, last_name, nickname, id_card, age,
				house_no, moo, soi, road, tambon, amphoe, province, address,
				has_used_drugs, drug_types, reasons, start_date, usage_info, last_usage,
				dealer, contact, payment, attachments, images, files, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)`,
			rec.ID, rec.RecordNumber, rec.FirstName, rec.LastName, rec.Nickname, rec.IDCard, rec.Age,
			rec.HouseNo, rec.Moo, rec.Soi, rec.Road, rec.Tambon, rec.Amphoe, rec.Province, rec.Address,
			rec.HasUsedDrugs, encodeStringSet(rec.DrugTypes), encodeStringSet(rec.Reasons), rec.StartDate,
			jsonArg(rec.Usage != nil, rec.Usage), jsonArg(rec.LastUsage != nil, rec.LastUsage),
			jsonArg(rec.Dealer != nil, rec.Dealer), jsonArg(rec.Contact != nil, rec.Contact),
			jsonArg(rec.Payment != nil, rec.Payment),
			encodeStringSet(rec.Attachments), encodeStringSet(rec.Images),
			strings.Join(rec.Files, ","), rec.Status)
		return err
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*DrugRecord, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM drug_records WHERE id = $1`, id))
}

// List pages by creation time descending. The total comes from an independent
// count so pagination stays accurate past the last page.
func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*DrugRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM drug_records`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM drug_records ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*DrugRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, id uuid.UUID, upd *RecordUpdate, actor string) (int, error) {
	var affected int
	err := db.WithTx(ctx, r.db, func(ctx context.Context) error {
		conn := r.conn(ctx)

		sets := []string{"updated_at = NOW()"}
		args := []interface{}{id}
		idx := 2
		add := func(col string, v interface{}) {
			sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
			args = append(args, v)
			idx++
		}

		if upd.FirstName != nil {
			add("first_name", *upd.FirstName)
		}
		if upd.LastName != nil {
			add("last_name", *upd.LastName)
		}
		if upd.Nickname != nil {
			add("nickname", *upd.Nickname)
		}
		if upd.IDCard != nil {
			add("id_card", *upd.IDCard)
		}
		if upd.Age != nil {
			add("age", *upd.Age)
		}
		if upd.HouseNo != nil {
			add("house_no", *upd.HouseNo)
		}
		if upd.Moo != nil {
			add("moo", *upd.Moo)
		}
		if upd.Soi != nil {
			add("soi", *upd.Soi)
		}
		if upd.Road != nil {
			add("road", *upd.Road)
		}
		if upd.Tambon != nil {
			add("tambon", *upd.Tambon)
		}
		if upd.Amphoe != nil {
			add("amphoe", *upd.Amphoe)
		}
		if upd.Province != nil {
			add("province", *upd.Province)
		}
		if upd.Address != nil {
			add("address", *upd.Address)
		}
		if upd.HasUsedDrugs != nil {
			add("has_used_drugs", *upd.HasUsedDrugs)
		}
		if upd.DrugTypes != nil {
			add("drug_types", encodeStringSet(*upd.DrugTypes))
		}
		if upd.Reasons != nil {
			add("reasons", encodeStringSet(*upd.Reasons))
		}
		if upd.StartDate != nil {
			add("start_date", *upd.StartDate)
		}
		if upd.Usage != nil {
			add("usage_info", encodeJSON(upd.Usage))
		}
		if upd.LastUsage != nil {
			add("last_usage", encodeJSON(upd.LastUsage))
		}
		if upd.Dealer != nil {
			add("dealer", encodeJSON(upd.Dealer))
		}
		if upd.Contact != nil {
			add("contact", encodeJSON(upd.Contact))
		}
		if upd.Payment != nil {
			add("payment", encodeJSON(upd.Payment))
		}
		if upd.Status != nil {
			add("status", *upd.Status)
		}

		tag, err := conn.Exec(ctx,
			fmt.Sprintf("UPDATE drug_records SET %s WHERE id = $1", strings.Join(sets, ", ")),
			args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		affected = int(tag.RowsAffected())

		_, err = conn.Exec(ctx, `
			INSERT INTO record_activities (id, drug_record_id, activity_type, status, created_by)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), id, "update", "completed", actor)
		return err
	})
	return affected, err
}

// Delete removes dependent rows before the record itself, children first, in
// one transaction.
func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context) error {
		conn := r.conn(ctx)

		var exists bool
		if err := conn.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM drug_records WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		if _, err := conn.Exec(ctx, `DELETE FROM record_files WHERE drug_record_id = $1`, id); err != nil {
			return err
		}
		if _, err := conn.Exec(ctx, `DELETE FROM record_activities WHERE drug_record_id = $1`, id); err != nil {
			return err
		}
		_, err := conn.Exec(ctx, `DELETE FROM drug_records WHERE id = $1`, id)
		return err
	})
}

// searchPage runs one compiled filter set. The total rides along each row as
// a window count, so an empty page reports total 0.
func (r *repoPG) searchPage(ctx context.Context, filters []query.Filter, limit, offset int) ([]*DrugRecord, int, error) {
	qb := query.NewBuilder("drug_records", recordCols)
	qb.Apply(filters)
	qb.OrderBy("created_at DESC")

	rows, err := r.conn(ctx).Query(ctx, qb.SQL(), qb.Args(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*DrugRecord
	total := 0
	for rows.Next() {
		rec, err := r.scanRecord(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Search(ctx context.Context, f SearchFilters, limit, offset int) ([]*DrugRecord, int, error) {
	return r.searchPage(ctx, []query.Filter{
		{Columns: []string{"first_name", "last_name", "nickname"}, Op: query.OpLikeAny, Value: f.Keyword},
		{Column: "id_card", Op: query.OpEq, Value: f.IDCard},
		{Column: "province", Op: query.OpEq, Value: f.Province},
	}, limit, offset)
}

func (r *repoPG) SearchArea(ctx context.Context, f AreaFilters, limit, offset int) ([]*DrugRecord, int, error) {
	items, total, err := r.searchPage(ctx, []query.Filter{
		{Column: "province", Op: query.OpEq, Value: f.Province},
		{Column: "amphoe", Op: query.OpEq, Value: f.Amphoe},
		{Column: "tambon", Op: query.OpEq, Value: f.Tambon},
		{Column: "moo", Op: query.OpEq, Value: f.Moo},
		{Column: "house_no", Op: query.OpEq, Value: f.HouseNo},
	}, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	for _, rec := range items {
		rec.AddressParts = &AddressParts{
			HouseNo:  strVal(rec.HouseNo),
			Moo:      strVal(rec.Moo),
			Tambon:   strVal(rec.Tambon),
			Amphoe:   strVal(rec.Amphoe),
			Province: strVal(rec.Province),
		}
	}
	return items, total, nil
}

func (r *repoPG) SearchAdvanced(ctx context.Context, f AdvancedFilters, limit, offset int) ([]*DrugRecord, int, error) {
	filters := []query.Filter{
		{Column: "first_name", Op: query.OpLike, Value: f.FirstName},
		{Column: "last_name", Op: query.OpLike, Value: f.LastName},
		{Column: "nickname", Op: query.OpLike, Value: f.Nickname},
		{Column: "id_card", Op: query.OpEq, Value: f.IDCard},
		{Column: "province", Op: query.OpEq, Value: f.Province},
		{Column: "amphoe", Op: query.OpEq, Value: f.Amphoe},
		{Column: "tambon", Op: query.OpEq, Value: f.Tambon},
	}
	if f.AgeStart != nil && f.AgeEnd != nil {
		filters = append(filters, query.Filter{Column: "age", Op: query.OpBetween, Value: *f.AgeStart, Upper: *f.AgeEnd})
	}
	if f.HasUsedDrugs != nil {
		filters = append(filters, query.Filter{Column: "has_used_drugs", Op: query.OpEq, Value: *f.HasUsedDrugs})
	}
	filters = append(filters, query.Filter{Column: "drug_types", Op: query.OpJSONAny, Values: f.DrugTypes})
	if f.StartDate != "" && f.EndDate != "" {
		lo, okLo := parseDateBound(f.StartDate, false)
		hi, okHi := parseDateBound(f.EndDate, true)
		if okLo && okHi {
			filters = append(filters, query.Filter{Column: "created_at", Op: query.OpBetween, Value: lo, Upper: hi})
		}
	}
	filters = append(filters, query.Filter{Column: "status", Op: query.OpEq, Value: f.Status})

	return r.searchPage(ctx, filters, limit, offset)
}

// parseDateBound accepts a calendar date or a full timestamp. A bare date
// used as the upper bound is widened to the end of that day so the range
// stays inclusive.
func parseDateBound(s string, upper bool) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		if upper {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (r *repoPG) distinctColumn(ctx context.Context, sql string, args ...interface{}) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (r *repoPG) Provinces(ctx context.Context) ([]string, error) {
	return r.distinctColumn(ctx,
		`SELECT DISTINCT province FROM drug_records WHERE province IS NOT NULL ORDER BY province`)
}

func (r *repoPG) Amphoes(ctx context.Context, province string) ([]string, error) {
	return r.distinctColumn(ctx,
		`SELECT DISTINCT amphoe FROM drug_records WHERE province = $1 AND amphoe IS NOT NULL ORDER BY amphoe`,
		province)
}

func (r *repoPG) Tambons(ctx context.Context, province, amphoe string) ([]string, error) {
	return r.distinctColumn(ctx,
		`SELECT DISTINCT tambon FROM drug_records WHERE province = $1 AND amphoe = $2 AND tambon IS NOT NULL ORDER BY tambon`,
		province, amphoe)
}

func (r *repoPG) SetReportStatus(ctx context.Context, id uuid.UUID, status, filePath, actor string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE drug_records
		SET pdf_status = $2, pdf_generated_at = NOW(), pdf_generated_by = $3, pdf_file_path = $4
		WHERE id = $1`,
		id, status, actor, filePath)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
