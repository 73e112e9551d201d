package survey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dsr/dsr/internal/platform/auth"
)

type fakeRepo struct {
	records map[uuid.UUID]*DrugRecord

	createCalls int
	updateCalls int
	createErr   error

	lastStatus     string
	lastStatusPath string
	lastStatusBy   string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: map[uuid.UUID]*DrugRecord{}}
}

func (f *fakeRepo) Create(_ context.Context, rec *DrugRecord) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	rec.ID = uuid.New()
	rec.RecordNumber = recordNumber(2026, f.createCalls)
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*DrugRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (f *fakeRepo) List(_ context.Context, _, _ int) ([]*DrugRecord, int, error) {
	var items []*DrugRecord
	for _, rec := range f.records {
		items = append(items, rec)
	}
	return items, len(items), nil
}

func (f *fakeRepo) Update(_ context.Context, id uuid.UUID, _ *RecordUpdate, _ string) (int, error) {
	f.updateCalls++
	if _, ok := f.records[id]; !ok {
		return 0, ErrNotFound
	}
	return 1, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.records[id]; !ok {
		return ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeRepo) Search(_ context.Context, _ SearchFilters, _, _ int) ([]*DrugRecord, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) SearchArea(_ context.Context, _ AreaFilters, _, _ int) ([]*DrugRecord, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) SearchAdvanced(_ context.Context, _ AdvancedFilters, _, _ int) ([]*DrugRecord, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) Provinces(_ context.Context) ([]string, error) { return nil, nil }

func (f *fakeRepo) Amphoes(_ context.Context, _ string) ([]string, error) { return nil, nil }

func (f *fakeRepo) Tambons(_ context.Context, _, _ string) ([]string, error) { return nil, nil }

func (f *fakeRepo) SetReportStatus(_ context.Context, id uuid.UUID, status, filePath, actor string) error {
	if _, ok := f.records[id]; !ok {
		return ErrNotFound
	}
	f.lastStatus = status
	f.lastStatusPath = filePath
	f.lastStatusBy = actor
	return nil
}

type fakeRenderer struct {
	reportCalls int
	reportErr   error
	failFor     map[uuid.UUID]bool
}

func (f *fakeRenderer) Report(_ context.Context, rec *DrugRecord, _ bool, _ time.Duration) (string, error) {
	f.reportCalls++
	if f.reportErr != nil {
		return "", f.reportErr
	}
	if f.failFor[rec.ID] {
		return "", errors.New("font missing")
	}
	return "/tmp/reports/" + rec.RecordNumber + ".pdf", nil
}

func (f *fakeRenderer) Export(rec *DrugRecord) (string, error) {
	return "/tmp/exports/" + rec.RecordNumber + ".xlsx", nil
}

func (f *fakeRenderer) Cleanup(_ time.Duration) (int, error) { return 0, nil }

func newTestService(repo *fakeRepo, rend *fakeRenderer) *Service {
	return NewService(repo, rend, time.Hour, zerolog.Nop())
}

func validRecord() *DrugRecord {
	return &DrugRecord{FirstName: "สมชาย", LastName: "ใจดี", IDCard: "1234567890123"}
}

func TestCreate_AssignsSequentialRecordNumbers(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeRenderer{})

	first, err := svc.Create(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if first.RecordNumber != "DRUG-2026-0001" {
		t.Errorf("first record number = %q", first.RecordNumber)
	}
	if second.RecordNumber != "DRUG-2026-0002" {
		t.Errorf("second record number = %q", second.RecordNumber)
	}
}

func TestCreate_ValidationRejectsWithoutWriting(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeRenderer{})

	cases := []*DrugRecord{
		{LastName: "ใจดี", IDCard: "1234567890123"},
		{FirstName: "สมชาย", IDCard: "1234567890123"},
		{FirstName: "สมชาย", LastName: "ใจดี", IDCard: "123"},
		{FirstName: "สมชาย", LastName: "ใจดี", IDCard: "12345678901234"},
		{FirstName: "  ", LastName: "ใจดี", IDCard: "1234567890123"},
	}
	for i, rec := range cases {
		if _, err := svc.Create(context.Background(), rec); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: err = %v, want ErrValidation", i, err)
		}
	}
	if repo.createCalls != 0 {
		t.Errorf("createCalls = %d, want 0", repo.createCalls)
	}
}

func TestCreate_DerivesAddressPartsFromRawAddress(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeRenderer{})

	rec := validRecord()
	addr := "99/1 ม.5 ต.มะอึ อ.ธวัชบุรี จ.ร้อยเอ็ด"
	rec.Address = &addr
	keep := "เมืองทอง"
	rec.Tambon = &keep

	created, err := svc.Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.HouseNo == nil || *created.HouseNo != "99/1" {
		t.Errorf("house_no not derived: %v", created.HouseNo)
	}
	if created.Moo == nil || *created.Moo != "5" {
		t.Errorf("moo not derived: %v", created.Moo)
	}
	if *created.Tambon != "เมืองทอง" {
		t.Errorf("explicit tambon overwritten: %q", *created.Tambon)
	}
	if created.Province == nil || *created.Province != "ร้อยเอ็ด" {
		t.Errorf("province not derived: %v", created.Province)
	}
}

func TestCreate_PersistenceFailureWrapped(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("connection reset")
	svc := newTestService(repo, &fakeRenderer{})

	_, err := svc.Create(context.Background(), validRecord())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeRenderer{})
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate_ValidationSkipsRepo(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeRenderer{})

	blank := ""
	bad := "12"
	for _, upd := range []*RecordUpdate{
		{FirstName: &blank},
		{IDCard: &bad},
	} {
		if _, err := svc.Update(context.Background(), uuid.New(), upd); !errors.Is(err, ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	}
	if repo.updateCalls != 0 {
		t.Errorf("updateCalls = %d, want 0", repo.updateCalls)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeRenderer{})
	name := "สมหญิง"
	if _, err := svc.Update(context.Background(), uuid.New(), &RecordUpdate{FirstName: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRenderReport_StampsStatusWithActor(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeRenderer{})

	rec, err := svc.Create(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ctx := context.WithValue(context.Background(), auth.UsernameKey, "officer42")
	_, path, err := svc.RenderReport(ctx, rec.ID, true, 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if repo.lastStatus != "completed" {
		t.Errorf("status = %q, want completed", repo.lastStatus)
	}
	if repo.lastStatusPath != path {
		t.Errorf("stamped path %q != returned path %q", repo.lastStatusPath, path)
	}
	if repo.lastStatusBy != "officer42" {
		t.Errorf("actor = %q, want officer42", repo.lastStatusBy)
	}
}

func TestRenderReport_AnonymousActorDefaultsToSystem(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeRenderer{})

	rec, err := svc.Create(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.RenderReport(context.Background(), rec.ID, false, 0); err != nil {
		t.Fatalf("render: %v", err)
	}
	if repo.lastStatusBy != "system" {
		t.Errorf("actor = %q, want system", repo.lastStatusBy)
	}
}

func TestRenderReport_FailureSkipsStatusStamp(t *testing.T) {
	repo := newFakeRepo()
	rend := &fakeRenderer{reportErr: errors.New("disk full")}
	svc := newTestService(repo, rend)

	rec, err := svc.Create(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.RenderReport(context.Background(), rec.ID, true, 0); !errors.Is(err, ErrRender) {
		t.Fatalf("err = %v, want ErrRender", err)
	}
	if repo.lastStatus != "" {
		t.Errorf("status stamped %q on failed render", repo.lastStatus)
	}
}

func TestRenderBatch_IsolatesFailures(t *testing.T) {
	repo := newFakeRepo()
	rend := &fakeRenderer{failFor: map[uuid.UUID]bool{}}
	svc := newTestService(repo, rend)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		rec, err := svc.Create(context.Background(), validRecord())
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, rec.ID)
	}
	rend.failFor[ids[1]] = true
	ids = append(ids, uuid.New()) // unknown record

	results := svc.RenderBatch(context.Background(), ids, true)
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}

	wantSuccess := []bool{true, false, true, false}
	for i, res := range results {
		if res.Success != wantSuccess[i] {
			t.Errorf("result %d success = %v, want %v (%s)", i, res.Success, wantSuccess[i], res.Error)
		}
	}
	if results[0].FilePath == "" || results[2].FilePath == "" {
		t.Error("successful results missing file paths")
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeRenderer{})
	if err := svc.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestExport_ReturnsSpreadsheetPath(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeRenderer{})

	rec, err := svc.Create(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, path, err := svc.Export(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if path != "/tmp/exports/"+rec.RecordNumber+".xlsx" {
		t.Errorf("path = %q", path)
	}
}
