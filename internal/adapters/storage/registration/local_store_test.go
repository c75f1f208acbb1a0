package registration

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"campreg/internal/adapters/storage"
	"campreg/internal/adapters/storage/blob"
	domain "campreg/internal/domain/registration"
)

var baseTime = time.Date(2026, 7, 14, 9, 30, 0, 0, time.UTC)

func adultRecord(id string, at time.Time) domain.Registration {
	return domain.Registration{
		ID: id,
		Personal: domain.Personal{
			FirstName: "Ana", LastName: "Silva", Email: "ana@example.com", Phone: "555-0100",
			DateOfBirth: "1990-05-05", Gender: domain.GenderFemale, CorpsName: "Central",
		},
		EmergencyContact: domain.EmergencyContact{EmergencyName: "Rui", EmergencyPhone: "555-0101", EmergencyRelationship: "Brother"},
		Medical:          domain.Medical{Allergies: "Peanuts"},
		Consent:          domain.Consent{AgreedToTerms: true, PhotoVideoConsent: domain.ConsentYes},
		RegisteredAt:     at,
	}
}

func minorRecord(id string, at time.Time) domain.Registration {
	r := adultRecord(id, at)
	r.FirstName = "Joana"
	r.DateOfBirth = "2012-03-01"
	r.IsUnder18 = true
	r.Guardian = &domain.Guardian{
		GuardianFirstName: "Marta", GuardianLastName: "Silva", GuardianEmail: "marta@example.com",
		GuardianPhone: "555-0102", GuardianRelationship: domain.RelationshipParent,
	}
	return r
}

func newTestBlobs(t *testing.T) *blob.SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return blob.NewSQLiteStore(db)
}

// failingBlobs is a blob.Store whose operations fail on demand.
type failingBlobs struct {
	value  string
	getErr error
	putErr error
}

func (f *failingBlobs) Get(context.Context, string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	if f.value == "" {
		return "", blob.ErrNotFound
	}
	return f.value, nil
}

func (f *failingBlobs) Put(_ context.Context, _, value string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.value = value
	return nil
}

func TestLocalStore_EmptyCollection(t *testing.T) {
	s := NewLocalStore(newTestBlobs(t))
	records, err := s.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("records = %#v, want empty non-nil slice", records)
	}
}

func TestLocalStore_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rec  domain.Registration
	}{
		{"adult", adultRecord("a1", baseTime.Add(123*time.Millisecond))},
		{"minor", minorRecord("m1", baseTime)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewLocalStore(newTestBlobs(t))
			ctx := context.Background()
			if err := s.Append(ctx, tt.rec); err != nil {
				t.Fatalf("Append: %v", err)
			}
			got, err := s.FindByID(ctx, tt.rec.ID)
			if err != nil {
				t.Fatalf("FindByID: %v", err)
			}
			if !reflect.DeepEqual(got, tt.rec) {
				t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, tt.rec)
			}
		})
	}
}

func TestLocalStore_InsertionOrder(t *testing.T) {
	s := NewLocalStore(newTestBlobs(t))
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		if err := s.Append(ctx, adultRecord(id, baseTime.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}
	records, err := s.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("ids = %v", ids)
	}
}

func TestLocalStore_Rejects(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(newTestBlobs(t))
	if err := s.Append(ctx, adultRecord("a", baseTime)); err != nil {
		t.Fatal(err)
	}

	invalid := adultRecord("b", baseTime.Add(time.Minute))
	invalid.AgreedToTerms = false

	noGuardian := minorRecord("c", baseTime.Add(time.Minute))
	noGuardian.Guardian = nil

	tests := []struct {
		name string
		rec  domain.Registration
		want error
	}{
		{"duplicate id", adultRecord("a", baseTime.Add(time.Minute)), ErrDuplicate},
		{"older timestamp", adultRecord("d", baseTime.Add(-time.Minute)), ErrOutOfOrder},
		{"terms not agreed", invalid, domain.ErrTermsNotAgreed},
		{"minor without guardian", noGuardian, domain.ErrGuardianRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Append(ctx, tt.rec)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var se *StoreError
			if !errors.As(err, &se) {
				t.Errorf("err %T is not a *StoreError", err)
			}
		})
	}

	records, _ := s.ListAll(ctx)
	if len(records) != 1 {
		t.Errorf("len = %d, want 1 after rejected appends", len(records))
	}
}

func TestLocalStore_NotFound(t *testing.T) {
	s := NewLocalStore(newTestBlobs(t))
	if _, err := s.FindByID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLocalStore_CorruptBlob(t *testing.T) {
	s := NewLocalStore(&failingBlobs{value: "{not json"})
	_, err := s.ListAll(context.Background())
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "decode" {
		t.Errorf("err = %v, want decode StoreError", err)
	}
}

func TestLocalStore_WriteFailure(t *testing.T) {
	diskErr := errors.New("disk full")
	blobs := &failingBlobs{putErr: diskErr}
	s := NewLocalStore(blobs)

	err := s.Append(context.Background(), adultRecord("a", baseTime))
	if !errors.Is(err, diskErr) {
		t.Errorf("err = %v, want wrapped disk error", err)
	}
	if blobs.value != "" {
		t.Error("blob changed on failed write")
	}
}

func TestLocalStore_ConcurrentAppends(t *testing.T) {
	s := NewLocalStore(newTestBlobs(t))
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Equal timestamps satisfy the non-decreasing rule in any order.
			errs <- s.Append(ctx, adultRecord(string(rune('a'+i)), baseTime))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Append: %v", err)
		}
	}

	records, _ := s.ListAll(ctx)
	if len(records) != n {
		t.Errorf("len = %d, want %d", len(records), n)
	}
}
