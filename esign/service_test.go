package esign

import (
	"context"
	"errors"
	"strings"
	"testing"

	"signbridge/correlation"
	"signbridge/legacy"
)

type fakeProvider struct {
	createID    string
	createErr   error
	createCalls int

	deleteErr   error
	deletedIDs  []string
	downloadErr error
	document    []byte
}

func (f *fakeProvider) CreateAndSendPackage(_ context.Context, _ PackageSpec) (string, error) {
	f.createCalls++
	return f.createID, f.createErr
}

func (f *fakeProvider) DeletePackage(_ context.Context, packageID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, packageID)
	return nil
}

func (f *fakeProvider) DownloadDocument(_ context.Context, _, _ string) ([]byte, error) {
	return f.document, f.downloadErr
}

type fakeRepo struct {
	insertErr   error
	inserted    []correlation.InsertParams
	packageID   string
	lookupErr   error
	designation int64
	desigErr    error
	cancelErr   error
	canceledIDs []string
}

func (f *fakeRepo) Insert(_ context.Context, params correlation.InsertParams) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, params)
	return nil
}

func (f *fakeRepo) LookupPackageID(_ context.Context, _ string) (string, error) {
	return f.packageID, f.lookupErr
}

func (f *fakeRepo) LookupDesignationID(_ context.Context, _ string) (int64, error) {
	return f.designation, f.desigErr
}

func (f *fakeRepo) MarkCanceled(_ context.Context, designationID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceledIDs = append(f.canceledIDs, designationID)
	return nil
}

type fakeNotifier struct {
	res     legacy.Result
	err     error
	updates []int64
}

func (f *fakeNotifier) DesignationUpdate(_ context.Context, designationID int64) (legacy.Result, error) {
	f.updates = append(f.updates, designationID)
	return f.res, f.err
}

type fakeStorage struct {
	err   error
	saves []string
}

func (f *fakeStorage) SaveSignedDocument(packageID string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saves = append(f.saves, packageID)
	return "/docs/SignedDocs/" + packageID + ".pdf", nil
}

type fakeFiller struct {
	err error
}

func (f *fakeFiller) Fill(_ map[string]string) ([]byte, error) {
	return []byte("%PDF-filled"), f.err
}

func newTestService(p *fakeProvider, r *fakeRepo, n *fakeNotifier, st *fakeStorage) *Service {
	return NewService(p, r, n, st, &fakeFiller{}, "sender@example.com", 30, nil)
}

func validRequest() SigningRequest {
	return SigningRequest{
		SignerEmail:     "signer@example.com",
		SignerFirstName: "Ann",
		SignerLastName:  "Smith",
		DateOfBirth:     "01/02/1980",
		Last4SSN:        "1234",
		DesignationID:   "544646522",
		CorrelationTag:  "CN-1",
	}
}

func TestCreateAndSend_RecordsCorrelation(t *testing.T) {
	provider := &fakeProvider{createID: "PKG-1"}
	repo := &fakeRepo{}
	svc := newTestService(provider, repo, &fakeNotifier{}, &fakeStorage{})

	packageID, err := svc.CreateAndSend(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if packageID != "PKG-1" {
		t.Errorf("expected PKG-1, got %q", packageID)
	}

	if len(repo.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(repo.inserted))
	}
	got := repo.inserted[0]
	if got.PackageID != "PKG-1" || got.DesignationID != "544646522" || got.SignerEmail != "signer@example.com" || got.CorrelationTag != "CN-1" {
		t.Errorf("unexpected insert params: %+v", got)
	}
}

func TestCreateAndSend_ProviderFailureSkipsInsert(t *testing.T) {
	provider := &fakeProvider{createErr: errors.New("provider down")}
	repo := &fakeRepo{}
	svc := newTestService(provider, repo, &fakeNotifier{}, &fakeStorage{})

	if _, err := svc.CreateAndSend(context.Background(), validRequest()); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.inserted) != 0 {
		t.Errorf("expected no insert after provider failure, got %d", len(repo.inserted))
	}
}

func TestCreateAndSend_StoreFailureSurfacesOrphan(t *testing.T) {
	provider := &fakeProvider{createID: "PKG-orphan"}
	repo := &fakeRepo{insertErr: errors.New("connection lost")}
	svc := newTestService(provider, repo, &fakeNotifier{}, &fakeStorage{})

	_, err := svc.CreateAndSend(context.Background(), validRequest())
	if !errors.Is(err, ErrCorrelationPersistFailed) {
		t.Fatalf("expected ErrCorrelationPersistFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "PKG-orphan") {
		t.Errorf("expected error to carry package id for reconciliation, got %v", err)
	}
}

func TestCreateAndSend_ValidatesRequest(t *testing.T) {
	svc := newTestService(&fakeProvider{}, &fakeRepo{}, &fakeNotifier{}, &fakeStorage{})

	req := validRequest()
	req.SignerEmail = ""
	if _, err := svc.CreateAndSend(context.Background(), req); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing email, got %v", err)
	}

	req = validRequest()
	req.DesignationID = ""
	if _, err := svc.CreateAndSend(context.Background(), req); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing designation, got %v", err)
	}
}

func TestCancel_NoCorrelation(t *testing.T) {
	provider := &fakeProvider{}
	repo := &fakeRepo{lookupErr: correlation.ErrNotFound}
	svc := newTestService(provider, repo, &fakeNotifier{}, &fakeStorage{})

	if err := svc.Cancel(context.Background(), "544646522"); !errors.Is(err, ErrNoActivePackage) {
		t.Fatalf("expected ErrNoActivePackage, got %v", err)
	}
	if len(provider.deletedIDs) != 0 {
		t.Error("expected no provider delete when nothing is recorded")
	}
}

func TestCancel_ProviderFailureLeavesRecordUntouched(t *testing.T) {
	provider := &fakeProvider{deleteErr: errors.New("delete rejected")}
	repo := &fakeRepo{packageID: "PKG-1"}
	svc := newTestService(provider, repo, &fakeNotifier{}, &fakeStorage{})

	if err := svc.Cancel(context.Background(), "544646522"); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.canceledIDs) != 0 {
		t.Error("expected record to stay unmarked after provider failure")
	}
}

func TestCancel_MarksRecordAfterDelete(t *testing.T) {
	provider := &fakeProvider{}
	repo := &fakeRepo{packageID: "PKG-1"}
	svc := newTestService(provider, repo, &fakeNotifier{}, &fakeStorage{})

	if err := svc.Cancel(context.Background(), "544646522"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(provider.deletedIDs) != 1 || provider.deletedIDs[0] != "PKG-1" {
		t.Errorf("expected provider delete of PKG-1, got %v", provider.deletedIDs)
	}
	if len(repo.canceledIDs) != 1 || repo.canceledIDs[0] != "544646522" {
		t.Errorf("expected mark canceled for designation, got %v", repo.canceledIDs)
	}
}

func TestHandleCompletion_NotifiesLegacy(t *testing.T) {
	provider := &fakeProvider{document: []byte("%PDF-signed")}
	repo := &fakeRepo{designation: 544646522}
	notifier := &fakeNotifier{res: legacy.Result{Body: "FINALIZED"}}
	storage := &fakeStorage{}
	svc := newTestService(provider, repo, notifier, storage)

	path, err := svc.HandleCompletion(context.Background(), "PKG-1", "doc-9")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if path != "/docs/SignedDocs/PKG-1.pdf" {
		t.Errorf("unexpected path %q", path)
	}
	if len(notifier.updates) != 1 || notifier.updates[0] != 544646522 {
		t.Errorf("expected legacy finalize for 544646522, got %v", notifier.updates)
	}
}

func TestHandleCompletion_MissingCorrelationStillSucceeds(t *testing.T) {
	provider := &fakeProvider{document: []byte("%PDF-signed")}
	repo := &fakeRepo{desigErr: correlation.ErrNotFound}
	notifier := &fakeNotifier{}
	svc := newTestService(provider, repo, notifier, &fakeStorage{})

	path, err := svc.HandleCompletion(context.Background(), "PKG-1", "doc-9")
	if err != nil {
		t.Fatalf("expected nil error when correlation is missing, got %v", err)
	}
	if path == "" {
		t.Error("expected stored path")
	}
	if len(notifier.updates) != 0 {
		t.Error("expected no legacy call without correlation")
	}
}

func TestHandleCompletion_LegacyFailureDoesNotRollBack(t *testing.T) {
	provider := &fakeProvider{document: []byte("%PDF-signed")}
	repo := &fakeRepo{designation: 42}
	notifier := &fakeNotifier{err: errors.New("gateway down")}
	svc := newTestService(provider, repo, notifier, &fakeStorage{})

	path, err := svc.HandleCompletion(context.Background(), "PKG-1", "doc-9")
	if err != nil {
		t.Fatalf("expected nil error after legacy failure, got %v", err)
	}
	if path == "" {
		t.Error("expected stored path despite legacy failure")
	}
}

func TestHandleCompletion_Idempotent(t *testing.T) {
	provider := &fakeProvider{document: []byte("%PDF-signed")}
	repo := &fakeRepo{designation: 42}
	svc := newTestService(provider, repo, &fakeNotifier{}, &fakeStorage{})

	first, err := svc.HandleCompletion(context.Background(), "PKG-1", "doc-9")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.HandleCompletion(context.Background(), "PKG-1", "doc-9")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first != second {
		t.Errorf("expected identical paths, got %q and %q", first, second)
	}
}

func TestHandleCompletion_DownloadFailure(t *testing.T) {
	provider := &fakeProvider{downloadErr: errors.New("404")}
	repo := &fakeRepo{designation: 42}
	notifier := &fakeNotifier{}
	storage := &fakeStorage{}
	svc := newTestService(provider, repo, notifier, storage)

	if _, err := svc.HandleCompletion(context.Background(), "PKG-1", "doc-9"); err == nil {
		t.Fatal("expected error")
	}
	if len(storage.saves) != 0 {
		t.Error("expected nothing stored after download failure")
	}
	if len(notifier.updates) != 0 {
		t.Error("expected no legacy call after download failure")
	}
}
