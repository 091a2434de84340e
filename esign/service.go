package esign

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"signbridge/correlation"
	"signbridge/legacy"
	"signbridge/metrics"
)

var (
	// ErrNoActivePackage signals a cancellation for a designation with no
	// recorded correlation. There is nothing to cancel; not retried.
	ErrNoActivePackage = errors.New("esign: no active package for designation")

	// ErrCorrelationPersistFailed signals that the provider accepted the
	// package but the correlation insert failed afterward. The remote
	// package is orphaned and needs manual reconciliation; the wrapped
	// message carries the package id for that purpose.
	ErrCorrelationPersistFailed = errors.New("esign: correlation persist failed after send")

	// ErrValidation signals a malformed signing request.
	ErrValidation = errors.New("esign: invalid signing request")
)

// LegacyNotifier is the slice of the legacy bridge the orchestrator needs.
type LegacyNotifier interface {
	DesignationUpdate(ctx context.Context, designationID int64) (legacy.Result, error)
}

// ArtifactStore persists downloaded signed documents.
type ArtifactStore interface {
	SaveSignedDocument(packageID string, content []byte) (string, error)
}

// Service orchestrates package creation, cancellation, and completion across
// the provider, the correlation store, artifact storage, and the legacy
// gateway. It holds no per-package state; the store is re-read on every
// operation and remains the source of truth across restarts.
type Service struct {
	provider Provider
	store    correlation.Repository
	notifier LegacyNotifier
	storage  ArtifactStore
	filler   TemplateFiller
	logger   *zap.Logger

	senderEmail string
	expiryDays  int
}

// NewService wires the orchestrator. All collaborators are required except
// logger, which defaults to a no-op.
func NewService(provider Provider, store correlation.Repository, notifier LegacyNotifier, storage ArtifactStore, filler TemplateFiller, senderEmail string, expiryDays int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider:    provider,
		store:       store,
		notifier:    notifier,
		storage:     storage,
		filler:      filler,
		logger:      logger,
		senderEmail: senderEmail,
		expiryDays:  expiryDays,
	}
}

// CreateAndSend fills the template, submits the package to the provider, and
// records the correlation. The provider call deliberately happens before the
// store insert; a store failure afterward surfaces as
// ErrCorrelationPersistFailed so the orphaned remote package can be
// reconciled by an operator rather than silently lost.
func (s *Service) CreateAndSend(ctx context.Context, req SigningRequest) (string, error) {
	if req.SignerEmail == "" {
		return "", fmt.Errorf("%w: signer email required", ErrValidation)
	}
	if req.DesignationID == "" {
		return "", fmt.Errorf("%w: designation id required", ErrValidation)
	}

	document, err := s.filler.Fill(req.PDFFieldValues)
	if err != nil {
		return "", fmt.Errorf("esign: fill template: %w", err)
	}

	spec := PackageSpec{
		Name:                 fmt.Sprintf("Designation %s", req.DesignationID),
		SenderEmail:          s.senderEmail,
		SignerEmail:          req.SignerEmail,
		SignerFirstName:      req.SignerFirstName,
		SignerLastName:       req.SignerLastName,
		ChallengeDateOfBirth: req.DateOfBirth,
		ChallengeLast4:       req.Last4SSN,
		ExpiryDays:           s.expiryDays,
		DocumentName:         fmt.Sprintf("designation-%s", req.DesignationID),
		Document:             document,
	}

	packageID, err := s.provider.CreateAndSendPackage(ctx, spec)
	if err != nil {
		s.logger.Error("create and send failed",
			zap.String("designation_id", req.DesignationID),
			zap.Error(err),
		)
		return "", err
	}
	metrics.PackagesCreated.Inc()

	err = s.store.Insert(ctx, correlation.InsertParams{
		PackageID:      packageID,
		DesignationID:  req.DesignationID,
		SignerEmail:    req.SignerEmail,
		CorrelationTag: req.CorrelationTag,
	})
	if err != nil {
		s.logger.Error("correlation insert failed after successful send; remote package orphaned",
			zap.String("package_id", packageID),
			zap.String("designation_id", req.DesignationID),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: package %s: %v", ErrCorrelationPersistFailed, packageID, err)
	}

	s.logger.Info("package sent",
		zap.String("package_id", packageID),
		zap.String("designation_id", req.DesignationID),
	)
	return packageID, nil
}

// Cancel deletes the remote package for the designation and marks the local
// record canceled. If the remote delete fails, the local record is left
// untouched so the store never claims a still-live package is canceled.
func (s *Service) Cancel(ctx context.Context, designationID string) error {
	packageID, err := s.store.LookupPackageID(ctx, designationID)
	if err != nil {
		if errors.Is(err, correlation.ErrNotFound) {
			s.logger.Warn("cancel requested with no recorded package",
				zap.String("designation_id", designationID),
			)
			return ErrNoActivePackage
		}
		return err
	}

	if err := s.provider.DeletePackage(ctx, packageID); err != nil {
		s.logger.Error("provider delete failed; correlation left unmarked",
			zap.String("package_id", packageID),
			zap.String("designation_id", designationID),
			zap.Error(err),
		)
		return err
	}

	if err := s.store.MarkCanceled(ctx, designationID); err != nil {
		return err
	}
	metrics.PackagesCanceled.Inc()

	s.logger.Info("package canceled",
		zap.String("package_id", packageID),
		zap.String("designation_id", designationID),
	)
	return nil
}

// HandleCompletion downloads the signed artifact, persists it at a
// deterministic path, and notifies the legacy side. Download success and
// legacy notification are independent outcomes: a missing correlation or a
// failed legacy call is logged and does not fail the completion. The whole
// operation is safe to repeat for the same arguments.
func (s *Service) HandleCompletion(ctx context.Context, packageID, documentID string) (string, error) {
	content, err := s.provider.DownloadDocument(ctx, packageID, documentID)
	if err != nil {
		s.logger.Error("download failed",
			zap.String("package_id", packageID),
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return "", err
	}

	path, err := s.storage.SaveSignedDocument(packageID, content)
	if err != nil {
		return "", err
	}

	designationID, err := s.store.LookupDesignationID(ctx, packageID)
	if err != nil {
		s.logger.Warn("no designation for completed package; legacy not notified",
			zap.String("package_id", packageID),
			zap.Error(err),
		)
		return path, nil
	}
	if designationID <= 0 {
		s.logger.Warn("non-positive designation for completed package; legacy not notified",
			zap.String("package_id", packageID),
			zap.Int64("designation_id", designationID),
		)
		return path, nil
	}

	res, err := s.notifier.DesignationUpdate(ctx, designationID)
	if err != nil {
		s.logger.Error("legacy finalize failed; artifact already stored",
			zap.String("package_id", packageID),
			zap.Int64("designation_id", designationID),
			zap.Error(err),
		)
		return path, nil
	}

	s.logger.Info("completion handled",
		zap.String("package_id", packageID),
		zap.Int64("designation_id", designationID),
		zap.String("stored_path", path),
		zap.String("legacy_response", res.Body),
	)
	return path, nil
}
