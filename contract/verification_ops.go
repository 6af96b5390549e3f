package contract

import (
	"fmt"
	"strconv"

	"credtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Verification Service ---

// VerifyTranscript checks a transcript's integrity: valid means it has not
// been revoked and its issuing institution is still accredited. Callable by
// any identity. The check itself is an auditable event — an audit record is
// appended whether the outcome is valid or invalid — but the transcript and
// institution records are never touched.
func (s *CredtraceSmartContract) VerifyTranscript(ctx contractapi.TransactionContextInterface, transcriptID uint64) (*model.VerificationResult, error) {
	rm := NewRoleManager(ctx)
	actorID, err := rm.GetCallerID()
	if err != nil {
		return nil, fmt.Errorf("VerifyTranscript: failed to get caller identity: %w", err)
	}

	transcript, err := s.getTranscriptByID(ctx, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("VerifyTranscript: %w", err)
	}
	institution, err := s.getInstitutionByID(ctx, transcript.InstitutionID)
	if err != nil {
		return nil, fmt.Errorf("VerifyTranscript: failed to load issuing institution %d: %w", transcript.InstitutionID, err)
	}

	result := &model.VerificationResult{TranscriptID: transcriptID, Valid: true}
	switch {
	case transcript.IsRevoked:
		result.Valid = false
		result.Reason = fmt.Sprintf("transcript revoked: %s", transcript.RevocationReason)
	case !institution.IsActive:
		result.Valid = false
		result.Reason = fmt.Sprintf("issuing institution %d ('%s') is no longer accredited", institution.ID, institution.Name)
	}

	outcome := "valid"
	if !result.Valid {
		outcome = "invalid"
	}
	if err := s.appendAudit(ctx, model.AuditTranscriptVerified, actorID, strconv.FormatUint(transcriptID, 10), outcome); err != nil {
		return nil, fmt.Errorf("VerifyTranscript: %w", err)
	}
	logger.Infof("Transcript %d verified by '%s': %s", transcriptID, actorID, outcome)
	return result, nil
}
