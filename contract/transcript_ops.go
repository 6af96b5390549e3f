package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"credtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Transcript Ledger Operations ---

// IssueTranscript records a new academic transcript on behalf of the calling
// institution. The caller must hold the institution role and its identity must
// map to an active institution record. Courses arrive as a JSON array and are
// immutable once stored. Returns the newly assigned transcript id.
func (s *CredtraceSmartContract) IssueTranscript(ctx contractapi.TransactionContextInterface,
	studentAddress, studentID, studentName, program, coursesJSON, contentReference string) (uint64, error) {

	rm := NewRoleManager(ctx)
	if err := rm.RequireRole(model.RoleInstitution); err != nil {
		return 0, fmt.Errorf("IssueTranscript: %w", err)
	}
	actorID, err := rm.GetCallerID()
	if err != nil {
		return 0, fmt.Errorf("IssueTranscript: failed to get caller identity: %w", err)
	}

	institutionID, exists, err := s.getInstitutionIDByAddress(ctx, actorID)
	if err != nil {
		return 0, fmt.Errorf("IssueTranscript: %w", err)
	}
	if !exists {
		return 0, Errf(KindInstitutionInactive, "caller '%s' has no registered institution", actorID)
	}
	institution, err := s.getInstitutionByID(ctx, institutionID)
	if err != nil {
		return 0, fmt.Errorf("IssueTranscript: %w", err)
	}
	if !institution.IsActive {
		return 0, Errf(KindInstitutionInactive, "institution %d ('%s') is deactivated and cannot issue", institutionID, institution.Name)
	}

	if err := s.validateRequiredString(studentAddress, "studentAddress", maxStringInputLength*2); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(studentID, "studentId", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(studentName, "studentName", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(program, "program", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateOptionalString(contentReference, "contentReference", maxStringInputLength*2); err != nil {
		return 0, err
	}
	studentAddress = strings.TrimSpace(studentAddress)

	var courses []model.Course
	if err := json.Unmarshal([]byte(coursesJSON), &courses); err != nil {
		return 0, Errf(KindInvalidInput, "invalid coursesJSON: %v", err)
	}
	if err := s.validateCourses(courses); err != nil {
		return 0, err
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return 0, fmt.Errorf("IssueTranscript: %w", err)
	}

	// All checks passed; assigning the id is the first write.
	id, err := s.nextSequence(ctx, counterTranscript)
	if err != nil {
		return 0, fmt.Errorf("IssueTranscript: %w", err)
	}

	transcript := model.Transcript{
		ObjectType:       transcriptObjectType,
		ID:               id,
		InstitutionID:    institutionID,
		StudentAddress:   studentAddress,
		StudentID:        studentID,
		StudentName:      studentName,
		Program:          program,
		Courses:          courses,
		IssuedAt:         now,
		IsRevoked:        false,
		ContentReference: contentReference,
	}
	transcriptBytes, err := json.Marshal(transcript)
	if err != nil {
		return 0, fmt.Errorf("IssueTranscript: failed to marshal transcript %d: %w", id, err)
	}
	transcriptKey, err := s.createTranscriptKey(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("IssueTranscript: failed to create transcript key for %d: %w", id, err)
	}
	if err := ctx.GetStub().PutState(transcriptKey, transcriptBytes); err != nil {
		return 0, fmt.Errorf("IssueTranscript: failed to save transcript %d: %w", id, err)
	}

	indexKey, err := s.createStudentIndexKey(ctx, studentAddress, id)
	if err != nil {
		return 0, fmt.Errorf("IssueTranscript: failed to create student index key for '%s'/%d: %w", studentAddress, id, err)
	}
	if err := ctx.GetStub().PutState(indexKey, []byte(strconv.FormatUint(id, 10))); err != nil {
		return 0, fmt.Errorf("IssueTranscript: failed to save student index entry for '%s'/%d: %w", studentAddress, id, err)
	}

	if err := s.appendAudit(ctx, model.AuditTranscriptIssued, actorID, strconv.FormatUint(id, 10), "success"); err != nil {
		return 0, fmt.Errorf("IssueTranscript: %w", err)
	}
	logger.Infof("Transcript %d issued by institution %d ('%s') for student '%s'", id, institutionID, institution.Name, studentAddress)
	return id, nil
}

// RevokeTranscript marks a transcript invalid with a recorded reason. Only
// the institution that issued it may revoke, and only once: the flip from
// revoked back to valid does not exist.
func (s *CredtraceSmartContract) RevokeTranscript(ctx contractapi.TransactionContextInterface, transcriptID uint64, reason string) error {
	rm := NewRoleManager(ctx)
	if err := rm.RequireRole(model.RoleInstitution); err != nil {
		return fmt.Errorf("RevokeTranscript: %w", err)
	}
	actorID, err := rm.GetCallerID()
	if err != nil {
		return fmt.Errorf("RevokeTranscript: failed to get caller identity: %w", err)
	}

	if err := s.validateRequiredString(reason, "reason", maxReasonLength); err != nil {
		return err
	}

	transcript, err := s.getTranscriptByID(ctx, transcriptID)
	if err != nil {
		return fmt.Errorf("RevokeTranscript: %w", err)
	}
	if transcript.IsRevoked {
		return Errf(KindAlreadyRevoked, "transcript %d is already revoked (reason: %s)", transcriptID, transcript.RevocationReason)
	}

	institution, err := s.getInstitutionByID(ctx, transcript.InstitutionID)
	if err != nil {
		return fmt.Errorf("RevokeTranscript: failed to load issuing institution %d: %w", transcript.InstitutionID, err)
	}
	if institution.Address != actorID {
		return Errf(KindUnauthorized, "caller '%s' is not the issuer of transcript %d (issued by institution %d)", actorID, transcriptID, transcript.InstitutionID)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("RevokeTranscript: %w", err)
	}
	transcript.IsRevoked = true
	transcript.RevocationReason = reason
	transcript.RevokedAt = now

	transcriptBytes, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("RevokeTranscript: failed to marshal transcript %d: %w", transcriptID, err)
	}
	transcriptKey, err := s.createTranscriptKey(ctx, transcriptID)
	if err != nil {
		return fmt.Errorf("RevokeTranscript: failed to create transcript key for %d: %w", transcriptID, err)
	}
	if err := ctx.GetStub().PutState(transcriptKey, transcriptBytes); err != nil {
		return fmt.Errorf("RevokeTranscript: failed to save revoked transcript %d: %w", transcriptID, err)
	}

	if err := s.appendAudit(ctx, model.AuditTranscriptRevoked, actorID, strconv.FormatUint(transcriptID, 10), "success"); err != nil {
		return fmt.Errorf("RevokeTranscript: %w", err)
	}
	logger.Infof("Transcript %d revoked by institution %d. Reason: %s", transcriptID, transcript.InstitutionID, reason)
	return nil
}
