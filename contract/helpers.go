package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"credtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Object types for composite keys, also usable as 'docType' in CouchDB.
const (
	institutionObjectType        = "Institution"        // Attribute: zero-padded ID.
	institutionAddressObjectType = "InstitutionAddress" // Attribute: address. Uniqueness index, value is the decimal ID.
	transcriptObjectType         = "Transcript"         // Attribute: zero-padded ID.
	studentIndexObjectType       = "StudentTranscript"  // Attributes: studentAddress, zero-padded transcript ID.
	counterObjectType            = "Counter"            // Attribute: counter name.
)

// Counter names. Counters hold the last assigned value and are only advanced
// after every validation of the operation has passed, so a failed attempt
// never consumes an id.
const (
	counterInstitution = "institution"
	counterTranscript  = "transcript"
	counterAudit       = "audit"
)

// Input limits.
const (
	maxStringInputLength = 256
	maxReasonLength      = 512
	maxCourses           = 100
)

// padID formats record ids for composite keys so range scans return them in
// numeric order.
func padID(id uint64) string {
	return fmt.Sprintf("%012d", id)
}

// padSeq formats audit sequence numbers; wider than padID because the audit
// stream outgrows every other table.
func padSeq(seq uint64) string {
	return fmt.Sprintf("%016d", seq)
}

// getCurrentTxTimestamp retrieves the current transaction timestamp from the stub.
func (s *CredtraceSmartContract) getCurrentTxTimestamp(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

// nextSequence advances the named counter and returns the newly assigned value.
func (s *CredtraceSmartContract) nextSequence(ctx contractapi.TransactionContextInterface, name string) (uint64, error) {
	counterKey, err := ctx.GetStub().CreateCompositeKey(counterObjectType, []string{name})
	if err != nil {
		return 0, fmt.Errorf("failed to create counter key '%s': %w", name, err)
	}
	counterBytes, err := ctx.GetStub().GetState(counterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter '%s': %w", name, err)
	}
	var last uint64
	if counterBytes != nil {
		last, err = strconv.ParseUint(string(counterBytes), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt counter '%s' value '%s': %w", name, string(counterBytes), err)
		}
	}
	next := last + 1
	if err := ctx.GetStub().PutState(counterKey, []byte(strconv.FormatUint(next, 10))); err != nil {
		return 0, fmt.Errorf("failed to advance counter '%s': %w", name, err)
	}
	return next, nil
}

// --- Key creation helpers ---

func (s *CredtraceSmartContract) createInstitutionKey(ctx contractapi.TransactionContextInterface, id uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(institutionObjectType, []string{padID(id)})
}

func (s *CredtraceSmartContract) createInstitutionAddressKey(ctx contractapi.TransactionContextInterface, address string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(institutionAddressObjectType, []string{address})
}

func (s *CredtraceSmartContract) createTranscriptKey(ctx contractapi.TransactionContextInterface, id uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(transcriptObjectType, []string{padID(id)})
}

func (s *CredtraceSmartContract) createStudentIndexKey(ctx contractapi.TransactionContextInterface, studentAddress string, transcriptID uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(studentIndexObjectType, []string{studentAddress, padID(transcriptID)})
}

// --- Validation helpers ---

func (s *CredtraceSmartContract) validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return Errf(KindInvalidInput, "%s cannot be empty", field)
	}
	if len(input) > max {
		return Errf(KindInvalidInput, "%s exceeds max length %d", field, max)
	}
	return nil
}

func (s *CredtraceSmartContract) validateOptionalString(input, field string, max int) error {
	if input != "" && len(input) > max {
		return Errf(KindInvalidInput, "%s exceeds max length %d", field, max)
	}
	return nil
}

// --- Record fetch helpers ---

// getInstitutionByID retrieves and unmarshals an institution record.
func (s *CredtraceSmartContract) getInstitutionByID(ctx contractapi.TransactionContextInterface, id uint64) (*model.Institution, error) {
	if id == 0 {
		return nil, Errf(KindInvalidInput, "institutionId must be positive")
	}
	institutionKey, err := s.createInstitutionKey(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create institution key for %d: %w", id, err)
	}
	institutionBytes, err := ctx.GetStub().GetState(institutionKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error reading institution %d: %w", id, err)
	}
	if institutionBytes == nil {
		return nil, Errf(KindNotFound, "institution %d does not exist", id)
	}
	var institution model.Institution
	if err := json.Unmarshal(institutionBytes, &institution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal institution %d: %w", id, err)
	}
	return &institution, nil
}

// getInstitutionIDByAddress resolves the uniqueness index. The boolean is
// false when no record (active or not) holds the address.
func (s *CredtraceSmartContract) getInstitutionIDByAddress(ctx contractapi.TransactionContextInterface, address string) (uint64, bool, error) {
	addressKey, err := s.createInstitutionAddressKey(ctx, address)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create institution address key for '%s': %w", address, err)
	}
	idBytes, err := ctx.GetStub().GetState(addressKey)
	if err != nil {
		return 0, false, fmt.Errorf("ledger error resolving institution address '%s': %w", address, err)
	}
	if idBytes == nil {
		return 0, false, nil
	}
	id, err := strconv.ParseUint(string(idBytes), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt institution address index for '%s': %w", address, err)
	}
	return id, true, nil
}

// getTranscriptByID retrieves and unmarshals a transcript record.
func (s *CredtraceSmartContract) getTranscriptByID(ctx contractapi.TransactionContextInterface, id uint64) (*model.Transcript, error) {
	if id == 0 {
		return nil, Errf(KindInvalidInput, "transcriptId must be positive")
	}
	transcriptKey, err := s.createTranscriptKey(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript key for %d: %w", id, err)
	}
	transcriptBytes, err := ctx.GetStub().GetState(transcriptKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error reading transcript %d: %w", id, err)
	}
	if transcriptBytes == nil {
		return nil, Errf(KindNotFound, "transcript %d does not exist", id)
	}
	var transcript model.Transcript
	if err := json.Unmarshal(transcriptBytes, &transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript %d: %w", id, err)
	}
	if transcript.Courses == nil {
		transcript.Courses = []model.Course{}
	}
	return &transcript, nil
}

// validateCourses enforces the per-course rules: a transcript carries at least
// one course, and each course has a code, a grade, non-negative credits and a
// positive semester.
func (s *CredtraceSmartContract) validateCourses(courses []model.Course) error {
	if len(courses) == 0 {
		return Errf(KindInvalidInput, "courses cannot be empty")
	}
	if len(courses) > maxCourses {
		return Errf(KindInvalidInput, "courses has %d entries, exceeding maximum of %d", len(courses), maxCourses)
	}
	for i, course := range courses {
		field := fmt.Sprintf("courses[%d]", i)
		if err := s.validateRequiredString(course.CourseCode, field+".courseCode", maxStringInputLength); err != nil {
			return err
		}
		if err := s.validateRequiredString(course.CourseName, field+".courseName", maxStringInputLength); err != nil {
			return err
		}
		if err := s.validateRequiredString(course.Grade, field+".grade", maxStringInputLength); err != nil {
			return err
		}
		if course.Credits < 0 {
			return Errf(KindInvalidInput, "%s.credits cannot be negative", field)
		}
		if course.Semester < 1 {
			return Errf(KindInvalidInput, "%s.semester must be positive", field)
		}
	}
	return nil
}
