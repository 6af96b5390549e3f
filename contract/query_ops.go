package contract

import (
	"fmt"
	"strconv"
	"strings"

	"credtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Query Functions ---
// All of these are read-only and require no role: public verifiability is the
// point of keeping transcripts on a ledger.

// GetTranscript returns a transcript record by id.
func (s *CredtraceSmartContract) GetTranscript(ctx contractapi.TransactionContextInterface, transcriptID uint64) (*model.Transcript, error) {
	logger.Debugf("Chaincode Call: GetTranscript %d (public access)", transcriptID)
	return s.getTranscriptByID(ctx, transcriptID)
}

// GetTranscriptCourses returns the course list embedded in a transcript.
func (s *CredtraceSmartContract) GetTranscriptCourses(ctx contractapi.TransactionContextInterface, transcriptID uint64) ([]model.Course, error) {
	logger.Debugf("Chaincode Call: GetTranscriptCourses %d (public access)", transcriptID)
	transcript, err := s.getTranscriptByID(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	return transcript.Courses, nil
}

// GetStudentTranscripts returns the ids of every transcript issued to the
// student, in issuance order. A student with no transcripts gets an empty
// list, not an error.
func (s *CredtraceSmartContract) GetStudentTranscripts(ctx contractapi.TransactionContextInterface, studentAddress string) ([]uint64, error) {
	logger.Debugf("Chaincode Call: GetStudentTranscripts for '%s' (public access)", studentAddress)
	if err := s.validateRequiredString(studentAddress, "studentAddress", maxStringInputLength*2); err != nil {
		return nil, err
	}
	studentAddress = strings.TrimSpace(studentAddress)

	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(studentIndexObjectType, []string{studentAddress})
	if err != nil {
		return nil, fmt.Errorf("GetStudentTranscripts: failed to get index iterator for '%s': %w", studentAddress, err)
	}
	defer resultsIterator.Close()

	// Zero-padded index keys make the scan come back in issuance order.
	ids := []uint64{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			logger.Warningf("GetStudentTranscripts: failed to get next index entry from iterator: %v. Skipping.", iterErr)
			continue
		}
		id, parseErr := strconv.ParseUint(string(queryResponse.Value), 10, 64)
		if parseErr != nil {
			logger.Warningf("GetStudentTranscripts: corrupt index entry at key '%s': %v. Skipping.", queryResponse.Key, parseErr)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetTranscriptHistory returns every committed state of a transcript as
// recorded by the peer, oldest interpretation left to the caller. Lets a
// verifier see the issuance and revocation transactions behind the current
// record.
func (s *CredtraceSmartContract) GetTranscriptHistory(ctx contractapi.TransactionContextInterface, transcriptID uint64) ([]model.TranscriptHistoryEntry, error) {
	logger.Debugf("Chaincode Call: GetTranscriptHistory %d (public access)", transcriptID)
	if _, err := s.getTranscriptByID(ctx, transcriptID); err != nil {
		return nil, err
	}
	transcriptKey, err := s.createTranscriptKey(ctx, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("GetTranscriptHistory: failed to create transcript key for %d: %w", transcriptID, err)
	}

	historyIterator, err := ctx.GetStub().GetHistoryForKey(transcriptKey)
	if err != nil {
		return nil, fmt.Errorf("GetTranscriptHistory: failed to get history for transcript %d: %w", transcriptID, err)
	}
	defer historyIterator.Close()

	entries := []model.TranscriptHistoryEntry{}
	for historyIterator.HasNext() {
		historyItem, iterErr := historyIterator.Next()
		if iterErr != nil {
			logger.Warningf("GetTranscriptHistory: error iterating history for %d: %v. Skipping entry.", transcriptID, iterErr)
			continue
		}
		entries = append(entries, model.TranscriptHistoryEntry{
			TxID:      historyItem.TxId,
			Timestamp: historyItem.Timestamp.AsTime(),
			IsDelete:  historyItem.IsDelete,
			Value:     string(historyItem.Value),
		})
	}
	return entries, nil
}
