package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"credtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// auditObjectType is the composite key object type for audit records.
// Attribute: zero-padded sequence number, so a range scan yields the stream
// in acceptance order.
const auditObjectType = "AuditRecord"

// appendAudit writes the next audit record and emits a chaincode event named
// after its kind. Called exactly once per accepted mutating or verifying
// operation, after every validation and primary write of that operation.
func (s *CredtraceSmartContract) appendAudit(ctx contractapi.TransactionContextInterface, kind model.AuditKind, actor, subject, outcome string) error {
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return err
	}
	seq, err := s.nextSequence(ctx, counterAudit)
	if err != nil {
		return fmt.Errorf("failed to assign audit sequence: %w", err)
	}
	record := model.AuditRecord{
		ObjectType: auditObjectType,
		Sequence:   seq,
		Kind:       kind,
		Actor:      actor,
		Subject:    subject,
		Timestamp:  now,
		Outcome:    outcome,
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record %d: %w", seq, err)
	}
	auditKey, err := ctx.GetStub().CreateCompositeKey(auditObjectType, []string{padSeq(seq)})
	if err != nil {
		return fmt.Errorf("failed to create audit key for sequence %d: %w", seq, err)
	}
	if err := ctx.GetStub().PutState(auditKey, recordBytes); err != nil {
		return fmt.Errorf("failed to save audit record %d: %w", seq, err)
	}
	if err := ctx.GetStub().SetEvent(string(kind), recordBytes); err != nil {
		// The record is committed either way; the event is a courtesy to
		// off-chain listeners.
		logger.Warningf("appendAudit: failed to set event '%s' for audit record %d: %v", kind, seq, err)
	}
	return nil
}

// GetAuditLog returns the full audit stream in acceptance order. Public.
func (s *CredtraceSmartContract) GetAuditLog(ctx contractapi.TransactionContextInterface) ([]model.AuditRecord, error) {
	logger.Debug("Chaincode Call: GetAuditLog (public access)")
	return s.scanAuditRecords(ctx, "", "")
}

// QueryAuditRecords returns audit records filtered by kind and/or subject, in
// acceptance order. An empty filter value matches everything. Public.
func (s *CredtraceSmartContract) QueryAuditRecords(ctx contractapi.TransactionContextInterface, kind, subject string) ([]model.AuditRecord, error) {
	logger.Debugf("Chaincode Call: QueryAuditRecords kind='%s' subject='%s' (public access)", kind, subject)
	return s.scanAuditRecords(ctx, strings.TrimSpace(kind), strings.TrimSpace(subject))
}

func (s *CredtraceSmartContract) scanAuditRecords(ctx contractapi.TransactionContextInterface, kind, subject string) ([]model.AuditRecord, error) {
	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(auditObjectType, []string{})
	if err != nil {
		return nil, fmt.Errorf("failed to get audit records iterator: %w", err)
	}
	defer resultsIterator.Close()

	records := []model.AuditRecord{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			logger.Warningf("scanAuditRecords: failed to get next record from iterator: %v. Skipping.", iterErr)
			continue
		}
		var record model.AuditRecord
		if err := json.Unmarshal(queryResponse.Value, &record); err != nil {
			logger.Warningf("scanAuditRecords: failed to unmarshal audit record for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		if kind != "" && string(record.Kind) != kind {
			continue
		}
		if subject != "" && record.Subject != subject {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
