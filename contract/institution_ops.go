package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"credtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Institution Registry Operations ---

// RegisterInstitution accredits a new issuing body. Admin-only. The address
// must not belong to any existing record, active or not, and receives the
// institution role in the same transaction so it can issue immediately.
// Returns the newly assigned institution id.
func (s *CredtraceSmartContract) RegisterInstitution(ctx contractapi.TransactionContextInterface,
	name, registrationNumber, address string) (uint64, error) {

	rm := NewRoleManager(ctx)
	if err := rm.RequireAdmin(); err != nil {
		return 0, fmt.Errorf("RegisterInstitution: %w", err)
	}
	actorID, err := rm.GetCallerID()
	if err != nil {
		return 0, fmt.Errorf("RegisterInstitution: failed to get caller identity: %w", err)
	}

	logger.Infof("Admin '%s' registering institution '%s' (regNo: %s, address: %s)", actorID, name, registrationNumber, address)

	if err := s.validateRequiredString(name, "name", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(registrationNumber, "registrationNumber", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(address, "address", maxStringInputLength*2); err != nil {
		return 0, err
	}
	address = strings.TrimSpace(address)

	if _, exists, err := s.getInstitutionIDByAddress(ctx, address); err != nil {
		return 0, fmt.Errorf("RegisterInstitution: %w", err)
	} else if exists {
		return 0, Errf(KindDuplicateInstitution, "institution address '%s' is already registered", address)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return 0, fmt.Errorf("RegisterInstitution: %w", err)
	}

	// All checks passed; assigning the id is the first write.
	id, err := s.nextSequence(ctx, counterInstitution)
	if err != nil {
		return 0, fmt.Errorf("RegisterInstitution: %w", err)
	}

	institution := model.Institution{
		ObjectType:         institutionObjectType,
		ID:                 id,
		Name:               name,
		RegistrationNumber: registrationNumber,
		Address:            address,
		IsActive:           true,
		RegisteredBy:       actorID,
		RegisteredAt:       now,
	}
	institutionBytes, err := json.Marshal(institution)
	if err != nil {
		return 0, fmt.Errorf("RegisterInstitution: failed to marshal institution %d: %w", id, err)
	}
	institutionKey, err := s.createInstitutionKey(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("RegisterInstitution: failed to create institution key for %d: %w", id, err)
	}
	if err := ctx.GetStub().PutState(institutionKey, institutionBytes); err != nil {
		return 0, fmt.Errorf("RegisterInstitution: failed to save institution %d: %w", id, err)
	}

	addressKey, err := s.createInstitutionAddressKey(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("RegisterInstitution: failed to create address index key for '%s': %w", address, err)
	}
	if err := ctx.GetStub().PutState(addressKey, []byte(strconv.FormatUint(id, 10))); err != nil {
		return 0, fmt.Errorf("RegisterInstitution: failed to save address index for '%s': %w", address, err)
	}

	// The registered address issues on its own behalf, so it gets the
	// institution role as part of registration.
	if err := rm.putGrant(model.RoleInstitution, address, actorID); err != nil {
		return 0, fmt.Errorf("RegisterInstitution: failed to grant institution role to '%s': %w", address, err)
	}

	if err := s.appendAudit(ctx, model.AuditInstitutionRegistered, actorID, strconv.FormatUint(id, 10), "success"); err != nil {
		return 0, fmt.Errorf("RegisterInstitution: %w", err)
	}
	logger.Infof("Institution '%s' registered with id %d by '%s'", name, id, actorID)
	return id, nil
}

// DeactivateInstitution permanently ends an institution's issuing authority.
// Admin-only. Deactivating an already-inactive institution succeeds with no
// state change but is still audited. There is no reactivation.
func (s *CredtraceSmartContract) DeactivateInstitution(ctx contractapi.TransactionContextInterface, institutionID uint64) error {
	rm := NewRoleManager(ctx)
	if err := rm.RequireAdmin(); err != nil {
		return fmt.Errorf("DeactivateInstitution: %w", err)
	}
	actorID, err := rm.GetCallerID()
	if err != nil {
		return fmt.Errorf("DeactivateInstitution: failed to get caller identity: %w", err)
	}

	institution, err := s.getInstitutionByID(ctx, institutionID)
	if err != nil {
		return fmt.Errorf("DeactivateInstitution: %w", err)
	}

	if institution.IsActive {
		now, err := s.getCurrentTxTimestamp(ctx)
		if err != nil {
			return fmt.Errorf("DeactivateInstitution: %w", err)
		}
		institution.IsActive = false
		institution.DeactivatedAt = now

		institutionBytes, err := json.Marshal(institution)
		if err != nil {
			return fmt.Errorf("DeactivateInstitution: failed to marshal institution %d: %w", institutionID, err)
		}
		institutionKey, err := s.createInstitutionKey(ctx, institutionID)
		if err != nil {
			return fmt.Errorf("DeactivateInstitution: failed to create institution key for %d: %w", institutionID, err)
		}
		if err := ctx.GetStub().PutState(institutionKey, institutionBytes); err != nil {
			return fmt.Errorf("DeactivateInstitution: failed to save institution %d: %w", institutionID, err)
		}
	} else {
		logger.Infof("Institution %d is already inactive. No state change.", institutionID)
	}

	if err := s.appendAudit(ctx, model.AuditInstitutionDeactivated, actorID, strconv.FormatUint(institutionID, 10), "success"); err != nil {
		return fmt.Errorf("DeactivateInstitution: %w", err)
	}
	logger.Infof("Institution %d deactivated by '%s'", institutionID, actorID)
	return nil
}

// GetInstitution returns an institution record. Available to any caller.
func (s *CredtraceSmartContract) GetInstitution(ctx contractapi.TransactionContextInterface, institutionID uint64) (*model.Institution, error) {
	logger.Debugf("Chaincode Call: GetInstitution %d (public access)", institutionID)
	return s.getInstitutionByID(ctx, institutionID)
}

// GetAllInstitutions returns every institution record, active or not, in id
// order. Available to any caller.
func (s *CredtraceSmartContract) GetAllInstitutions(ctx contractapi.TransactionContextInterface) ([]model.Institution, error) {
	logger.Debug("Chaincode Call: GetAllInstitutions (public access)")

	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(institutionObjectType, []string{})
	if err != nil {
		return nil, fmt.Errorf("GetAllInstitutions: failed to get institutions iterator: %w", err)
	}
	defer resultsIterator.Close()

	institutions := []model.Institution{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			logger.Warningf("GetAllInstitutions: failed to get next institution from iterator: %v. Skipping.", iterErr)
			continue
		}
		var institution model.Institution
		if err := json.Unmarshal(queryResponse.Value, &institution); err != nil {
			logger.Warningf("GetAllInstitutions: failed to unmarshal institution for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		institutions = append(institutions, institution)
	}
	return institutions, nil
}
