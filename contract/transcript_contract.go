package contract

import (
	"errors"
	"fmt"

	"credtrace/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("credtrace.transcriptcontract")

// CredtraceSmartContract manages accredited institutions, issued transcripts
// and their verification.
// @contract:CredtraceSmartContract
type CredtraceSmartContract struct {
	contractapi.Contract
}

// Instantiate is called during chaincode instantiation.
func (s *CredtraceSmartContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("CredtraceSmartContract Instantiated/Upgraded")
}

// BootstrapLedger makes the invoking identity the first admin. It can only
// succeed while no admin exists; deployment tooling runs it once right after
// instantiation.
func (s *CredtraceSmartContract) BootstrapLedger(ctx contractapi.TransactionContextInterface) error {
	logger.Info("Attempting to bootstrap ledger with initial admin...")
	rm := NewRoleManager(ctx)

	anyAdmin, err := rm.AnyAdminExists()
	if err != nil {
		return fmt.Errorf("BootstrapLedger: failed to check if any admin exists: %w", err)
	}
	if anyAdmin {
		return errors.New("system already has admins or is bootstrapped. BootstrapLedger should not be re-run")
	}

	callerID, err := rm.GetCallerID()
	if err != nil {
		return fmt.Errorf("BootstrapLedger: failed to get caller identity: %w", err)
	}
	if err := rm.putGrant(model.RoleAdmin, callerID, callerID); err != nil {
		return fmt.Errorf("BootstrapLedger: failed to grant admin to '%s': %w", callerID, err)
	}
	if err := s.appendAudit(ctx, model.AuditRoleGranted, callerID, callerID, "success"); err != nil {
		return fmt.Errorf("BootstrapLedger: %w", err)
	}
	logger.Infof("Ledger bootstrapped. Identity '%s' is now an admin.", callerID)
	return nil
}

// --- Role Management Entry Points (delegating to RoleManager) ---

// GrantRole adds a role membership. Admin-only except for the first admin
// grant (bootstrap). Granting an already-held role succeeds with no state
// change; the call is still audited.
func (s *CredtraceSmartContract) GrantRole(ctx contractapi.TransactionContextInterface, role, identity string) error {
	logger.Infof("Chaincode Call: GrantRole '%s' to '%s'", role, identity)
	rm := NewRoleManager(ctx)
	if _, err := rm.Grant(role, identity); err != nil {
		return err
	}
	actorID, err := rm.GetCallerID()
	if err != nil {
		return fmt.Errorf("GrantRole: failed to get caller identity for audit: %w", err)
	}
	return s.appendAudit(ctx, model.AuditRoleGranted, actorID, identity, "success")
}

// RevokeRole removes a role membership. Admin-only and idempotent.
func (s *CredtraceSmartContract) RevokeRole(ctx contractapi.TransactionContextInterface, role, identity string) error {
	logger.Infof("Chaincode Call: RevokeRole '%s' from '%s'", role, identity)
	rm := NewRoleManager(ctx)
	if _, err := rm.Revoke(role, identity); err != nil {
		return err
	}
	actorID, err := rm.GetCallerID()
	if err != nil {
		return fmt.Errorf("RevokeRole: failed to get caller identity for audit: %w", err)
	}
	return s.appendAudit(ctx, model.AuditRoleRevoked, actorID, identity, "success")
}

// HasRole reports role membership. Pure lookup, available to any caller.
func (s *CredtraceSmartContract) HasRole(ctx contractapi.TransactionContextInterface, role, identity string) (bool, error) {
	logger.Debugf("Chaincode Call: HasRole '%s' for '%s'", role, identity)
	return NewRoleManager(ctx).HasRole(role, identity)
}
