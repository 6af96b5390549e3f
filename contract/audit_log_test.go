package contract

import (
	"testing"

	"credtrace/model"
)

func TestAuditLogOrderingAndCoverage(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()
	instID := h.registerInstitution("Harvard University", "REG-001", institution1ID)
	tID := h.issueTranscript(institution1ID, student1ID, "STU-001", "John Doe", "Computer Science", singleCourseJSON)

	var err error
	h.tx(func() { _, err = h.cc.VerifyTranscript(h.as(verifierID), tID) })
	if err != nil {
		t.Fatalf("VerifyTranscript failed: %v", err)
	}
	h.tx(func() { err = h.cc.RevokeTranscript(h.as(institution1ID), tID, "Invalid data") })
	if err != nil {
		t.Fatalf("RevokeTranscript failed: %v", err)
	}
	h.tx(func() { err = h.cc.DeactivateInstitution(h.as(adminID), instID) })
	if err != nil {
		t.Fatalf("DeactivateInstitution failed: %v", err)
	}

	records, err := h.cc.GetAuditLog(h.as(verifierID))
	if err != nil {
		t.Fatalf("GetAuditLog failed: %v", err)
	}
	wantKinds := []model.AuditKind{
		model.AuditRoleGranted,            // bootstrap admin
		model.AuditInstitutionRegistered,  // Harvard
		model.AuditTranscriptIssued,       // John Doe
		model.AuditTranscriptVerified,     // verifier check
		model.AuditTranscriptRevoked,      // Invalid data
		model.AuditInstitutionDeactivated, // Harvard again
	}
	if len(records) != len(wantKinds) {
		t.Fatalf("expected %d audit records, got %d", len(wantKinds), len(records))
	}
	for i, record := range records {
		if record.Kind != wantKinds[i] {
			t.Fatalf("record %d: expected kind %s, got %s", i, wantKinds[i], record.Kind)
		}
		if record.Sequence != uint64(i+1) {
			t.Fatalf("record %d: expected sequence %d, got %d", i, i+1, record.Sequence)
		}
		if record.Timestamp.IsZero() {
			t.Fatalf("record %d: timestamp missing", i)
		}
	}
}

func TestAuditLogRecordsActorAndSubject(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()
	h.registerInstitution("Harvard University", "REG-001", institution1ID)

	records, err := h.cc.QueryAuditRecords(h.as(verifierID), string(model.AuditInstitutionRegistered), "")
	if err != nil {
		t.Fatalf("QueryAuditRecords failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 registration audit record, got %d", len(records))
	}
	if records[0].Actor != adminID {
		t.Fatalf("expected actor '%s', got '%s'", adminID, records[0].Actor)
	}
	if records[0].Subject != "1" {
		t.Fatalf("expected subject '1', got '%s'", records[0].Subject)
	}
}

func TestQueryAuditRecordsFilters(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()
	h.registerInstitution("Harvard University", "REG-001", institution1ID)
	h.registerInstitution("MIT", "REG-002", institution2ID)
	h.issueTranscript(institution1ID, student1ID, "STU-001", "John Doe", "Computer Science", singleCourseJSON)

	// By kind.
	records, err := h.cc.QueryAuditRecords(h.as(verifierID), string(model.AuditInstitutionRegistered), "")
	if err != nil {
		t.Fatalf("QueryAuditRecords by kind failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 registration records, got %d", len(records))
	}

	// By subject.
	records, err = h.cc.QueryAuditRecords(h.as(verifierID), "", "2")
	if err != nil {
		t.Fatalf("QueryAuditRecords by subject failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record for subject '2', got %d", len(records))
	}
	if records[0].Kind != model.AuditInstitutionRegistered {
		t.Fatalf("expected registration record for MIT, got kind %s", records[0].Kind)
	}

	// Both filters together.
	records, err = h.cc.QueryAuditRecords(h.as(verifierID), string(model.AuditTranscriptIssued), "1")
	if err != nil {
		t.Fatalf("QueryAuditRecords by kind and subject failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 issuance record for transcript 1, got %d", len(records))
	}

	// Empty filters match everything.
	all, err := h.cc.QueryAuditRecords(h.as(verifierID), "", "")
	if err != nil {
		t.Fatalf("QueryAuditRecords unfiltered failed: %v", err)
	}
	full, err := h.cc.GetAuditLog(h.as(verifierID))
	if err != nil {
		t.Fatalf("GetAuditLog failed: %v", err)
	}
	if len(all) != len(full) {
		t.Fatalf("unfiltered query returned %d records, full log has %d", len(all), len(full))
	}

	// No match yields an empty slice, not an error.
	records, err = h.cc.QueryAuditRecords(h.as(verifierID), string(model.AuditTranscriptRevoked), "")
	if err != nil {
		t.Fatalf("QueryAuditRecords for absent kind failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no revocation records, got %d", len(records))
	}
}

func TestFailedOperationsLeaveNoAuditRecord(t *testing.T) {
	h := newHarness(t)
	h.bootstrap()
	h.registerInstitution("Harvard University", "REG-001", institution1ID)

	var err error
	h.tx(func() { _, err = h.cc.RegisterInstitution(h.as(adminID), "MIT", "REG-002", institution1ID) })
	wantKind(t, err, KindDuplicateInstitution)
	h.tx(func() {
		_, err = h.cc.IssueTranscript(h.as(verifierID), student1ID, "STU-001", "John Doe", "Computer Science", singleCourseJSON, "")
	})
	wantKind(t, err, KindUnauthorized)

	records, err := h.cc.GetAuditLog(h.as(verifierID))
	if err != nil {
		t.Fatalf("GetAuditLog failed: %v", err)
	}
	// Bootstrap grant plus the one successful registration.
	if len(records) != 2 {
		t.Fatalf("rejected operations must not be audited: expected 2 records, got %d", len(records))
	}
}
