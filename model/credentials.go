package model

import "time"

// AuditKind identifies the operation an audit record describes.
type AuditKind string

const (
	AuditRoleGranted            AuditKind = "RoleGranted"
	AuditRoleRevoked            AuditKind = "RoleRevoked"
	AuditInstitutionRegistered  AuditKind = "InstitutionRegistered"
	AuditInstitutionDeactivated AuditKind = "InstitutionDeactivated"
	AuditTranscriptIssued       AuditKind = "TranscriptIssued"
	AuditTranscriptRevoked      AuditKind = "TranscriptRevoked"
	AuditTranscriptVerified     AuditKind = "TranscriptVerified"
)

// Institution is an accredited issuing body. Records are created once,
// deactivated at most once, and never deleted.
type Institution struct {
	ObjectType         string    `json:"objectType"` // "Institution"
	ID                 uint64    `json:"id"`
	Name               string    `json:"name"`
	RegistrationNumber string    `json:"registrationNumber"`
	Address            string    `json:"address"` // on-chain identity, unique across all records
	IsActive           bool      `json:"isActive"`
	RegisteredBy       string    `json:"registeredBy"`
	RegisteredAt       time.Time `json:"registeredAt"`
	DeactivatedAt      time.Time `json:"deactivatedAt,omitempty"`
}

// Course is a completed course entry embedded in exactly one transcript.
// Immutable after issuance.
type Course struct {
	CourseCode string `json:"courseCode"`
	CourseName string `json:"courseName"`
	Credits    int32  `json:"credits"`
	Grade      string `json:"grade"`
	Year       int32  `json:"year"`
	Semester   int32  `json:"semester"`
}

// Transcript ties a student to the course list issued by an institution.
// The only mutation ever applied is revocation.
type Transcript struct {
	ObjectType       string    `json:"objectType"` // "Transcript"
	ID               uint64    `json:"id"`
	InstitutionID    uint64    `json:"institutionId"`
	StudentAddress   string    `json:"studentAddress"`
	StudentID        string    `json:"studentId"`
	StudentName      string    `json:"studentName"`
	Program          string    `json:"program"`
	Courses          []Course  `json:"courses"`
	IssuedAt         time.Time `json:"issuedAt"`
	IsRevoked        bool      `json:"isRevoked"`
	RevocationReason string    `json:"revocationReason,omitempty"`
	RevokedAt        time.Time `json:"revokedAt,omitempty"`
	// ContentReference is an opaque pointer into an external document store
	// (e.g. an IPFS CID). The ledger never resolves or validates it.
	ContentReference string `json:"contentReference,omitempty"`
}

// VerificationResult is the outcome of a transcript integrity check.
type VerificationResult struct {
	TranscriptID uint64 `json:"transcriptId"`
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason,omitempty"` // set when Valid is false
}

// AuditRecord is one entry of the append-only audit stream. Every accepted
// mutating call and every verification call produces exactly one.
type AuditRecord struct {
	ObjectType string    `json:"objectType"` // "AuditRecord"
	Sequence   uint64    `json:"sequence"`
	Kind       AuditKind `json:"kind"`
	Actor      string    `json:"actor"`
	Subject    string    `json:"subject"`
	Timestamp  time.Time `json:"timestamp"`
	Outcome    string    `json:"outcome"`
}

// TranscriptHistoryEntry is one committed state of a transcript as recorded
// by the peer's per-key history.
type TranscriptHistoryEntry struct {
	TxID      string    `json:"txId"`
	Timestamp time.Time `json:"timestamp"`
	IsDelete  bool      `json:"isDelete"`
	Value     string    `json:"value"` // raw JSON of the transcript at that point
}
