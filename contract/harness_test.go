package contract

import (
	"crypto/x509"
	"fmt"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Simulated caller identities. The enrollment id doubles as the institution's
// on-chain address, so these read like addresses on purpose.
const (
	adminID        = "x509::CN=admin::OU=admin"
	institution1ID = "x509::CN=harvard::OU=institution"
	institution2ID = "x509::CN=mit::OU=institution"
	student1ID     = "x509::CN=student1::OU=client"
	student2ID     = "x509::CN=student2::OU=client"
	verifierID     = "x509::CN=verifier::OU=client"
)

// testIdentity is a fake cid.ClientIdentity for a simulated caller.
type testIdentity struct {
	id    string
	mspID string
}

func (t *testIdentity) GetID() (string, error)    { return t.id, nil }
func (t *testIdentity) GetMSPID() (string, error) { return t.mspID, nil }
func (t *testIdentity) GetAttributeValue(string) (string, bool, error) {
	return "", false, nil
}
func (t *testIdentity) AssertAttributeValue(string, string) error { return nil }
func (t *testIdentity) GetX509Certificate() (*x509.Certificate, error) {
	return nil, nil
}

// testContext pairs the shared MockStub with one caller identity.
type testContext struct {
	stub   *shimtest.MockStub
	caller cid.ClientIdentity
}

func (c *testContext) GetStub() shim.ChaincodeStubInterface  { return c.stub }
func (c *testContext) GetClientIdentity() cid.ClientIdentity { return c.caller }

// harness drives the contract against one MockStub ledger. Each mutating call
// runs inside its own mock transaction, mirroring the one-call-one-transaction
// model of the peer.
type harness struct {
	t     *testing.T
	cc    *CredtraceSmartContract
	stub  *shimtest.MockStub
	txSeq int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	stub := shimtest.NewMockStub("credtrace", nil)
	stub.TxTimestamp = timestamppb.New(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	return &harness{t: t, cc: &CredtraceSmartContract{}, stub: stub}
}

func (h *harness) as(caller string) *testContext {
	return &testContext{stub: h.stub, caller: &testIdentity{id: caller, mspID: "Org1MSP"}}
}

// tx runs fn inside a mock transaction so state writes are permitted.
func (h *harness) tx(fn func()) {
	h.txSeq++
	txID := fmt.Sprintf("tx%04d", h.txSeq)
	h.stub.MockTransactionStart(txID)
	defer h.stub.MockTransactionEnd(txID)
	fn()
}

// bootstrap makes adminID the first admin.
func (h *harness) bootstrap() {
	h.t.Helper()
	var err error
	h.tx(func() { err = h.cc.BootstrapLedger(h.as(adminID)) })
	if err != nil {
		h.t.Fatalf("BootstrapLedger failed: %v", err)
	}
}

// registerInstitution registers an institution as admin and returns its id.
func (h *harness) registerInstitution(name, regNumber, address string) uint64 {
	h.t.Helper()
	var id uint64
	var err error
	h.tx(func() { id, err = h.cc.RegisterInstitution(h.as(adminID), name, regNumber, address) })
	if err != nil {
		h.t.Fatalf("RegisterInstitution(%s) failed: %v", name, err)
	}
	return id
}

// issueTranscript issues as the given institution identity and returns the id.
func (h *harness) issueTranscript(issuer, student, studentID, studentName, program, coursesJSON string) uint64 {
	h.t.Helper()
	var id uint64
	var err error
	h.tx(func() {
		id, err = h.cc.IssueTranscript(h.as(issuer), student, studentID, studentName, program, coursesJSON, "QmXYZ123")
	})
	if err != nil {
		h.t.Fatalf("IssueTranscript for '%s' failed: %v", studentName, err)
	}
	return id
}

const singleCourseJSON = `[{"courseCode":"CS101","courseName":"Introduction to Computer Science","credits":3,"grade":"A","year":2024,"semester":1}]`

const twoCoursesJSON = `[
	{"courseCode":"CS101","courseName":"Introduction to Computer Science","credits":3,"grade":"A","year":2024,"semester":1},
	{"courseCode":"MATH201","courseName":"Calculus II","credits":4,"grade":"A-","year":2024,"semester":1}
]`

// wantKind asserts err carries the expected failure kind.
func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}
