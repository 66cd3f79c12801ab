package workspace

import (
	"testing"

	"go.uber.org/goleak"
)

// Every workspace test is expected to drain its background build before
// finishing, so nothing should outlive the test binary.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
