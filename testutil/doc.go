// Package testutil gives infrastructure components a test lifecycle.
//
// A TestComponent is a component.Component that can also be reset between
// cases and snapshotted. The sqlite-backed database component and the
// miniredis-backed cache component in this module implement it:
//
//	func TestStore(t *testing.T) {
//	    db := dbtest.NewComponent()
//	    testutil.T(t).Setup(db)
//	    ...
//	    testutil.T(t).Reset(db)
//	}
package testutil
