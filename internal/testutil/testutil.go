// Package testutil provides test helpers shared across mairix's package
// test suites.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (AssertValidUTF8, AssertContainsAll)
//   - fs_helpers.go: filesystem operations (WriteFile, ReadFile, MustExist)
//   - archive_helpers.go: archive creation (CreateTarGz, CreateTempZip)
//   - security_data.go: security test vectors (PathTraversalCases)
//   - encoding.go: encoding test helpers
package testutil
