// Package preflight provides readiness checks for external services
// and filesystem paths that CodeStory depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup so a missing API key or an
//     unwritable workspace surfaces immediately instead of minutes into
//     a pipeline run.
//   - The CLI "codestory status" command uses individual check functions
//     to display service health.
package preflight
