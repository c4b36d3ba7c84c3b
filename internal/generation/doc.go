// Package generation implements the content generation step.
//
// Dependent entities embed a copy of their family's cached context in the
// request and are skipped until that context exists. A failed call rolls
// the entity back to taxonomy_assigned with a message naming the failing
// content types and the first sub-error.
package generation
