// Package gamecontext assembles the context bundles handed to content
// generation.
//
// BuildContext renders an entity's enrichment data as a section-ordered text
// bundle. BuildFamilyContext projects a base entity into the FamilyContext
// snapshot that dependent entities embed in their generation requests. Both
// are pure; persisting a rebuilt family context is the workflow package's job.
package gamecontext
