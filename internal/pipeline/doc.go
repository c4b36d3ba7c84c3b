// Package pipeline holds the pure core of the content pipeline: the state
// enumeration, its classification, the transition function, family progress
// aggregation, and processing order.
//
// Nothing in this package performs I/O. Step executors and the workflow
// manager consult it to decide what happens next for an entity; the catalog
// store persists whatever they decide.
//
// When a state is added, extend allStates, the Classify switch, the weight
// table, and the NextState switch together; the package tests iterate the
// full enumeration and fail on any gap.
package pipeline
