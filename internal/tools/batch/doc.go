// Package batch runs one tool operation over several items and reports the
// outcome of each, so a single failure does not hide the others.
//
// Tools accept either a single string or an array of strings for batched
// parameters; ParseList normalizes both forms.
package batch
