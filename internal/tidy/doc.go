// Package tidy turns raw clang-tidy output into positioned diagnostics.
//
// The pipeline runs in a fixed order for every document:
//
//	ParseReport      decode the YAML block written by --export-fixes=-
//	ApplySeverities  backfill severities from "file:line:col: level:" lines
//	Correct          byte offsets -> UTF-16 units of the document
//	Relevant         drop findings that belong to another file
//	Project          one diagnostic per replacement, or the whole line
//
// Everything here is a pure function of the analyzer output and a document
// snapshot; callers may run Collect for several documents concurrently.
package tidy
