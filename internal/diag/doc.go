// Package diag defines the diagnostic model shared by the analyzer pipeline,
// the language server and the command line front end.
//
// Diagnostic is the central record. Positions are zero-based lines and
// UTF-16 character offsets, the unit editors speak, so a record produced by
// internal/tidy can be published without further conversion.
//
// A diagnostic derived from an analyzer replacement carries a FixPayload.
// FixPayload.Code encodes it as a JSON array [text, offset, length] which
// the language server stores in the protocol's diagnostic code field; when
// the client asks for code actions, ParseFixCode turns it back into an edit.
//
// Severity follows the protocol numbering (Error=1 ... Hint=4).
//
// Bag aggregates diagnostics across documents for the command line
// (sorting, deduplication, error counting). Reporter decouples producers
// from the Bag so filters can sit in between.
package diag
