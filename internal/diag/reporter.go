package diag

// Reporter receives diagnostics from a producer without tying it to storage.
// Filters wrap a Reporter; BagReporter is the usual end of the chain.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter writes into a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}
