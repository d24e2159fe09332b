package pipeline

// Outcome is the per-product result of a stage: either a Path or a Reason.
type Outcome struct {
	Product string
	Path    string
	Reason  string
}

func succeeded(product, path string) Outcome {
	return Outcome{Product: product, Path: path}
}

func failed(product, reason string) Outcome {
	return Outcome{Product: product, Reason: reason}
}

func (o Outcome) OK() bool { return o.Reason == "" }

// partition splits outcomes into successes and failures keyed by product.
func partition(outcomes []Outcome) (ok, errs map[string]string) {
	ok = make(map[string]string)
	errs = make(map[string]string)
	for _, o := range outcomes {
		if o.OK() {
			ok[o.Product] = o.Path
		} else {
			errs[o.Product] = o.Reason
		}
	}
	return ok, errs
}
