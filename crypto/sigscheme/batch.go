package sigscheme

import "golang.org/x/sync/errgroup"

// Check is one (pubkey, message, signature) tuple to verify, tagged with
// an index so callers can report which input failed.
type Check struct {
	Index   int
	Pubkey  []byte
	Message []byte
	Sig     []byte
}

// VerifyBatch verifies every check against reg in parallel, the concrete
// form of spec §4.4.C/§5's requirement that per-input signature checks be
// parallelizable and deterministic. Each check's outcome depends only on
// its own inputs, so fan-out never changes the result versus a sequential
// loop. Returns the first failing Check's index and error, or (-1, nil)
// if every check passed.
func VerifyBatch(reg *Registry, checks []Check) (failedIndex int, err error) {
	var g errgroup.Group
	results := make([]bool, len(checks))
	errs := make([]error, len(checks))

	for i := range checks {
		c := checks[i]
		g.Go(func() error {
			ok, verr := reg.Verify(c.Pubkey, c.Message, c.Sig)
			results[i] = ok
			errs[i] = verr
			return nil
		})
	}
	_ = g.Wait() // goroutines above never return a non-nil error themselves

	for i, c := range checks {
		if errs[i] != nil {
			return c.Index, errs[i]
		}
		if !results[i] {
			return c.Index, errSignatureInvalid
		}
	}
	return -1, nil
}
