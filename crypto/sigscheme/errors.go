package sigscheme

import "errors"

var errSignatureInvalid = errors.New("sigscheme: signature did not verify")
