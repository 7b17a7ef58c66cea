package line

import "errors"

// ErrEof is returned from GetLine when the end-of-file control character
// (VEOF, normally ^D) is pressed on an empty line.
var ErrEof = errors.New("end of file")

// ErrEmpty is returned from GetLine in OperationModeNonInteractive when the
// line read from stdin is empty. The interactive editor returns an empty
// committed line as "" with a nil error.
var ErrEmpty = errors.New("empty line")

// ErrReadFailure is wrapped into the error returned from GetLine when
// reading input from stdin failed for a reason other than interruption or
// resize.
var ErrReadFailure = errors.New("read failure")
