package papyrus

import (
	"github.com/cockroachdb/errors"

	"github.com/papyrusdb/papyrus/docpath"
)

var (
	// ErrInit indicates the backing store could not be opened or its
	// table could not be created.
	ErrInit = errors.New("papyrus: storage initialization failed")

	// ErrClosed indicates an operation on a Connection that has already
	// been closed, including a second Close.
	ErrClosed = errors.New("papyrus: connection closed")

	// ErrNotFound indicates an operation that requires an existing value
	// was addressed at an absent one, such as an array helper called on a
	// key that holds nothing.
	ErrNotFound = errors.New("papyrus: not found")

	// ErrInvalidDocument indicates a value that cannot live where it was
	// put: a scalar at the root of a key, a write through a non-container
	// intermediate, or an array operation on a non-array.
	ErrInvalidDocument = docpath.ErrInvalidDocument

	// ErrInvalidPath indicates a malformed path specifier.
	ErrInvalidPath = docpath.ErrInvalidPath
)
