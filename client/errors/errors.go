package errors

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

func formatError(es []error) string {
	if len(es) == 1 {
		return fmt.Sprintf("1 error occurred:\n\t* %s", es[0])
	}

	points := make([]string, len(es))
	for i, err := range es {
		points[i] = fmt.Sprintf("* %s", err)
	}

	return fmt.Sprintf(
		"%d errors occurred:\n\t%s",
		len(es), strings.Join(points, "\n\t"))
}

// FormatErrorOrNil renders the collected errors as an indented list, or returns nil when nothing was collected
func FormatErrorOrNil(err *multierror.Error) error {
	if err != nil {
		err.ErrorFormat = formatError
	}
	return err.ErrorOrNil()
}

// Collect classifies the collected errors under a single message. It returns nil when nothing was collected
func Collect(kind Kind, msg string, merr *multierror.Error) error {
	err := FormatErrorOrNil(merr)
	if err == nil {
		return nil
	}
	return &Error{ErrorKind: kind, Message: msg, Err: err}
}
