package report

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of the report pipeline.
type Kind string

const (
	KindUsage     Kind = "usage"
	KindCompile   Kind = "compile"
	KindFill      Kind = "fill"
	KindNotFilled Kind = "not_filled"
	KindPDF       Kind = "pdf"
	KindCSV       Kind = "csv"
	KindXLSX      Kind = "xlsx"
	KindXHTML     Kind = "xhtml"
	KindDOCX      Kind = "docx"
	KindInternal  Kind = "internal"
)

// Codes the calling application inspects; the numbers are part of the contract.
var kindCodes = map[Kind]int{
	KindUsage:     1,
	KindCompile:   201,
	KindFill:      202,
	KindNotFilled: 203,
	KindPDF:       204,
	KindCSV:       205,
	KindXLSX:      206,
	KindXHTML:     218,
	KindDOCX:      219,
	KindInternal:  1,
}

// Code returns the process exit code for the kind.
func (k Kind) Code() int {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return 1
}

// ExportKind returns the failure kind of an export in the given format.
func ExportKind(f Format) Kind {
	switch f {
	case FormatPDF:
		return KindPDF
	case FormatCSV:
		return KindCSV
	case FormatXLS, FormatXLSX:
		return KindXLSX
	case FormatXHTML:
		return KindXHTML
	case FormatDOCX:
		return KindDOCX
	default:
		return KindUsage
	}
}

// ErrNotFilled is returned by exports requested before a successful fill.
var ErrNotFilled = errors.New("report has not been filled")

// Error wraps a pipeline failure with its kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the exit code of the error's kind.
func (e *Error) Code() int {
	return e.Kind.Code()
}

// NewError creates a new classified error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf creates a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the kind from err; unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

// ExitCode maps err to a process exit code; nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).Code()
}
