package domain

import (
	"errors"
	"fmt"
)

// Client input errors. These map to 400 and never reach the browser.
var (
	ErrMissingTarget = errors.New("missing target URL")
	ErrInvalidTarget = errors.New("invalid URL format")
	ErrInvalidBody   = errors.New("invalid request body")
)

// Render stage errors. These map to 500.
var (
	ErrBrowserLaunch = errors.New("browser launch failed")
	ErrNavigation    = errors.New("navigation failed")
	ErrEmptyPage     = errors.New("page appears to be empty or blocked")
	ErrCapture       = errors.New("pdf capture failed")
)

// Capacity errors raised by long-running transports.
var (
	ErrBusy        = errors.New("no render slot available")
	ErrPDFTooLarge = errors.New("pdf exceeds size limit")
)

// LaunchError reports that every provisioning strategy failed. Fallback is nil
// when the policy did not allow a second attempt.
type LaunchError struct {
	Primary  error
	Fallback error
}

func (e *LaunchError) Error() string {
	if e.Fallback == nil {
		return fmt.Sprintf("%s: %v", ErrBrowserLaunch, e.Primary)
	}
	return fmt.Sprintf("%s: primary: %v; fallback: %v", ErrBrowserLaunch, e.Primary, e.Fallback)
}

// Is makes errors.Is(err, ErrBrowserLaunch) hold for any LaunchError.
func (e *LaunchError) Is(target error) bool {
	return target == ErrBrowserLaunch
}

func (e *LaunchError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Primary != nil {
		errs = append(errs, e.Primary)
	}
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	return errs
}

// IsClientError reports whether err was caused by caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingTarget) ||
		errors.Is(err, ErrInvalidTarget) ||
		errors.Is(err, ErrInvalidBody)
}

// IsPageError reports whether err happened after the browser was up, while
// loading, stabilizing or printing the page.
func IsPageError(err error) bool {
	return errors.Is(err, ErrNavigation) ||
		errors.Is(err, ErrEmptyPage) ||
		errors.Is(err, ErrCapture)
}
