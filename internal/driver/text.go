package driver

import (
	"context"
	"errors"
	"strings"
)

// Lookup finds d within scope. A missing element is reported as found=false
// rather than an error.
func Lookup(ctx context.Context, drv Driver, scope Element, d Descriptor) (el Element, found bool, err error) {
	el, err = drv.Find(ctx, scope, d)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return el, true, nil
}

// ReadText finds d within scope and returns its trimmed value.
func ReadText(ctx context.Context, drv Driver, scope Element, d Descriptor) (text string, found bool, err error) {
	el, found, err := Lookup(ctx, drv, scope, d)
	if err != nil || !found {
		return "", found, err
	}
	v, err := drv.Read(ctx, el)
	if err != nil {
		return "", true, err
	}
	return strings.TrimSpace(v), true, nil
}
