package pagecodec

import (
	"fmt"

	"tpchjoin/errs"
)

func errCorrupt(msg string) error {
	return fmt.Errorf("%s: %w", msg, errs.ErrCorruptPage)
}
